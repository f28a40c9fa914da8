package config

import (
	"fmt"
	"strings"
)

// PlayerSpec is one tracked player and the team they belong to.
type PlayerSpec struct {
	ID     string
	TeamID string
}

// ParseCohort parses a `{id:group},{id:group},…` cohort definition.
func ParseCohort(s string) ([]PlayerSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []PlayerSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("cohort entry %q: expected {id:group}", part)
		}
		inner := part[1 : len(part)-1]
		colon := strings.IndexByte(inner, ':')
		if colon < 1 || colon == len(inner)-1 {
			return nil, fmt.Errorf("cohort entry %q: expected {id:group}", part)
		}
		out = append(out, PlayerSpec{ID: inner[:colon], TeamID: inner[colon+1:]})
	}
	return out, nil
}

// ParseRenames parses the `{old:new}%{old:new}%…` rename-map encoding. The
// empty string is the identity map.
func ParseRenames(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	out := make(map[string]string)
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, "%") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("rename entry %q: expected {old:new}", part)
		}
		inner := part[1 : len(part)-1]
		colon := strings.IndexByte(inner, ':')
		if colon < 1 || colon == len(inner)-1 {
			return nil, fmt.Errorf("rename entry %q: expected {old:new}", part)
		}
		out[inner[:colon]] = inner[colon+1:]
	}
	return out, nil
}

// Cohort is the parsed player/team/ball definition of a deployment. Team
// sizes must be consistent: every team in Teams has the same player count.
type Cohort struct {
	Players []PlayerSpec
	Teams   []string
	BallID  string
}

// Cohort reads and validates the cohort keys.
func (p *Properties) Cohort() (*Cohort, error) {
	playersRaw, err := p.String("pitchstream.players")
	if err != nil {
		return nil, err
	}
	players, err := ParseCohort(playersRaw)
	if err != nil {
		return nil, fmt.Errorf("pitchstream.players: %w", err)
	}
	teamsRaw, err := p.String("pitchstream.teams")
	if err != nil {
		return nil, err
	}
	var teams []string
	for _, t := range strings.Split(teamsRaw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			teams = append(teams, t)
		}
	}
	ball, err := p.String("pitchstream.ball")
	if err != nil {
		return nil, err
	}

	perTeam := make(map[string]int)
	for _, pl := range players {
		perTeam[pl.TeamID]++
	}
	size := -1
	for _, t := range teams {
		n := perTeam[t]
		if n == 0 {
			return nil, fmt.Errorf("team %q has no players", t)
		}
		if size == -1 {
			size = n
		} else if n != size {
			return nil, fmt.Errorf("inconsistent team sizes: %d vs %d", size, n)
		}
	}
	return &Cohort{Players: players, Teams: teams, BallID: ball}, nil
}

// TeamSize is the per-team player count.
func (c *Cohort) TeamSize() int {
	if len(c.Teams) == 0 {
		return 0
	}
	n := 0
	for _, p := range c.Players {
		if p.TeamID == c.Teams[0] {
			n++
		}
	}
	return n
}

// TeamOf returns the team of a player id, or "" when unknown.
func (c *Cohort) TeamOf(playerID string) string {
	for _, p := range c.Players {
		if p.ID == playerID {
			return p.TeamID
		}
	}
	return ""
}
