// Package config loads the flat key→string property bag the engine is
// configured with: a global file merged with an optional per-worker file,
// the latter overriding. Malformed values surface as startup errors.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Properties is the merged, immutable property bag.
type Properties struct {
	m map[string]string
}

// FromMap builds a property bag directly, mainly for tests.
func FromMap(m map[string]string) *Properties {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return &Properties{m: cp}
}

// Load reads one or more property files in order; later files override
// earlier ones. Lines are `key=value`; blank lines and `#` comments are
// skipped.
func Load(paths ...string) (*Properties, error) {
	merged := make(map[string]string)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
		sc := bufio.NewScanner(f)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			eq := strings.IndexByte(line, '=')
			if eq < 1 {
				f.Close()
				return nil, fmt.Errorf("config %s:%d: not a key=value line", path, lineNo)
			}
			merged[strings.TrimSpace(line[:eq])] = strings.TrimSpace(line[eq+1:])
		}
		if err := sc.Err(); err != nil {
			f.Close()
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		f.Close()
	}
	return &Properties{m: merged}, nil
}

// Get returns the raw value and whether the key is set.
func (p *Properties) Get(key string) (string, bool) {
	v, ok := p.m[key]
	return v, ok
}

// String returns the value or an error when the key is missing.
func (p *Properties) String(key string) (string, error) {
	v, ok := p.m[key]
	if !ok {
		return "", fmt.Errorf("config key %q missing", key)
	}
	return v, nil
}

// StringOr returns the value or def when the key is missing.
func (p *Properties) StringOr(key, def string) string {
	if v, ok := p.m[key]; ok {
		return v
	}
	return def
}

// Double parses the value as float64.
func (p *Properties) Double(key string) (float64, error) {
	s, err := p.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("config key %q: %w", key, err)
	}
	return v, nil
}

// DoubleOr parses the value as float64, def when missing.
func (p *Properties) DoubleOr(key string, def float64) (float64, error) {
	if _, ok := p.m[key]; !ok {
		return def, nil
	}
	return p.Double(key)
}

// Long parses the value as int64.
func (p *Properties) Long(key string) (int64, error) {
	s, err := p.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config key %q: %w", key, err)
	}
	return v, nil
}

// LongOr parses the value as int64, def when missing.
func (p *Properties) LongOr(key string, def int64) (int64, error) {
	if _, ok := p.m[key]; !ok {
		return def, nil
	}
	return p.Long(key)
}

// Bool parses the value as bool, def when missing.
func (p *Properties) BoolOr(key string, def bool) (bool, error) {
	s, ok := p.m[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("config key %q: %w", key, err)
	}
	return v, nil
}

// Doubles parses a comma-separated float list.
func (p *Properties) Doubles(key string) ([]float64, error) {
	s, err := p.String(key)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Longs parses a comma-separated integer list.
func (p *Properties) Longs(key string) ([]int64, error) {
	s, err := p.String(key)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", key, err)
		}
		out = append(out, v)
	}
	return out, nil
}
