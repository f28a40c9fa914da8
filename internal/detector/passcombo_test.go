package detector

import (
	"testing"

	"github.com/pable/go-pitch-stream/internal/element"
	"github.com/pable/go-pitch-stream/internal/geometry"
)

func newCombo(t *testing.T) (*fixture, *PassComboDetector) {
	t.Helper()
	f := newFixture(t)
	d := NewPassComboDetector(f.b, f.shared, PassComboConfig{MaxTimeBetweenPasses: 10000, HistoryLength: 10})
	// Consume the one-time zeroed statistics burst; no pass exists yet.
	out, err := d.Process(passEvent(0, "p1", "p2"))
	if err != nil {
		t.Fatalf("initial Process: %v", err)
	}
	if len(out) != len(Items(f.shared.Cohort)) {
		t.Fatalf("initial burst has %d elements, want %d", len(out), len(Items(f.shared.Cohort)))
	}
	return f, d
}

func passEvent(ts int64, kicker, receiver string) *element.Element {
	return element.NewSuccessfulPass(testMatch, ts, kicker, receiver, "home",
		geometry.Vec3{}, geometry.Vec3{X: 5}, element.PassOutcome{}, 0)
}

// addPass mimics the store module that prepends each successful pass to the
// histories before the detector sees the event.
func addPass(d *PassComboDetector, ts int64, kicker, receiver string) {
	tss, team, k, r := d.Histories()
	tss.AddKey(testMatch, innerAll, ts)
	team.AddKey(testMatch, innerAll, "home")
	k.AddKey(testMatch, innerAll, kicker)
	r.AddKey(testMatch, innerAll, receiver)
}

func process(t *testing.T, d *PassComboDetector, ts int64, kicker, receiver string) []*element.Element {
	t.Helper()
	addPass(d, ts, kicker, receiver)
	out, err := d.Process(passEvent(ts, kicker, receiver))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return out
}

func TestPassSequenceAndDoublePass(t *testing.T) {
	_, d := newCombo(t)

	// A single pass is no sequence yet.
	if out := process(t, d, 1000, "p1", "p2"); len(out) != 0 {
		t.Fatalf("single pass emitted %v", streamsOf(out))
	}

	// The return pass p2 -> p1 completes a length-2 sequence and the strict
	// A-B-A double pass.
	out := process(t, d, 2000, "p2", "p1")
	seqs := onlyStream(out, element.StreamPassSequenceEvent)
	if len(seqs) != 1 {
		t.Fatalf("emitted %v, want a sequence event", streamsOf(out))
	}
	if n, _ := seqs[0].Long("length"); n != 2 {
		t.Errorf("sequence length = %v, want 2", n)
	}
	if first, _ := seqs[0].Long("firstTs"); first != 1000 {
		t.Errorf("firstTs = %v, want 1000", first)
	}
	wantPlayers := []string{"p1", "p2", "p1"}
	if len(seqs[0].ObjectIDs) != len(wantPlayers) {
		t.Fatalf("participants = %v, want %v", seqs[0].ObjectIDs, wantPlayers)
	}
	for i, id := range wantPlayers {
		if seqs[0].ObjectIDs[i] != id {
			t.Errorf("participant[%d] = %q, want %q", i, seqs[0].ObjectIDs[i], id)
		}
	}

	doubles := onlyStream(out, element.StreamDoublePassEvent)
	if len(doubles) != 1 {
		t.Fatalf("emitted %v, want a double pass", streamsOf(out))
	}
	if doubles[0].ObjectIDs[0] != "p1" || doubles[0].ObjectIDs[1] != "p2" {
		t.Errorf("double pass players = %v, want [p1 p2]", doubles[0].ObjectIDs)
	}

	// Statistics for the team and both distinct players.
	stats := onlyStream(out, element.StreamPassSequenceStats)
	if len(stats) != 3 {
		t.Fatalf("want 3 statistics elements, got %v", streamsOf(out))
	}
	if n, _ := stats[0].Long("numPassSequences"); n != 1 {
		t.Errorf("team sequences = %v", n)
	}
	if n, _ := stats[0].Long("numDoublePasses"); n != 1 {
		t.Errorf("team double passes = %v", n)
	}
}

func TestGrowingSequenceCountsOnce(t *testing.T) {
	_, d := newCombo(t)
	process(t, d, 1000, "p1", "p2")
	process(t, d, 2000, "p2", "p1")

	out := process(t, d, 3000, "p1", "p2")
	seqs := onlyStream(out, element.StreamPassSequenceEvent)
	if n, _ := seqs[0].Long("length"); n != 3 {
		t.Fatalf("sequence length = %v, want 3", n)
	}
	if first, _ := seqs[0].Long("firstTs"); first != 1000 {
		t.Errorf("a grown sequence keeps its first timestamp, got %v", first)
	}
	// Three passes is no longer the A-B-A shape.
	if len(onlyStream(out, element.StreamDoublePassEvent)) != 0 {
		t.Error("length-3 sequence must not report a double pass")
	}

	stats := onlyStream(out, element.StreamPassSequenceStats)
	if n, _ := stats[0].Long("numPassSequences"); n != 1 {
		t.Errorf("a grown sequence is still one sequence, got %v", n)
	}
	if n, _ := stats[0].Long("sumPassSequenceLength"); n != 3 {
		t.Errorf("sum length = %v, want 3 (only the delta added)", n)
	}
	if n, _ := stats[0].Long("maxPassSequenceLength"); n != 3 {
		t.Errorf("max length = %v, want 3", n)
	}
}

func TestInterceptionBreaksSequence(t *testing.T) {
	_, d := newCombo(t)
	process(t, d, 1000, "p1", "p2")
	process(t, d, 2000, "p2", "p1")

	// An interception after the last pass severs the chain.
	d.interceptionTs.PutKey(testMatch, innerAll, 2500)
	if out := process(t, d, 3000, "p1", "p2"); len(out) != 0 {
		t.Fatalf("broken chain emitted %v", streamsOf(out))
	}

	// The next uninterrupted pair is a fresh sequence with a new first
	// timestamp, so it counts as a second sequence.
	out := process(t, d, 3400, "p2", "p1")
	seqs := onlyStream(out, element.StreamPassSequenceEvent)
	if len(seqs) != 1 {
		t.Fatalf("emitted %v", streamsOf(out))
	}
	if first, _ := seqs[0].Long("firstTs"); first != 3000 {
		t.Errorf("firstTs = %v, want 3000", first)
	}
	stats := onlyStream(out, element.StreamPassSequenceStats)
	if n, _ := stats[0].Long("numPassSequences"); n != 2 {
		t.Errorf("team sequences = %v, want 2", n)
	}
}
