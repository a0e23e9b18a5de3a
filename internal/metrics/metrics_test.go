package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

// install swaps in a fresh fake for the duration of the test. Tests using it
// must not run in parallel.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := current()
	t.Cleanup(func() { SetBackend(orig) })
	fb := &fakeBackend{}
	SetBackend(fb)
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("run1", "config", nil, 2*time.Second)
	RecordStep("run2", "fileset", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 || len(fb.callsHistograms) != 2 {
		t.Fatalf("calls: counters=%d histograms=%d, want 2/2", len(fb.callsCounters), len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	if cc0.labels["job"] != "run1" || cc0.labels["step"] != "config" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", cc0.labels)
	}
	h0 := fb.callsHistograms[0]
	if h0.name != StepDuration || h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0] = %#v; want %s ~2.0", h0, StepDuration)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want failure", cc1.labels["status"])
	}
	if h1 := fb.callsHistograms[1]; h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestStep_ReturnsError(t *testing.T) {
	fb := install(t)

	want := errors.New("assemble failed")
	if err := Step("run", "assemble", func() error { return want }); err != want {
		t.Fatalf("Step err = %v; want %v", err, want)
	}
	if len(fb.callsCounters) != 1 || fb.callsCounters[0].labels["status"] != "failure" {
		t.Fatalf("counters = %#v", fb.callsCounters)
	}
}

func TestRecordRowAndBatches(t *testing.T) {
	fb := install(t)

	RecordRow("run", RowsRead, 3)
	RecordRow("run", RowsDiscarded, 0) // ignored
	RecordRow("run", RowsWritten, 2)
	RecordBatches("run", 4)

	want := []counterCall{
		{RowsTotal, 3, Labels{"job": "run", "kind": RowsRead}},
		{RowsTotal, 2, Labels{"job": "run", "kind": RowsWritten}},
		{BatchesTotal, 4, Labels{"job": "run"}},
	}
	if len(fb.callsCounters) != len(want) {
		t.Fatalf("expected %d counter calls, got %d", len(want), len(fb.callsCounters))
	}
	for i, w := range want {
		got := fb.callsCounters[i]
		if got.name != w.name || got.delta != w.delta || len(got.labels) != len(w.labels) {
			t.Fatalf("counter[%d] = %#v; want %#v", i, got, w)
		}
		for k, v := range w.labels {
			if got.labels[k] != v {
				t.Fatalf("counter[%d].labels[%s]=%q; want %q", i, k, got.labels[k], v)
			}
		}
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if current() != Backend(fb) {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	SetBackend(nil)
	if current() != Backend(fb) {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
