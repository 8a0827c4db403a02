package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/SachinGupta0206/saas-contracts-dashboard/config"
	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
)

// scriptedSimulator returns zero delays and replays outcomes in order, then succeeds.
type scriptedSimulator struct {
	mu       sync.Mutex
	outcomes []model.UploadStatus
}

func (s *scriptedSimulator) TransferDelay() time.Duration { return 0 }

func (s *scriptedSimulator) Outcome() model.UploadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outcomes) == 0 {
		return model.UploadSuccess
	}
	next := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return next
}

// gate blocks every simulated transfer until the test releases it.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 64), release: make(chan struct{})}
}

func (g *gate) sleep(time.Duration) {
	g.started <- struct{}{}
	<-g.release
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a transfer to start")
	}
}

func (g *gate) step() {
	g.release <- struct{}{}
}

func newTestQueue(sim Simulator) *UploadQueue {
	q := NewUploadQueue(sim, nil)
	q.sleep = func(time.Duration) {}
	return q
}

func waitUploads(t *testing.T, q *UploadQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Uploads did not finish: %v", err)
	}
}

func files(names ...string) []model.FileCandidate {
	out := make([]model.FileCandidate, len(names))
	for i, n := range names {
		out[i] = model.FileCandidate{Name: n, Size: int64(100 * (i + 1))}
	}
	return out
}

func TestAcceptFiles(t *testing.T) {
	in := files("a.pdf", "b.PDF", "c.doc", "d.Docx", "e.txt", "f.png", "g.pdf.exe", "pdf", "h.docx.txt", "")
	got := AcceptFiles(in, config.DefaultAllowedExtensions)

	want := []string{"a.pdf", "b.PDF", "c.doc", "d.Docx", "e.txt", "h.docx.txt"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d accepted files, got %d: %+v", len(want), len(got), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Expected accepted[%d] = %s, got %s", i, name, got[i].Name)
		}
	}
}

func TestSubmitDropsInvalidFiles(t *testing.T) {
	q := newTestQueue(&scriptedSimulator{})

	records := q.Submit(files("contract.pdf", "photo.jpg", "notes.TXT", "archive.zip"))
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	waitUploads(t, q)

	snap := q.Snapshot()
	if len(snap.Files) != 2 {
		t.Fatalf("Expected 2 records in snapshot, got %d", len(snap.Files))
	}
	for _, rec := range snap.Files {
		if rec.Name == "photo.jpg" || rec.Name == "archive.zip" {
			t.Errorf("Rejected file %s entered the queue", rec.Name)
		}
	}
}

func TestSubmitEmptyBatchDoesNothing(t *testing.T) {
	q := newTestQueue(&scriptedSimulator{})

	if records := q.Submit(files("a.png", "b.exe")); records != nil {
		t.Errorf("Expected nil records, got %+v", records)
	}
	if records := q.Submit(nil); records != nil {
		t.Errorf("Expected nil records for empty batch, got %+v", records)
	}

	snap := q.Snapshot()
	if snap.Uploading {
		t.Error("Expected uploading flag to stay unset")
	}
	if len(snap.Files) != 0 {
		t.Errorf("Expected no records, got %d", len(snap.Files))
	}
}

func TestSubmitRecordsStartUploading(t *testing.T) {
	g := newGate()
	q := newTestQueue(&scriptedSimulator{})
	q.sleep = g.sleep

	records := q.Submit(files("a.pdf", "b.pdf"))
	for _, rec := range records {
		if rec.Status != model.UploadUploading {
			t.Errorf("Expected record %s to start uploading, got %s", rec.Name, rec.Status)
		}
	}

	g.waitStarted(t)
	snap := q.Snapshot()
	if !snap.Uploading {
		t.Error("Expected uploading flag while batch is in flight")
	}
	if snap.Files[0].Size != 100 || snap.Files[1].Size != 200 {
		t.Errorf("Expected sizes to be carried over, got %+v", snap.Files)
	}

	g.step()
	g.waitStarted(t)
	g.step()
	waitUploads(t, q)

	if q.Snapshot().Uploading {
		t.Error("Expected uploading flag to clear after the batch")
	}
}

func TestUploadIDsAreUnique(t *testing.T) {
	q := newTestQueue(&scriptedSimulator{})

	seen := make(map[string]bool)
	for batch := 0; batch < 20; batch++ {
		for _, rec := range q.Submit(files("same.pdf", "same.pdf", "same.pdf")) {
			if seen[rec.ID] {
				t.Fatalf("Duplicate upload id %s", rec.ID)
			}
			seen[rec.ID] = true
		}
	}
	waitUploads(t, q)

	if len(seen) != 60 {
		t.Errorf("Expected 60 ids, got %d", len(seen))
	}
	if got := len(q.Snapshot().Files); got != 60 {
		t.Errorf("Expected batches to accumulate to 60 records, got %d", got)
	}
}

func TestBatchResolvesInSubmissionOrder(t *testing.T) {
	g := newGate()
	q := newTestQueue(&scriptedSimulator{outcomes: []model.UploadStatus{model.UploadSuccess, model.UploadError, model.UploadSuccess}})
	q.sleep = g.sleep

	records := q.Submit(files("1.pdf", "2.pdf", "3.pdf"))

	for i := range records {
		g.waitStarted(t)

		// While record i waits, everything after it is still uploading and
		// everything before it is already terminal.
		snap := q.Snapshot()
		for j, rec := range snap.Files {
			switch {
			case j < i && !rec.Status.Terminal():
				t.Errorf("Record %d should be resolved before record %d starts", j, i)
			case j >= i && rec.Status != model.UploadUploading:
				t.Errorf("Record %d resolved before its turn: %s", j, rec.Status)
			}
		}

		select {
		case <-g.started:
			t.Fatalf("Record %d started before record %d resolved", i+1, i)
		default:
		}
		g.step()
	}
	waitUploads(t, q)

	want := []model.UploadStatus{model.UploadSuccess, model.UploadError, model.UploadSuccess}
	for i, rec := range q.Snapshot().Files {
		if rec.Status != want[i] {
			t.Errorf("Expected record %d to be %s, got %s", i, want[i], rec.Status)
		}
	}
}

func TestResolveLeavesOtherRecordsUntouched(t *testing.T) {
	q := newTestQueue(&scriptedSimulator{outcomes: []model.UploadStatus{model.UploadError}})

	q.Submit(files("first.pdf"))
	waitUploads(t, q)

	g := newGate()
	q.sleep = g.sleep
	q.Submit(files("second.pdf"))
	g.waitStarted(t)

	snap := q.Snapshot()
	if snap.Files[0].Status != model.UploadError {
		t.Errorf("Expected first record to keep error status, got %s", snap.Files[0].Status)
	}
	g.step()
	waitUploads(t, q)

	snap = q.Snapshot()
	if snap.Files[0].Status != model.UploadError || snap.Files[1].Status != model.UploadSuccess {
		t.Errorf("Unexpected statuses after second batch: %+v", snap.Files)
	}
}

func TestClearIgnoresLateResolutions(t *testing.T) {
	g := newGate()
	q := newTestQueue(&scriptedSimulator{})
	q.sleep = g.sleep

	q.Submit(files("a.pdf", "b.pdf"))
	g.waitStarted(t)

	q.Clear()
	if n := len(q.Snapshot().Files); n != 0 {
		t.Fatalf("Expected empty collection after clear, got %d", n)
	}

	g.step()
	g.waitStarted(t)
	g.step()
	waitUploads(t, q)

	snap := q.Snapshot()
	if len(snap.Files) != 0 {
		t.Errorf("Expected cleared records to stay gone, got %+v", snap.Files)
	}
	if snap.Uploading {
		t.Error("Expected uploading flag to clear once the batch drained")
	}
}

func TestConcurrentBatchesKeepFlagUntilLastFinishes(t *testing.T) {
	first := newGate()
	q := newTestQueue(&scriptedSimulator{})

	// Route each batch to its own gate by submission order.
	var mu sync.Mutex
	second := newGate()
	calls := 0
	q.sleep = func(d time.Duration) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			first.sleep(d)
			return
		}
		second.sleep(d)
	}

	q.Submit(files("slow.pdf"))
	first.waitStarted(t)
	q.Submit(files("fast.pdf"))
	second.waitStarted(t)

	second.step()
	deadline := time.Now().Add(2 * time.Second)
	for q.Snapshot().Files[1].Status == model.UploadUploading {
		if time.Now().After(deadline) {
			t.Fatal("Second batch did not resolve")
		}
		time.Sleep(time.Millisecond)
	}

	snap := q.Snapshot()
	if snap.Files[0].Status != model.UploadUploading {
		t.Errorf("Expected first batch to still be uploading, got %s", snap.Files[0].Status)
	}
	if !snap.Uploading {
		t.Error("Expected uploading flag while the first batch is in flight")
	}

	first.step()
	waitUploads(t, q)
	if q.Snapshot().Uploading {
		t.Error("Expected uploading flag to clear after both batches")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	g := newGate()
	q := newTestQueue(&scriptedSimulator{outcomes: []model.UploadStatus{model.UploadError}})
	q.sleep = g.sleep

	ch, cancel := q.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.Uploading || len(initial.Files) != 0 {
		t.Errorf("Expected empty initial snapshot, got %+v", initial)
	}

	q.Submit(files("a.pdf"))
	g.waitStarted(t)
	g.step()
	waitUploads(t, q)

	// Only the latest snapshot is retained for a slow reader.
	select {
	case snap := <-ch:
		if snap.Uploading {
			t.Error("Expected final snapshot to have uploading unset")
		}
		if len(snap.Files) != 1 || snap.Files[0].Status != model.UploadError {
			t.Errorf("Unexpected final snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a snapshot after the batch finished")
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	q := newTestQueue(&scriptedSimulator{})
	ch, cancel := q.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed")
	}
	q.Submit(files("a.pdf"))
	waitUploads(t, q)
}

func TestWaitHonoursContext(t *testing.T) {
	g := newGate()
	q := newTestQueue(&scriptedSimulator{})
	q.sleep = g.sleep

	q.Submit(files("a.pdf"))
	g.waitStarted(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); err == nil {
		t.Error("Expected Wait to time out while a batch is blocked")
	}

	g.step()
	waitUploads(t, q)
}

func TestRandomSimulatorDelayBounds(t *testing.T) {
	sim := NewSeededSimulator(&config.UploadConfig{MinDelayMs: 2000, MaxDelayMs: 5000, SuccessRate: 0.9}, 7)
	for i := 0; i < 1000; i++ {
		d := sim.TransferDelay()
		if d < 2000*time.Millisecond || d >= 5000*time.Millisecond {
			t.Fatalf("Delay %v outside [2s, 5s)", d)
		}
	}

	fixed := NewSeededSimulator(&config.UploadConfig{MinDelayMs: 5, MaxDelayMs: 5}, 1)
	if d := fixed.TransferDelay(); d != 5*time.Millisecond {
		t.Errorf("Expected fixed 5ms delay, got %v", d)
	}
}

func TestRandomSimulatorOutcomeDistribution(t *testing.T) {
	const trials = 10000
	sim := NewSeededSimulator(&config.UploadConfig{MinDelayMs: 0, MaxDelayMs: 0, SuccessRate: 0.9}, 42)

	success := 0
	for i := 0; i < trials; i++ {
		switch sim.Outcome() {
		case model.UploadSuccess:
			success++
		case model.UploadError:
		default:
			t.Fatal("Outcome must be terminal")
		}
	}

	// Five standard deviations of a binomial(10000, 0.9).
	tolerance := 5 * math.Sqrt(trials*0.9*0.1)
	if diff := math.Abs(float64(success) - trials*0.9); diff > tolerance {
		t.Errorf("Expected ~%d successes, got %d", int(trials*0.9), success)
	}
}

func TestPipelineOutcomeDistribution(t *testing.T) {
	sim := NewSeededSimulator(&config.UploadConfig{SuccessRate: 0.9}, 99)
	q := newTestQueue(sim)

	names := make([]string, 2000)
	for i := range names {
		names[i] = fmt.Sprintf("doc-%d.pdf", i)
	}
	q.Submit(files(names...))
	waitUploads(t, q)

	var success, failed int
	for _, rec := range q.Snapshot().Files {
		switch rec.Status {
		case model.UploadSuccess:
			success++
		case model.UploadError:
			failed++
		default:
			t.Fatalf("Record %s not terminal: %s", rec.Name, rec.Status)
		}
	}
	if success+failed != 2000 {
		t.Fatalf("Expected 2000 terminal records, got %d", success+failed)
	}
	if ratio := float64(success) / 2000; ratio < 0.86 || ratio > 0.94 {
		t.Errorf("Expected success ratio near 0.9, got %.3f", ratio)
	}
}
