package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/SachinGupta0206/saas-contracts-dashboard/config"
	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/SachinGupta0206/saas-contracts-dashboard/pkg/logger"
	"github.com/google/uuid"
)

// Simulator decides how long a simulated transfer takes and how it ends.
type Simulator interface {
	TransferDelay() time.Duration
	Outcome() model.UploadStatus
}

// RandomSimulator draws uniform delays in [min, max) and succeeds with a fixed probability.
type RandomSimulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	minDelay    time.Duration
	maxDelay    time.Duration
	successRate float64
}

func NewRandomSimulator(cfg *config.UploadConfig) *RandomSimulator {
	return newRandomSimulator(cfg, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewSeededSimulator returns a simulator with a reproducible stream.
func NewSeededSimulator(cfg *config.UploadConfig, seed uint64) *RandomSimulator {
	return newRandomSimulator(cfg, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func newRandomSimulator(cfg *config.UploadConfig, rng *rand.Rand) *RandomSimulator {
	return &RandomSimulator{
		rng:         rng,
		minDelay:    time.Duration(cfg.MinDelayMs) * time.Millisecond,
		maxDelay:    time.Duration(cfg.MaxDelayMs) * time.Millisecond,
		successRate: cfg.SuccessRate,
	}
}

func (r *RandomSimulator) TransferDelay() time.Duration {
	span := r.maxDelay - r.minDelay
	if span <= 0 {
		return r.minDelay
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minDelay + time.Duration(r.rng.Int64N(int64(span)))
}

func (r *RandomSimulator) Outcome() model.UploadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() < r.successRate {
		return model.UploadSuccess
	}
	return model.UploadError
}

// AcceptFiles keeps the candidates whose name ends with one of the allowed
// extensions, compared case-insensitively.
func AcceptFiles(files []model.FileCandidate, allowed []string) []model.FileCandidate {
	var accepted []model.FileCandidate
	for _, f := range files {
		name := strings.ToLower(f.Name)
		for _, ext := range allowed {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				accepted = append(accepted, f)
				break
			}
		}
	}
	return accepted
}

// UploadQueue simulates uploads. Each submitted batch runs in its own goroutine
// and resolves its records one at a time in submission order; separate batches
// run independently and may interleave.
type UploadQueue struct {
	allowed []string
	sim     Simulator
	sleep   func(time.Duration)
	logger  *slog.Logger

	mu       sync.Mutex
	records  []model.UploadRecord
	active   int
	subs     map[int]chan model.UploadSnapshot
	nextSub  int
	inflight sync.WaitGroup
}

func NewUploadQueue(sim Simulator, allowed []string) *UploadQueue {
	if len(allowed) == 0 {
		allowed = config.DefaultAllowedExtensions
	}
	return &UploadQueue{
		allowed: allowed,
		sim:     sim,
		sleep:   time.Sleep,
		logger:  slog.Default(),
		subs:    make(map[int]chan model.UploadSnapshot),
	}
}

// Submit validates files, enqueues the accepted ones in uploading status and
// starts their transfer in the background. It returns the new records, or nil
// when nothing was accepted.
func (q *UploadQueue) Submit(files []model.FileCandidate) []model.UploadRecord {
	accepted := AcceptFiles(files, q.allowed)
	if len(accepted) == 0 {
		return nil
	}

	batch := make([]model.UploadRecord, len(accepted))
	for i, f := range accepted {
		batch[i] = model.UploadRecord{
			ID:     uuid.New().String(),
			Name:   f.Name,
			Size:   f.Size,
			Status: model.UploadUploading,
		}
	}

	q.mu.Lock()
	q.records = append(q.records, batch...)
	q.active++
	q.inflight.Add(1)
	q.publishLocked()
	q.mu.Unlock()

	batchID := uuid.New().String()
	ctx := context.WithValue(context.Background(), logger.BatchIDKey, batchID)
	logger.From(ctx, q.logger).Info("upload batch started", "files", len(batch), "rejected", len(files)-len(batch))

	ids := make([]string, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
	}
	go q.run(ctx, ids)

	return append([]model.UploadRecord(nil), batch...)
}

func (q *UploadQueue) run(ctx context.Context, ids []string) {
	defer q.inflight.Done()
	log := logger.From(ctx, q.logger)

	var succeeded, failed, dropped int
	for _, id := range ids {
		q.sleep(q.sim.TransferDelay())
		status := q.sim.Outcome()
		if !q.resolve(id, status) {
			dropped++
			continue
		}
		if status == model.UploadSuccess {
			succeeded++
		} else {
			failed++
		}
		log.Debug("upload resolved", "upload_id", id, "status", status.String())
	}

	q.mu.Lock()
	q.active--
	q.publishLocked()
	q.mu.Unlock()

	log.Info("upload batch finished", "success", succeeded, "error", failed, "cleared", dropped)
}

// resolve sets the status of one record. Records removed by Clear are ignored.
func (q *UploadQueue) resolve(id string, status model.UploadStatus) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.records {
		if q.records[i].ID == id {
			q.records[i].Status = status
			q.publishLocked()
			return true
		}
	}
	return false
}

// Clear discards every record, including those still in flight.
func (q *UploadQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = nil
	q.publishLocked()
}

// Snapshot returns a copy of the current state.
func (q *UploadQueue) Snapshot() model.UploadSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *UploadQueue) snapshotLocked() model.UploadSnapshot {
	files := make([]model.UploadRecord, len(q.records))
	copy(files, q.records)
	return model.UploadSnapshot{Uploading: q.active > 0, Files: files}
}

// Subscribe delivers a snapshot after every change, starting with the current
// one. A slow reader only ever sees the most recent snapshot.
func (q *UploadQueue) Subscribe() (<-chan model.UploadSnapshot, func()) {
	ch := make(chan model.UploadSnapshot, 1)

	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	ch <- q.snapshotLocked()
	q.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			close(ch)
			q.mu.Unlock()
		})
	}
}

// publishLocked must be called with q.mu held.
func (q *UploadQueue) publishLocked() {
	if len(q.subs) == 0 {
		return
	}
	snap := q.snapshotLocked()
	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Wait blocks until every in-flight batch has finished or ctx is done.
func (q *UploadQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
