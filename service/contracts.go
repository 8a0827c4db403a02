package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"golang.org/x/sync/singleflight"
)

// FetchError reports a failed fixture retrieval. The store's previous state is
// left untouched when one is returned.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ContractsState is a point-in-time copy of the store for the list view.
type ContractsState struct {
	Contracts []model.ContractSummary `json:"contracts"`
	Loading   bool                    `json:"loading"`
	Error     string                  `json:"error,omitempty"`
	Filters   model.Filters           `json:"filters"`
	Page      int                     `json:"page"`
}

// ContractsStore holds the contract collection, list filters, pagination and
// the upload queue.
type ContractsStore struct {
	fixtures FixtureProvider
	uploads  *UploadQueue
	details  singleflight.Group
	logger   *slog.Logger

	mu        sync.RWMutex
	contracts []model.ContractSummary
	loading   int
	lastErr   string
	filters   model.Filters
	page      int
}

func NewContractsStore(fixtures FixtureProvider, uploads *UploadQueue) *ContractsStore {
	return &ContractsStore{
		fixtures: fixtures,
		uploads:  uploads,
		logger:   slog.Default(),
		page:     1,
	}
}

// ListContracts refreshes the collection from the fixture provider.
func (s *ContractsStore) ListContracts(ctx context.Context) ([]model.ContractSummary, error) {
	s.mu.Lock()
	s.loading++
	s.lastErr = ""
	s.mu.Unlock()

	contracts, err := s.fixtures.Contracts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		fetchErr := &FetchError{Resource: "contracts", Err: err}
		s.lastErr = fetchErr.Error()
		s.logger.Warn("contract list fetch failed", "error", err, "kept", len(s.contracts))
		return nil, fetchErr
	}

	s.contracts = contracts
	return slices.Clone(contracts), nil
}

// GetContractDetail looks up one contract. found is false when the id is not
// in the fixture map; that is not an error.
//
// Concurrent callers share one fetch, which is detached from any single
// caller's cancellation. A caller whose ctx ends stops waiting and gets
// ctx.Err() while the others still receive the result.
func (s *ContractsStore) GetContractDetail(ctx context.Context, id string) (detail model.ContractDetail, found bool, err error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.details.DoChan(ContractDetailsFixture, func() (interface{}, error) {
		return s.fixtures.ContractDetails(fetchCtx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return model.ContractDetail{}, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.Warn("contract detail fetch failed", "contract_id", id, "error", res.Err)
		return model.ContractDetail{}, false, &FetchError{Resource: "contract details", Err: res.Err}
	}

	detail, found = res.Val.(map[string]model.ContractDetail)[id]
	return detail, found, nil
}

// SetFilters merges a partial filter update and returns the result.
func (s *ContractsStore) SetFilters(patch model.FilterPatch) model.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = s.filters.Apply(patch)
	return s.filters
}

func (s *ContractsStore) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = n
}

func (s *ContractsStore) Snapshot() ContractsState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ContractsState{
		Contracts: slices.Clone(s.contracts),
		Loading:   s.loading > 0,
		Error:     s.lastErr,
		Filters:   s.filters,
		Page:      s.page,
	}
}

// UploadFiles hands a batch to the upload queue; see UploadQueue.Submit.
func (s *ContractsStore) UploadFiles(files []model.FileCandidate) []model.UploadRecord {
	return s.uploads.Submit(files)
}

func (s *ContractsStore) ClearUploadedFiles() {
	s.uploads.Clear()
}

func (s *ContractsStore) Uploads() model.UploadSnapshot {
	return s.uploads.Snapshot()
}

func (s *ContractsStore) SubscribeUploads() (<-chan model.UploadSnapshot, func()) {
	return s.uploads.Subscribe()
}

// WaitUploads blocks until in-flight upload batches finish or ctx is done.
func (s *ContractsStore) WaitUploads(ctx context.Context) error {
	return s.uploads.Wait(ctx)
}

// Page returns the filtered contracts for the current page, the number of
// matches, and the page actually served (clamped to the available range).
func (s *ContractsStore) Page(pageSize int) (items []model.ContractSummary, total int, page int) {
	state := s.Snapshot()

	var matched []model.ContractSummary
	for _, c := range state.Contracts {
		if state.Filters.Match(c) {
			matched = append(matched, c)
		}
	}

	page = state.Page
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return matched, len(matched), page
	}
	lastPage := (len(matched) + pageSize - 1) / pageSize
	if lastPage == 0 {
		lastPage = 1
	}
	if page > lastPage {
		page = lastPage
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(matched))
	return matched[start:end], len(matched), page
}
