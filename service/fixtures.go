package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SachinGupta0206/saas-contracts-dashboard/config"
	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
)

// Fixture resource names, shared by every provider.
const (
	ContractsFixture       = "contracts.json"
	ContractDetailsFixture = "contract-details.json"
)

// ErrFixtureStatus is returned when a fixture endpoint answers with a non-2xx status.
var ErrFixtureStatus = errors.New("unexpected fixture response status")

// FixtureProvider is the read-only source of contract data.
type FixtureProvider interface {
	Contracts(ctx context.Context) ([]model.ContractSummary, error)
	ContractDetails(ctx context.Context) (map[string]model.ContractDetail, error)
}

// NewFixtureProvider builds the provider selected by cfg.Fixtures.Source.
func NewFixtureProvider(cfg *config.Config) (FixtureProvider, error) {
	switch cfg.Fixtures.Source {
	case config.SourceFile:
		return NewFileFixtures(cfg.Fixtures.Dir), nil
	case config.SourceHTTP:
		return NewHTTPFixtures(cfg.Fixtures.BaseURL, time.Duration(cfg.Fixtures.TimeoutSeconds)*time.Second), nil
	case config.SourceMinio:
		return NewMinioFixtures(&cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown fixture source %q", cfg.Fixtures.Source)
	}
}

func decodeFixture[T any](r io.Reader, name string) (T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}

// FileFixtures reads fixtures from a local directory on every call.
type FileFixtures struct {
	dir string
}

func NewFileFixtures(dir string) *FileFixtures {
	return &FileFixtures{dir: dir}
}

func (f *FileFixtures) Contracts(ctx context.Context) ([]model.ContractSummary, error) {
	return readFileFixture[[]model.ContractSummary](ctx, filepath.Join(f.dir, ContractsFixture))
}

func (f *FileFixtures) ContractDetails(ctx context.Context) (map[string]model.ContractDetail, error) {
	return readFileFixture[map[string]model.ContractDetail](ctx, filepath.Join(f.dir, ContractDetailsFixture))
}

func readFileFixture[T any](ctx context.Context, path string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	file, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer file.Close()
	return decodeFixture[T](file, filepath.Base(path))
}

// HTTPFixtures fetches fixtures from a static file server.
type HTTPFixtures struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPFixtures(baseURL string, timeout time.Duration) *HTTPFixtures {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFixtures{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFixtures) Contracts(ctx context.Context) ([]model.ContractSummary, error) {
	return fetchHTTPFixture[[]model.ContractSummary](ctx, f, ContractsFixture)
}

func (f *HTTPFixtures) ContractDetails(ctx context.Context) (map[string]model.ContractDetail, error) {
	return fetchHTTPFixture[map[string]model.ContractDetail](ctx, f, ContractDetailsFixture)
}

func fetchHTTPFixture[T any](ctx context.Context, f *HTTPFixtures, name string) (T, error) {
	var zero T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+name, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zero, fmt.Errorf("%w: %s returned %d", ErrFixtureStatus, name, resp.StatusCode)
	}
	return decodeFixture[T](resp.Body, name)
}
