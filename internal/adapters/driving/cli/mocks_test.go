package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/shelfsync/internal/config"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// mockReconciler implements driving.ReconcileService for testing.
type mockReconciler struct {
	mu sync.Mutex

	syncResult domain.SyncResult
	syncErr    error
	allResults []domain.SyncResult
	allErr     error
	groups     []domain.DuplicateGroup
	merge      domain.MergeResult
	mergeErr   error

	syncCalls  int
	lastSource domain.SourceName
	lastOpts   domain.SyncOptions
	lastType   domain.RecordType
}

func (m *mockReconciler) RunSync(_ context.Context, source domain.SourceName, opts domain.SyncOptions) (domain.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncCalls++
	m.lastSource = source
	m.lastOpts = opts
	if m.syncErr != nil {
		return domain.SyncResult{}, m.syncErr
	}
	r := m.syncResult
	r.Source = source
	return r, nil
}

func (m *mockReconciler) RunSyncAll(_ context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOpts = opts
	return m.allResults, m.allErr
}

func (m *mockReconciler) PreviewDuplicates(_ context.Context, t domain.RecordType) ([]domain.DuplicateGroup, error) {
	m.lastType = t
	return m.groups, nil
}

func (m *mockReconciler) RunMerge(_ context.Context, t domain.RecordType) (domain.MergeResult, error) {
	m.lastType = t
	return m.merge, m.mergeErr
}

func (m *mockReconciler) ConfiguredSources() []domain.SourceName {
	return domain.SourceNames()
}

// mockRecords implements driving.RecordService for testing.
type mockRecords struct {
	records    map[string]domain.Record
	highlights map[string][]domain.Highlight
	added      []domain.Record
	deleted    []string
	deleteErr  error
}

func newMockRecords() *mockRecords {
	return &mockRecords{
		records:    make(map[string]domain.Record),
		highlights: make(map[string][]domain.Highlight),
	}
}

func (m *mockRecords) Add(_ context.Context, r domain.Record) (*domain.Record, error) {
	if r.Title == "" {
		return nil, domain.ErrInvalidInput
	}
	r.ID = "rec-new"
	m.added = append(m.added, r)
	return &r, nil
}

func (m *mockRecords) Get(_ context.Context, id string) (*domain.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockRecords) List(_ context.Context, t domain.RecordType) ([]domain.Record, error) {
	var out []domain.Record
	for _, r := range m.records {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecords) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRecords) Highlights(_ context.Context, id string) ([]domain.Highlight, error) {
	return m.highlights[id], nil
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	tasks    []domain.ScheduledTask
	startErr error
	started  bool
	stopped  bool
}

func (m *mockScheduler) Start(_ context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	reconcile *mockReconciler
	records   *mockRecords
	scheduler *mockScheduler
	store     *file.ConfigStore
}

// setupTestServices swaps the package services for mocks and resets flags.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	svc := &testServices{
		reconcile: &mockReconciler{},
		records:   newMockRecords(),
		scheduler: &mockScheduler{},
		store:     store,
	}

	oldBootstrap, oldReconcile, oldRecords := bootstrap, reconcileService, recordService
	oldScheduler, oldStore, oldConfig := scheduler, configStore, runtimeConfig

	bootstrap = nil
	reconcileService = svc.reconcile
	recordService = svc.records
	scheduler = svc.scheduler
	configStore = store
	cfg := config.Default(t.TempDir())
	runtimeConfig = &cfg
	resetFlags()

	t.Cleanup(func() {
		bootstrap, reconcileService, recordService = oldBootstrap, oldReconcile, oldRecords
		scheduler, configStore, runtimeConfig = oldScheduler, oldStore, oldConfig
		resetFlags()
	})
	return svc
}

func resetFlags() {
	opts = Options{}
	syncScope, syncSince, syncWatch = "", "", false
	addTitle, addLink, addAuthor, addISBN = "", "", "", ""
	addVault, addSlug, addStatus, addBodyFile = "", "", "", ""
	addTags = nil
	addWords = 0
	showSecrets = false
}

// execute runs the root command with args and returns everything it printed.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

var errBoom = errors.New("boom")
