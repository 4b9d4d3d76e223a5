package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Transactions run one at a time against a private copy of the data that
// replaces the live copy on commit.
type RecordStore struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	st   *recordState
	inTx bool
}

type externalKey struct {
	t      domain.RecordType
	source domain.SourceName
	id     string
}

type recordState struct {
	records        map[string]domain.Record
	externals      map[externalKey]string
	highlights     map[string]domain.Highlight
	highlightByExt map[string]string
}

func newRecordState() *recordState {
	return &recordState{
		records:        make(map[string]domain.Record),
		externals:      make(map[externalKey]string),
		highlights:     make(map[string]domain.Highlight),
		highlightByExt: make(map[string]string),
	}
}

func (st *recordState) clone() *recordState {
	c := newRecordState()
	for id, r := range st.records {
		c.records[id] = r.Clone()
	}
	for k, v := range st.externals {
		c.externals[k] = v
	}
	for id, h := range st.highlights {
		c.highlights[id] = cloneHighlight(h)
	}
	for k, v := range st.highlightByExt {
		c.highlightByExt[k] = v
	}
	return c
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		st:   newRecordState(),
	}
}

// write applies a mutation. Outside a transaction it waits for any running
// transaction to finish first.
func (s *RecordStore) write(fn func(st *recordState) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *RecordStore) read(fn func(st *recordState) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// Atomically runs fn against a private copy of the store.
func (s *RecordStore) Atomically(ctx context.Context, fn func(tx driven.RecordStore) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	view := &RecordStore{mu: &sync.RWMutex{}, txMu: s.txMu, st: snapshot, inTx: true}
	if err := fn(view); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
	return nil
}

// ==================== Records ====================

// GetRecord retrieves a record by ID.
func (s *RecordStore) GetRecord(_ context.Context, id string) (*domain.Record, error) {
	var out domain.Record
	err := s.read(func(st *recordState) error {
		r, ok := st.records[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByExternalID retrieves the record bound to a source identifier.
func (s *RecordStore) FindByExternalID(_ context.Context, t domain.RecordType, source domain.SourceName, externalID string) (*domain.Record, error) {
	var out domain.Record
	err := s.read(func(st *recordState) error {
		id, ok := st.externals[externalKey{t: t, source: source, id: externalID}]
		if !ok {
			return domain.ErrNotFound
		}
		out = st.records[id].Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByIdentity retrieves the oldest record with the identity key.
func (s *RecordStore) FindByIdentity(_ context.Context, t domain.RecordType, scope, key string) (*domain.Record, error) {
	return s.findOldest(func(r *domain.Record) bool {
		return r.Type == t && r.Scope == scope && r.IdentityKey == key
	})
}

// FindByMatchKey retrieves the oldest record with the secondary key.
func (s *RecordStore) FindByMatchKey(_ context.Context, t domain.RecordType, key string) (*domain.Record, error) {
	return s.findOldest(func(r *domain.Record) bool {
		return r.Type == t && r.MatchKey == key
	})
}

func (s *RecordStore) findOldest(match func(r *domain.Record) bool) (*domain.Record, error) {
	var found *domain.Record
	err := s.read(func(st *recordState) error {
		for id := range st.records {
			r := st.records[id]
			if !match(&r) {
				continue
			}
			if found == nil || older(r, *found) {
				c := r.Clone()
				found = &c
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// ListRecords returns all records of a type, oldest first.
func (s *RecordStore) ListRecords(_ context.Context, t domain.RecordType) ([]domain.Record, error) {
	var out []domain.Record
	err := s.read(func(st *recordState) error {
		for _, r := range st.records {
			if r.Type == t {
				out = append(out, r.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return older(out[i], out[j]) })
	return out, err
}

// CreateRecord inserts a new record.
func (s *RecordStore) CreateRecord(_ context.Context, r *domain.Record) error {
	if r == nil || r.ID == "" {
		return domain.ErrInvalidInput
	}
	return s.write(func(st *recordState) error {
		if _, exists := st.records[r.ID]; exists {
			return fmt.Errorf("%w: record %s", domain.ErrAlreadyExists, r.ID)
		}
		if err := st.checkExternals(r); err != nil {
			return err
		}
		st.records[r.ID] = r.Clone()
		st.indexExternals(r)
		return nil
	})
}

// UpdateRecord replaces a stored record.
func (s *RecordStore) UpdateRecord(_ context.Context, r *domain.Record) error {
	if r == nil || r.ID == "" {
		return domain.ErrInvalidInput
	}
	return s.write(func(st *recordState) error {
		old, exists := st.records[r.ID]
		if !exists {
			return domain.ErrNotFound
		}
		if err := st.checkExternals(r); err != nil {
			return err
		}
		st.unindexExternals(&old)
		st.records[r.ID] = r.Clone()
		st.indexExternals(r)
		return nil
	})
}

// DeleteRecord removes a record without highlights.
func (s *RecordStore) DeleteRecord(_ context.Context, id string) error {
	return s.write(func(st *recordState) error {
		r, exists := st.records[id]
		if !exists {
			return domain.ErrNotFound
		}
		for _, h := range st.highlights {
			if h.ParentID == id {
				return fmt.Errorf("%w: record %s has highlights", domain.ErrHasDependents, id)
			}
		}
		st.unindexExternals(&r)
		delete(st.records, id)
		return nil
	})
}

func (st *recordState) checkExternals(r *domain.Record) error {
	for source, ext := range r.ExternalIDs {
		owner, ok := st.externals[externalKey{t: r.Type, source: source, id: ext}]
		if ok && owner != r.ID {
			return fmt.Errorf("%w: %s id %s belongs to %s", domain.ErrAlreadyExists, source, ext, owner)
		}
	}
	return nil
}

func (st *recordState) indexExternals(r *domain.Record) {
	for source, ext := range r.ExternalIDs {
		if ext != "" {
			st.externals[externalKey{t: r.Type, source: source, id: ext}] = r.ID
		}
	}
}

func (st *recordState) unindexExternals(r *domain.Record) {
	for source, ext := range r.ExternalIDs {
		k := externalKey{t: r.Type, source: source, id: ext}
		if st.externals[k] == r.ID {
			delete(st.externals, k)
		}
	}
}

// ==================== Highlights ====================

// GetHighlightByExternalID retrieves a highlight by its source identifier.
func (s *RecordStore) GetHighlightByExternalID(_ context.Context, externalID string) (*domain.Highlight, error) {
	var out domain.Highlight
	err := s.read(func(st *recordState) error {
		id, ok := st.highlightByExt[externalID]
		if !ok {
			return domain.ErrNotFound
		}
		out = cloneHighlight(st.highlights[id])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveHighlight creates or updates a highlight.
func (s *RecordStore) SaveHighlight(_ context.Context, h *domain.Highlight) error {
	if h == nil || h.ID == "" {
		return domain.ErrInvalidInput
	}
	return s.write(func(st *recordState) error {
		if h.ParentID != "" {
			if _, ok := st.records[h.ParentID]; !ok {
				return fmt.Errorf("%w: parent record %s", domain.ErrNotFound, h.ParentID)
			}
		}
		if h.ExternalID != "" {
			if owner, ok := st.highlightByExt[h.ExternalID]; ok && owner != h.ID {
				return fmt.Errorf("%w: highlight %s", domain.ErrAlreadyExists, h.ExternalID)
			}
		}
		if old, ok := st.highlights[h.ID]; ok && old.ExternalID != h.ExternalID {
			delete(st.highlightByExt, old.ExternalID)
		}
		st.highlights[h.ID] = cloneHighlight(*h)
		if h.ExternalID != "" {
			st.highlightByExt[h.ExternalID] = h.ID
		}
		return nil
	})
}

// ListHighlights returns the highlights of a record in reading order.
func (s *RecordStore) ListHighlights(_ context.Context, parentID string) ([]domain.Highlight, error) {
	var out []domain.Highlight
	err := s.read(func(st *recordState) error {
		for _, h := range st.highlights {
			if h.ParentID == parentID {
				out = append(out, cloneHighlight(h))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HighlightedAt.Equal(out[j].HighlightedAt) {
			return out[i].HighlightedAt.Before(out[j].HighlightedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// ReparentHighlights moves every highlight of one record to another.
func (s *RecordStore) ReparentHighlights(_ context.Context, fromID, toID string) (int, error) {
	moved := 0
	err := s.write(func(st *recordState) error {
		to, ok := st.records[toID]
		if !ok {
			return fmt.Errorf("%w: record %s", domain.ErrNotFound, toID)
		}
		for id, h := range st.highlights {
			if h.ParentID != fromID {
				continue
			}
			h.ParentID = toID
			h.ParentType = to.Type
			st.highlights[id] = h
			moved++
		}
		return nil
	})
	return moved, err
}

// CountOrphanHighlights counts highlights whose parent is gone.
func (s *RecordStore) CountOrphanHighlights(_ context.Context) (int, error) {
	n := 0
	err := s.read(func(st *recordState) error {
		for _, h := range st.highlights {
			if h.ParentID == "" {
				continue
			}
			if _, ok := st.records[h.ParentID]; !ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func cloneHighlight(h domain.Highlight) domain.Highlight {
	if h.Tags != nil {
		h.Tags = append([]string(nil), h.Tags...)
	}
	return h
}

func older(a, b domain.Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
