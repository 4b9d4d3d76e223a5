package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driving"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// Ensure ReconcileService implements the interface.
var _ driving.ReconcileService = (*ReconcileService)(nil)

// ReconcileService pulls source items into the record store and resolves
// duplicate records.
type ReconcileService struct {
	store   driven.RecordStore
	sources driven.Sources
	limits  Limits
	locks   *typeLocks
	now     func() time.Time
}

// NewReconcileService creates a reconcile service. Nil limits use the defaults.
func NewReconcileService(store driven.RecordStore, sources driven.Sources, limits Limits) *ReconcileService {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &ReconcileService{
		store:   store,
		sources: sources,
		limits:  limits,
		locks:   newTypeLocks(),
		now:     time.Now,
	}
}

// reconcile runs the decision for one item in its own transaction.
func (s *ReconcileService) reconcile(ctx context.Context, in *incoming) (domain.Decision, error) {
	var d domain.Decision
	err := s.store.Atomically(ctx, func(tx driven.RecordStore) error {
		var err error
		d, err = reconcileRecord(ctx, tx, in, s.now())
		return err
	})
	return d, err
}

// ==================== Sync ====================

// ConfiguredSources lists the sources that have an adapter.
func (s *ReconcileService) ConfiguredSources() []domain.SourceName {
	var out []domain.SourceName
	for _, name := range domain.SourceNames() {
		if s.configured(name, "") {
			out = append(out, name)
		}
	}
	return out
}

func (s *ReconcileService) configured(source domain.SourceName, scope string) bool {
	switch source {
	case domain.SourceReader:
		return s.sources.Reader != nil
	case domain.SourceReadwise:
		return s.sources.Export != nil || s.sources.Books != nil
	case domain.SourceVault:
		return len(s.vaultsInScope(scope)) > 0
	case domain.SourceGoodreads:
		return s.sources.Library != nil
	default:
		return false
	}
}

// RunSync pulls every page of one source and reconciles each item.
func (s *ReconcileService) RunSync(ctx context.Context, source domain.SourceName, opts domain.SyncOptions) (domain.SyncResult, error) {
	if _, ok := source.Info(); !ok {
		return domain.SyncResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownSource, source)
	}
	if !s.configured(source, opts.Scope) {
		if opts.Scope != "" {
			return domain.SyncResult{}, fmt.Errorf("%w: %s (scope %q)", domain.ErrSourceNotConfigured, source, opts.Scope)
		}
		return domain.SyncResult{}, fmt.Errorf("%w: %s", domain.ErrSourceNotConfigured, source)
	}

	release, err := s.locks.acquire(ctx, syncLockSet[source]...)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("waiting for %s sync: %w", source, err)
	}
	defer release()

	logger.Section("Syncing %s", source)
	b := newResultBuilder(source, opts.Scope, s.now())

	switch source {
	case domain.SourceReader:
		s.syncReader(ctx, opts, b)
	case domain.SourceReadwise:
		if s.sources.Books != nil {
			s.syncBookList(ctx, b)
		}
		if s.sources.Export != nil {
			s.syncHighlightExport(ctx, opts, b)
		}
	case domain.SourceVault:
		s.syncVaults(ctx, opts, b)
	case domain.SourceGoodreads:
		s.syncLibrary(ctx, b)
	}

	result := b.finish(s.now())
	logger.Info("%s: created=%d updated=%d unchanged=%d skipped=%d failed=%d pages=%d",
		source, result.Created, result.Updated, result.Unchanged, result.Skipped, result.Failed, result.Pages)
	return result, nil
}

// RunSyncAll syncs every configured source concurrently. Sources that share
// a record type still run one after the other.
func (s *ReconcileService) RunSyncAll(ctx context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error) {
	sources := s.ConfiguredSources()
	results := make([]domain.SyncResult, len(sources))
	opts.Scope = ""

	g, gCtx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			r, err := s.RunSync(gCtx, source, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// ==================== Merge ====================

// PreviewDuplicates lists the groups a merge would resolve.
func (s *ReconcileService) PreviewDuplicates(ctx context.Context, t domain.RecordType) ([]domain.DuplicateGroup, error) {
	if err := checkMergeType(t); err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", t, err)
	}
	return FindDuplicates(records), nil
}

// RunMerge resolves every duplicate group of a record type. Each group
// commits in its own transaction; a failed group is reported and the rest
// continue.
func (s *ReconcileService) RunMerge(ctx context.Context, t domain.RecordType) (domain.MergeResult, error) {
	if err := checkMergeType(t); err != nil {
		return domain.MergeResult{}, err
	}

	release, err := s.locks.acquire(ctx, mergeLockSet(t)...)
	if err != nil {
		return domain.MergeResult{}, fmt.Errorf("waiting for %s merge: %w", t, err)
	}
	defer release()

	result := domain.MergeResult{Type: t, StartedAt: s.now()}

	records, err := s.store.ListRecords(ctx, t)
	if err != nil {
		return result, fmt.Errorf("listing %s records: %w", t, err)
	}
	groups := FindDuplicates(records)
	result.GroupCount = len(groups)
	logger.Section("Merging %d %s groups", len(groups), t)

	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		merged, err := s.mergeGroup(ctx, g)
		if err != nil {
			logger.Warn("merge %s: %v", g.Key, err)
			result.Failed = append(result.Failed, domain.MergeFailure{Key: g.Key, Message: err.Error()})
			continue
		}
		result.MergedCount += len(merged.DuplicateIDs)
		result.Groups = append(result.Groups, merged)
	}

	orphans, err := s.store.CountOrphanHighlights(ctx)
	switch {
	case err != nil:
		logger.Warn("merge %s: counting orphaned highlights: %v", t, err)
	case orphans > 0:
		logger.Warn("merge %s: %d highlights point at missing records", t, orphans)
	}
	result.OrphanHighlights = orphans

	result.FinishedAt = s.now()
	return result, nil
}

// mergeGroup folds every duplicate into the primary, moves their highlights
// and deletes them. The group commits atomically.
func (s *ReconcileService) mergeGroup(ctx context.Context, g domain.DuplicateGroup) (domain.MergedGroup, error) {
	primary, rule, err := SelectPrimary(g.Members)
	if err != nil {
		return domain.MergedGroup{}, err
	}
	logger.Debug("merge %s: primary %s chosen by %s", g.Key, primary.ID, rule)

	out := domain.MergedGroup{PrimaryID: primary.ID, Key: g.Key, Title: primary.Title}

	err = s.store.Atomically(ctx, func(tx driven.RecordStore) error {
		out.DuplicateIDs = out.DuplicateIDs[:0]
		out.Reparented = 0
		for i := range g.Members {
			dup := g.Members[i]
			if dup.ID == primary.ID {
				continue
			}
			MergeRecords(&primary, &dup)

			moved, err := tx.ReparentHighlights(ctx, dup.ID, primary.ID)
			if err != nil {
				return fmt.Errorf("moving highlights of %s: %w", dup.ID, err)
			}
			if err := tx.DeleteRecord(ctx, dup.ID); err != nil {
				return fmt.Errorf("deleting %s: %w", dup.ID, err)
			}
			out.Reparented += moved
			out.DuplicateIDs = append(out.DuplicateIDs, dup.ID)
		}

		primary.UpdatedAt = s.now()
		identity.Assign(&primary)
		if err := tx.UpdateRecord(ctx, &primary); err != nil {
			return fmt.Errorf("updating primary %s: %w", primary.ID, err)
		}
		return nil
	})
	if err != nil {
		return domain.MergedGroup{}, err
	}
	return out, nil
}

func checkMergeType(t domain.RecordType) error {
	for _, known := range domain.RecordTypes {
		if t == known {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot merge %q records", domain.ErrInvalidInput, t)
}

// IsConfigError reports whether a sync error means the source cannot run at all.
func IsConfigError(err error) bool {
	return errors.Is(err, domain.ErrUnknownSource) || errors.Is(err, domain.ErrSourceNotConfigured)
}
