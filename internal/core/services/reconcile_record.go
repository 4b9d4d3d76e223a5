package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// incoming is a source item mapped onto the canonical record shape.
type incoming struct {
	source     domain.SourceName
	externalID string
	record     domain.Record

	// create allows a Create decision when nothing matches.
	create bool
}

// lookupRecord matches an incoming item to zero or one local record:
// external id first, then identity key, then the secondary match key.
func lookupRecord(ctx context.Context, store driven.RecordStore, in *incoming) (*domain.Record, error) {
	t := in.record.Type

	if in.externalID != "" {
		r, err := store.FindByExternalID(ctx, t, in.source, in.externalID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return r, err
		}
	}

	probe := in.record
	identity.Assign(&probe)

	if probe.IdentityKey != "" {
		r, err := store.FindByIdentity(ctx, t, probe.Scope, probe.IdentityKey)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return r, err
		}
	}

	if probe.MatchKey != "" {
		r, err := store.FindByMatchKey(ctx, t, probe.MatchKey)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return r, err
		}
	}

	return nil, domain.ErrNotFound
}

// reconcileRecord applies the create / update / unchanged decision for one
// item inside a transaction.
func reconcileRecord(ctx context.Context, tx driven.RecordStore, in *incoming, now time.Time) (domain.Decision, error) {
	existing, err := lookupRecord(ctx, tx, in)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if !in.create {
			return domain.DecisionSkipped, nil
		}
		rec := newRecord(in, now)
		err = tx.CreateRecord(ctx, &rec)
		if err == nil {
			return domain.DecisionCreated, nil
		}
		if !isConflict(err) {
			return 0, fmt.Errorf("creating record: %w", err)
		}
		logger.Debug("%s: %s already exists, updating instead", in.source, in.externalID)
		existing, err = lookupRecord(ctx, tx, in)
		if err != nil {
			return 0, fmt.Errorf("resolving create conflict: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("looking up record: %w", err)
	}

	return updateRecord(ctx, tx, existing, in, now)
}

// updateRecord overwrites authoritative fields, fills contributed ones and
// re-checks labels. Label drift alone leaves the decision at Unchanged.
func updateRecord(ctx context.Context, tx driven.RecordStore, existing *domain.Record, in *incoming, now time.Time) (domain.Decision, error) {
	policy := PolicyFor(in.source)
	changed := false

	switch bound := existing.ExternalID(in.source); {
	case in.externalID == "" || bound == in.externalID:
	case bound == "":
		existing.SetExternalID(in.source, in.externalID)
		changed = true
	default:
		// Another item of the same source owns this record. The newcomer
		// only fills gaps, so the two never overwrite each other.
		logger.Debug("%s: %s matches %s, which is bound to %s", in.source, in.externalID, existing.ID, bound)
		policy = siblingPolicy
	}
	if applyBody(policy, existing, &in.record, now) {
		changed = true
	}
	if len(applyFields(policy, existing, &in.record)) > 0 {
		changed = true
	}
	drift := applyLabels(policy, existing, &in.record)

	decision := domain.DecisionUnchanged
	if changed {
		decision = domain.DecisionUpdated
	}
	if changed || len(drift) > 0 {
		existing.UpdatedAt = now
	}

	existing.MarkSynced(in.source, now)
	identity.Assign(existing)

	if err := tx.UpdateRecord(ctx, existing); err != nil {
		return 0, fmt.Errorf("updating record %s: %w", existing.ID, err)
	}
	return decision, nil
}

func newRecord(in *incoming, now time.Time) domain.Record {
	rec := in.record.Clone()
	rec.ID = uuid.New().String()
	rec.SetExternalID(in.source, in.externalID)
	if rec.Status == "" {
		rec.Status = domain.StatusUncharted
	}
	rec.Fingerprint = identity.Fingerprint(rec.Body)
	if rec.Body != "" {
		rec.ContentSyncedAt = now
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.MarkSynced(in.source, now)
	identity.Assign(&rec)
	return rec
}

// itemRef names a source item for error reports.
func itemRef(id, title string) string {
	switch {
	case id != "" && title != "":
		return id + " " + strconv.Quote(title)
	case id != "":
		return id
	case title != "":
		return strconv.Quote(title)
	default:
		return "<unidentified>"
	}
}
