package driving

import (
	"context"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// ReconcileService is the external surface of the reconciliation engine.
type ReconcileService interface {
	// RunSync pulls every page of one source and reconciles each item.
	// Item and page failures are reported in the result; the error is only
	// non-nil when the source is unknown or unconfigured, or ctx ends while
	// waiting for exclusive access.
	RunSync(ctx context.Context, source domain.SourceName, opts domain.SyncOptions) (domain.SyncResult, error)

	// RunSyncAll syncs every configured source concurrently.
	RunSyncAll(ctx context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error)

	// PreviewDuplicates lists the groups a merge would resolve. Read-only.
	PreviewDuplicates(ctx context.Context, t domain.RecordType) ([]domain.DuplicateGroup, error)

	// RunMerge resolves every duplicate group of a record type.
	RunMerge(ctx context.Context, t domain.RecordType) (domain.MergeResult, error)

	// ConfiguredSources lists the sources that have an adapter.
	ConfiguredSources() []domain.SourceName
}
