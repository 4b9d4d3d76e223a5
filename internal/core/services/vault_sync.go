package services

import (
	"context"
	"path"
	"strings"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/identity"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

// vaultsInScope returns the configured vaults matching scope, or all of them.
func (s *ReconcileService) vaultsInScope(scope string) []driven.VaultSource {
	if scope == "" {
		return s.sources.Vaults
	}
	var out []driven.VaultSource
	for _, v := range s.sources.Vaults {
		if strings.EqualFold(v.Name(), scope) {
			out = append(out, v)
		}
	}
	return out
}

// syncVaults reconciles the notes of every vault in scope.
func (s *ReconcileService) syncVaults(ctx context.Context, opts domain.SyncOptions, b *resultBuilder) {
	for _, vault := range s.vaultsInScope(opts.Scope) {
		s.syncVault(ctx, vault, b)
	}
}

func (s *ReconcileService) syncVault(ctx context.Context, vault driven.VaultSource, b *resultBuilder) {
	name := vault.Name()
	loop := pagedSync[domain.VaultNote]{
		flow:   FlowVault + ":" + name,
		limits: s.limits.For(FlowVault),
		fetch:  singlePage(vault.FetchNotes),
		ref:    func(n domain.VaultNote) string { return itemRef(n.Slug, n.Title) },
		handle: func(ctx context.Context, n domain.VaultNote) (domain.Decision, error) {
			if err := validateVaultNote(n); err != nil {
				return 0, err
			}
			in := vaultIncoming(name, n)
			return s.reconcile(ctx, &in)
		},
	}
	loop.run(ctx, b)
}

// vaultIncoming maps a vault note onto a note record scoped to its vault.
func vaultIncoming(vault string, n domain.VaultNote) incoming {
	title := n.Title
	if title == "" {
		title = path.Base(strings.Trim(n.Slug, "/"))
	}
	return incoming{
		source: domain.SourceVault,
		create: true,
		record: domain.Record{
			Type:        domain.RecordTypeNote,
			Scope:       vault,
			Slug:        n.Slug,
			Title:       title,
			Body:        n.Content,
			Description: n.Description,
			Link:        n.SourceURL,
			PublishedAt: n.Date,
			Tags:        identity.UnionLabels(n.Tags, nil),
		},
	}
}
