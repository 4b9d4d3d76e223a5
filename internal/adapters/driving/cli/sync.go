package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/shelfsync/internal/connectors/vault"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source]",
	Short: "Pull items from sources into the library",
	Long: `Pulls items from a source and reconciles each one with the library:
new items become records, changed items update their record and the rest
are left alone.

Sources: reader, readwise, vault, goodreads. With no source, every
configured source runs concurrently.

Item and page failures are listed after the counts; they do not stop the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var (
	syncScope string
	syncSince string
	syncWatch bool
)

// watchDebounce is how long a vault must be quiet before --watch re-syncs.
var watchDebounce = vault.DefaultDebounce

func init() {
	syncCmd.Flags().StringVar(&syncScope, "scope", "", "Vault name, or reader location (new, later, shortlist, archive, feed)")
	syncCmd.Flags().StringVar(&syncSince, "since", "", "Only items updated after this time (RFC 3339 or YYYY-MM-DD)")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "Keep running and re-sync local vaults when files change")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if reconcileService == nil {
		return errors.New("reconcile service not configured")
	}

	since, err := parseSince(syncSince)
	if err != nil {
		return err
	}
	syncOpts := domain.SyncOptions{Scope: syncScope, UpdatedAfter: since}
	ctx := cmd.Context()

	if len(args) == 0 {
		if syncWatch {
			return errors.New("--watch needs the vault source")
		}
		cmd.Println("Synchronising all sources...")
		results, err := reconcileService.RunSyncAll(ctx, syncOpts)
		for _, r := range results {
			if r.Source != "" {
				printSyncResult(cmd.OutOrStdout(), r)
			}
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return nil
	}

	source, err := domain.ParseSourceName(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q (expected one of %s)", err, args[0], sourceList())
	}
	if syncWatch && source != domain.SourceVault {
		return errors.New("--watch needs the vault source")
	}

	cmd.Printf("Synchronising %s...\n", source)
	if err := syncOnce(ctx, cmd.OutOrStdout(), source, syncOpts); err != nil {
		return err
	}
	if syncWatch {
		return watchVaults(ctx, cmd.OutOrStdout(), syncScope)
	}
	return nil
}

func syncOnce(ctx context.Context, out io.Writer, source domain.SourceName, syncOpts domain.SyncOptions) error {
	result, err := reconcileService.RunSync(ctx, source, syncOpts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	printSyncResult(out, result)
	return nil
}

// watchVaults re-syncs each local vault when its files change, until ctx ends.
func watchVaults(ctx context.Context, out io.Writer, scope string) error {
	if runtimeConfig == nil {
		return errors.New("configuration not loaded")
	}

	var roots []struct{ name, path string }
	for _, v := range runtimeConfig.LocalVaults() {
		if scope == "" || v.Name == scope {
			roots = append(roots, struct{ name, path string }{v.Name, v.Path})
		}
	}
	if len(roots) == 0 {
		return errors.New("--watch needs a vault with a local path")
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, root := range roots {
		fmt.Fprintf(out, "Watching %s (%s)\n", root.name, root.path)
		g.Go(func() error {
			return vault.Watch(gCtx, root.path, watchDebounce, func(ctx context.Context) {
				if err := syncOnce(ctx, out, domain.SourceVault, domain.SyncOptions{Scope: root.name}); err != nil {
					logger.Error("vault %s: %v", root.name, err)
				}
			})
		})
	}
	return g.Wait()
}

func printSyncResult(out io.Writer, r domain.SyncResult) {
	name := string(r.Source)
	if r.Scope != "" {
		name += " (" + r.Scope + ")"
	}
	fmt.Fprintf(out, "%s: %d created, %d updated, %d unchanged, %d skipped, %d failed (%d pages, %s)\n",
		name, r.Created, r.Updated, r.Unchanged, r.Skipped, r.Failed, r.Pages,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  ! %s\n", e)
	}
}

// parseSince accepts RFC 3339 or a bare date.
func parseSince(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: --since %q is not RFC 3339 or YYYY-MM-DD", domain.ErrInvalidInput, s)
}

func sourceList() string {
	names := domain.SourceNames()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
