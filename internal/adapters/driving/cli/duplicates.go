package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/services"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find and merge duplicate records",
	Long: `Records describing the same item (same normalised URL, ISBN, or title and
author) are duplicates. Merging keeps one primary per group, folds the
others into it, moves their highlights and deletes them.`,
}

var duplicatesPreviewCmd = &cobra.Command{
	Use:   "preview <article|book|note>",
	Short: "List duplicate groups without changing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runDuplicatesPreview,
}

var duplicatesMergeCmd = &cobra.Command{
	Use:   "merge <article|book|note>",
	Short: "Merge every duplicate group of a record type",
	Args:  cobra.ExactArgs(1),
	RunE:  runDuplicatesMerge,
}

func init() {
	duplicatesCmd.AddCommand(duplicatesPreviewCmd)
	duplicatesCmd.AddCommand(duplicatesMergeCmd)
	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicatesPreview(cmd *cobra.Command, args []string) error {
	if reconcileService == nil {
		return errors.New("reconcile service not configured")
	}
	t, err := domain.ParseRecordType(args[0])
	if err != nil {
		return fmt.Errorf("%w: unknown record type %q", err, args[0])
	}

	groups, err := reconcileService.PreviewDuplicates(cmd.Context(), t)
	if err != nil {
		return fmt.Errorf("failed to find duplicates: %w", err)
	}
	if len(groups) == 0 {
		cmd.Printf("No duplicate %ss found.\n", t)
		return nil
	}

	cmd.Printf("%d duplicate %s groups:\n", len(groups), t)
	for _, g := range groups {
		cmd.Println()
		cmd.Printf("%s\n", g.Key)
		primary, rule, err := services.SelectPrimary(g.Members)
		if err != nil {
			cmd.Printf("  (no primary: %v)\n", err)
			continue
		}
		for _, m := range g.Members {
			marker := " "
			if m.ID == primary.ID {
				marker = "*"
			}
			cmd.Printf("  %s %s  %-40s  score %2d  synced by %s  created %s\n",
				marker, m.ID, truncate(m.Title, 40), services.Score(m),
				sourcesOrNone(m.SyncedBy), m.CreatedAt.Format("2006-01-02"))
		}
		cmd.Printf("  primary chosen by: %s\n", rule)
	}
	return nil
}

func runDuplicatesMerge(cmd *cobra.Command, args []string) error {
	if reconcileService == nil {
		return errors.New("reconcile service not configured")
	}
	t, err := domain.ParseRecordType(args[0])
	if err != nil {
		return fmt.Errorf("%w: unknown record type %q", err, args[0])
	}

	result, err := reconcileService.RunMerge(cmd.Context(), t)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	for _, g := range result.Groups {
		cmd.Printf("%s: kept %s, merged %s", g.Key, g.PrimaryID, strings.Join(g.DuplicateIDs, ", "))
		if g.Reparented > 0 {
			cmd.Printf(" (%d highlights moved)", g.Reparented)
		}
		cmd.Println()
	}
	for _, f := range result.Failed {
		cmd.Printf("  ! %s: %s\n", f.Key, f.Message)
	}
	cmd.Printf("Merged %d records in %d groups.\n", result.MergedCount, result.GroupCount)
	if result.OrphanHighlights > 0 {
		cmd.Printf("Warning: %d highlights point at missing records.\n", result.OrphanHighlights)
	}
	return nil
}

func sourcesOrNone(s domain.SourceSet) string {
	if str := s.String(); str != "" {
		return str
	}
	return "none"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
