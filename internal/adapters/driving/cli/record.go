package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/services"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage library records",
	Long:  `Add, list, view or delete records in the local library.`,
}

var recordAddCmd = &cobra.Command{
	Use:   "add <article|book|note>",
	Short: "Add a record by hand",
	Long: `Adds a record without matching it against the library first. If it
describes something already synced, the next merge folds the two together.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecordAdd,
}

var recordListCmd = &cobra.Command{
	Use:   "list <article|book|note>",
	Short: "List records of a type",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordList,
}

var recordShowCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show a record and its highlights",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordShow,
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record",
	Long:  `Deletes a record. Records that still own highlights cannot be deleted.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordDelete,
}

// Flags for record add.
var (
	addTitle    string
	addLink     string
	addAuthor   string
	addISBN     string
	addVault    string
	addSlug     string
	addStatus   string
	addTags     []string
	addWords    int
	addBodyFile string
)

func init() {
	f := recordAddCmd.Flags()
	f.StringVar(&addTitle, "title", "", "Title (required)")
	f.StringVar(&addLink, "link", "", "URL of the article")
	f.StringVar(&addAuthor, "author", "", "Author")
	f.StringVar(&addISBN, "isbn", "", "ISBN of the book")
	f.StringVar(&addVault, "vault", "", "Vault the note belongs to")
	f.StringVar(&addSlug, "slug", "", "Path of the note inside its vault")
	f.StringVar(&addStatus, "status", "", "uncharted, actively_exploring, completed or abandoned")
	f.StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
	f.IntVar(&addWords, "words", 0, "Word count")
	f.StringVar(&addBodyFile, "body-file", "", "Read the body from a markdown file")

	recordCmd.AddCommand(recordAddCmd)
	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordShowCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	rootCmd.AddCommand(recordCmd)
}

func runRecordAdd(cmd *cobra.Command, args []string) error {
	if recordService == nil {
		return errors.New("record service not configured")
	}
	t, err := domain.ParseRecordType(args[0])
	if err != nil {
		return fmt.Errorf("%w: unknown record type %q", err, args[0])
	}
	status, err := parseStatus(addStatus)
	if err != nil {
		return err
	}

	r := domain.Record{
		Type:      t,
		Title:     addTitle,
		Link:      addLink,
		Author:    addAuthor,
		ISBN:      addISBN,
		Scope:     addVault,
		Slug:      addSlug,
		Status:    status,
		Tags:      addTags,
		WordCount: addWords,
	}
	if addBodyFile != "" {
		body, err := os.ReadFile(addBodyFile)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		r.Body = string(body)
	}

	created, err := recordService.Add(cmd.Context(), r)
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}
	cmd.Printf("Added %s %s\n", created.Type, created.ID)
	return nil
}

func runRecordList(cmd *cobra.Command, args []string) error {
	if recordService == nil {
		return errors.New("record service not configured")
	}
	t, err := domain.ParseRecordType(args[0])
	if err != nil {
		return fmt.Errorf("%w: unknown record type %q", err, args[0])
	}

	records, err := recordService.List(cmd.Context(), t)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if len(records) == 0 {
		cmd.Printf("No %ss.\n", t)
		return nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	for _, r := range records {
		cmd.Printf("%s  %-40s  %-18s  %s\n", r.ID, truncate(r.Title, 40), r.Status, sourcesOrNone(r.SyncedBy))
	}
	cmd.Printf("%d %ss\n", len(records), t)
	return nil
}

func runRecordShow(cmd *cobra.Command, args []string) error {
	if recordService == nil {
		return errors.New("record service not configured")
	}
	ctx := cmd.Context()

	r, err := recordService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}

	cmd.Printf("%s\n", r.Title)
	cmd.Println(strings.Repeat("=", len([]rune(r.Title))))
	field := func(name, value string) {
		if value != "" {
			cmd.Printf("  %-14s %s\n", name+":", value)
		}
	}
	field("ID", r.ID)
	field("Type", string(r.Type))
	field("Author", r.Author)
	field("Link", r.Link)
	field("Vault", r.Scope)
	field("Slug", r.Slug)
	field("ISBN", r.ISBN)
	field("Publication", r.Publication)
	field("Status", string(r.Status))
	field("Rating", string(r.Rating))
	field("Format", string(r.Format))
	field("Location", r.Location)
	field("Tags", strings.Join(r.Tags, ", "))
	field("Synced by", sourcesOrNone(r.SyncedBy))
	if r.WordCount > 0 {
		field("Reading time", fmt.Sprintf("%d min (%d words)", services.EstimateReadingMinutes(r.WordCount), r.WordCount))
	}
	if r.Progress > 0 {
		field("Progress", fmt.Sprintf("%.0f%%", r.Progress))
	}
	field("Score", fmt.Sprintf("%d", services.Score(*r)))
	if !r.LastSyncedAt.IsZero() {
		field("Last synced", r.LastSyncedAt.Format("2006-01-02 15:04"))
	}
	field("Created", r.CreatedAt.Format("2006-01-02 15:04"))

	highlights, err := recordService.Highlights(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("failed to list highlights: %w", err)
	}
	if len(highlights) > 0 {
		cmd.Println()
		cmd.Printf("Highlights (%d)\n", len(highlights))
		for _, h := range highlights {
			cmd.Printf("  > %s\n", truncate(h.Text, 100))
			if h.Note != "" {
				cmd.Printf("    note: %s\n", h.Note)
			}
		}
	}
	return nil
}

func runRecordDelete(cmd *cobra.Command, args []string) error {
	if recordService == nil {
		return errors.New("record service not configured")
	}
	if err := recordService.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrHasDependents) {
			return fmt.Errorf("record %s still has highlights; merge or remove them first: %w", args[0], err)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func parseStatus(s string) (domain.Status, error) {
	switch st := domain.Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return "", nil
	case domain.StatusUncharted, domain.StatusActivelyExploring, domain.StatusCompleted, domain.StatusAbandoned:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, s)
	}
}
