package services

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// Source items are validated before any lookup. A failure marks the item
// malformed: it is counted as failed and skipped.

func malformed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrMalformedItem, err)
}

func validateReaderDocument(d domain.ReaderDocument) error {
	return malformed(validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.URL, validation.Required),
		validation.Field(&d.Title, validation.Required),
		validation.Field(&d.ReadingProgress, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&d.WordCount, validation.Min(0)),
	))
}

func validateExportHighlight(h domain.ExportHighlight) error {
	return malformed(validation.ValidateStruct(&h,
		validation.Field(&h.ID, validation.Required),
		validation.Field(&h.Text, validation.Required),
	))
}

func validateBookSummary(b domain.BookSummary) error {
	return malformed(validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Title, validation.Required),
	))
}

func validateVaultNote(n domain.VaultNote) error {
	return malformed(validation.ValidateStruct(&n,
		validation.Field(&n.Slug, validation.Required),
	))
}

func validateLibraryRow(r domain.LibraryRow) error {
	return malformed(validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Author, validation.Required),
		validation.Field(&r.Rating, validation.Min(0), validation.Max(5)),
	))
}
