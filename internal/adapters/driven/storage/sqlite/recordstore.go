package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

// ==================== Record Store ====================

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// recordStore implements driven.RecordStore. Inside Atomically, q is the
// open transaction.
type recordStore struct {
	store *Store
	q     queryer
	inTx  bool
}

var _ driven.RecordStore = (*recordStore)(nil)

// timeLayout sorts lexically in the same order as the times it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const recordColumns = `id, record_type, scope, identity_key, match_key, link, slug, isbn,
	title, author, publication, description, thumbnail, body, fingerprint,
	content_synced_at, published_at, completed_at, word_count, progress,
	status, rating, format, location, archived, starred, topics, genres, tags,
	synced_by, source_synced_at, last_synced_at, created_at, updated_at`

// savepoints names nested transactions.
var savepoints atomic.Int64

// Atomically runs fn in a database transaction. Inside a transaction it runs
// fn under a savepoint, so a failed nested write leaves nothing behind.
func (s *recordStore) Atomically(ctx context.Context, fn func(tx driven.RecordStore) error) error {
	if s.inTx {
		return s.savepoint(ctx, fn)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&recordStore{store: s.store, q: tx, inTx: true}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *recordStore) savepoint(ctx context.Context, fn func(tx driven.RecordStore) error) error {
	name := fmt.Sprintf("sp_%d", savepoints.Add(1))
	if _, err := s.q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}
	if err := fn(s); err != nil {
		s.q.ExecContext(ctx, "ROLLBACK TO "+name) //nolint:errcheck
		s.q.ExecContext(ctx, "RELEASE "+name)     //nolint:errcheck
		return err
	}
	if _, err := s.q.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by ID.
func (s *recordStore) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	return s.queryOne(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
}

// FindByExternalID retrieves the record bound to a source identifier.
func (s *recordStore) FindByExternalID(ctx context.Context, t domain.RecordType, source domain.SourceName, externalID string) (*domain.Record, error) {
	return s.queryOne(ctx, `
		SELECT `+recordColumns+` FROM records WHERE id = (
			SELECT record_id FROM record_external_ids
			WHERE record_type = ? AND source = ? AND external_id = ?
		)`, string(t), string(source), externalID)
}

// FindByIdentity retrieves the oldest record with the identity key.
func (s *recordStore) FindByIdentity(ctx context.Context, t domain.RecordType, scope, key string) (*domain.Record, error) {
	return s.queryOne(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE record_type = ? AND scope = ? AND identity_key = ?
		ORDER BY created_at, id LIMIT 1`, string(t), scope, key)
}

// FindByMatchKey retrieves the oldest record with the secondary key.
func (s *recordStore) FindByMatchKey(ctx context.Context, t domain.RecordType, key string) (*domain.Record, error) {
	return s.queryOne(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE record_type = ? AND match_key = ?
		ORDER BY created_at, id LIMIT 1`, string(t), key)
}

// ListRecords returns all records of a type, oldest first.
func (s *recordStore) ListRecords(ctx context.Context, t domain.RecordType) ([]domain.Record, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE record_type = ? ORDER BY created_at, id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	for i := range records {
		if err := s.loadExternalIDs(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// CreateRecord inserts a new record with its external ids.
func (s *recordStore) CreateRecord(ctx context.Context, r *domain.Record) error {
	if r == nil || r.ID == "" {
		return domain.ErrInvalidInput
	}
	return s.Atomically(ctx, func(tx driven.RecordStore) error {
		q := tx.(*recordStore).q
		args, err := recordArgs(r)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `INSERT INTO records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
				?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return mapConstraint(err, "inserting record "+r.ID)
		}
		return insertExternalIDs(ctx, q, r)
	})
}

// UpdateRecord replaces a stored record and its external ids.
func (s *recordStore) UpdateRecord(ctx context.Context, r *domain.Record) error {
	if r == nil || r.ID == "" {
		return domain.ErrInvalidInput
	}
	return s.Atomically(ctx, func(tx driven.RecordStore) error {
		q := tx.(*recordStore).q
		args, err := recordArgs(r)
		if err != nil {
			return err
		}
		// args[0] is the id; move it to the WHERE clause.
		res, err := q.ExecContext(ctx, `UPDATE records SET
			record_type = ?, scope = ?, identity_key = ?, match_key = ?, link = ?, slug = ?, isbn = ?,
			title = ?, author = ?, publication = ?, description = ?, thumbnail = ?, body = ?, fingerprint = ?,
			content_synced_at = ?, published_at = ?, completed_at = ?, word_count = ?, progress = ?,
			status = ?, rating = ?, format = ?, location = ?, archived = ?, starred = ?,
			topics = ?, genres = ?, tags = ?, synced_by = ?, source_synced_at = ?, last_synced_at = ?,
			created_at = ?, updated_at = ?
			WHERE id = ?`, append(args[1:], args[0])...)
		if err != nil {
			return mapConstraint(err, "updating record "+r.ID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM record_external_ids WHERE record_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clearing external ids: %w", err)
		}
		return insertExternalIDs(ctx, q, r)
	})
}

// DeleteRecord removes a record without highlights.
func (s *recordStore) DeleteRecord(ctx context.Context, id string) error {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM highlights WHERE parent_id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("counting highlights: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: record %s has %d highlights", domain.ErrHasDependents, id, n)
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return mapConstraint(err, "deleting record "+id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *recordStore) queryOne(ctx context.Context, query string, args ...any) (*domain.Record, error) {
	r, err := scanRecord(s.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := s.loadExternalIDs(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *recordStore) loadExternalIDs(ctx context.Context, r *domain.Record) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT source, external_id FROM record_external_ids WHERE record_id = ?`, r.ID)
	if err != nil {
		return fmt.Errorf("querying external ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, ext string
		if err := rows.Scan(&source, &ext); err != nil {
			return fmt.Errorf("scanning external id: %w", err)
		}
		r.SetExternalID(domain.SourceName(source), ext)
	}
	return rows.Err()
}

func insertExternalIDs(ctx context.Context, q queryer, r *domain.Record) error {
	for source, ext := range r.ExternalIDs {
		if ext == "" {
			continue
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO record_external_ids (record_type, source, external_id, record_id)
			VALUES (?, ?, ?, ?)`, string(r.Type), string(source), ext, r.ID)
		if err != nil {
			return mapConstraint(err, fmt.Sprintf("binding %s id %s", source, ext))
		}
	}
	return nil
}

// ==================== Highlights ====================

const highlightColumns = `id, external_id, parent_id, parent_type, text, note, location, color,
	favorite, tags, source_url, source_title, source_author, category, fingerprint,
	highlighted_at, source_updated_at, created_at, updated_at`

// GetHighlightByExternalID retrieves a highlight by its source identifier.
func (s *recordStore) GetHighlightByExternalID(ctx context.Context, externalID string) (*domain.Highlight, error) {
	return scanHighlight(s.q.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE external_id = ?`, externalID))
}

// SaveHighlight creates or updates a highlight.
func (s *recordStore) SaveHighlight(ctx context.Context, h *domain.Highlight) error {
	if h == nil || h.ID == "" {
		return domain.ErrInvalidInput
	}
	if h.ParentID != "" {
		var exists int
		err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE id = ?`, h.ParentID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking parent: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: parent record %s", domain.ErrNotFound, h.ParentID)
		}
	}

	tags, err := json.Marshal(nonNil(h.Tags))
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO highlights (`+highlightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			parent_id = excluded.parent_id,
			parent_type = excluded.parent_type,
			text = excluded.text,
			note = excluded.note,
			location = excluded.location,
			color = excluded.color,
			favorite = excluded.favorite,
			tags = excluded.tags,
			source_url = excluded.source_url,
			source_title = excluded.source_title,
			source_author = excluded.source_author,
			category = excluded.category,
			fingerprint = excluded.fingerprint,
			highlighted_at = excluded.highlighted_at,
			source_updated_at = excluded.source_updated_at,
			updated_at = excluded.updated_at
	`, h.ID, nullString(h.ExternalID), nullString(h.ParentID), string(h.ParentType),
		h.Text, h.Note, h.Location, h.Color, boolToInt(h.Favorite), string(tags),
		h.SourceURL, h.SourceTitle, h.SourceAuthor, h.Category, h.Fingerprint,
		formatTime(h.HighlightedAt), formatTime(h.SourceUpdatedAt),
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt))
	if err != nil {
		return mapConstraint(err, "saving highlight "+h.ID)
	}
	return nil
}

// ListHighlights returns the highlights of a record in reading order.
func (s *recordStore) ListHighlights(ctx context.Context, parentID string) ([]domain.Highlight, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+highlightColumns+` FROM highlights
		WHERE parent_id = ? ORDER BY highlighted_at, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying highlights: %w", err)
	}
	defer rows.Close()

	var out []domain.Highlight //nolint:prealloc // size unknown from query
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating highlights: %w", err)
	}
	return out, nil
}

// ReparentHighlights moves every highlight of one record to another.
func (s *recordStore) ReparentHighlights(ctx context.Context, fromID, toID string) (int, error) {
	var toType string
	err := s.q.QueryRowContext(ctx, `SELECT record_type FROM records WHERE id = ?`, toID).Scan(&toType)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: record %s", domain.ErrNotFound, toID)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up %s: %w", toID, err)
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE highlights SET parent_id = ?, parent_type = ? WHERE parent_id = ?`, toID, toType, fromID)
	if err != nil {
		return 0, fmt.Errorf("reparenting highlights: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reparenting highlights: %w", err)
	}
	return int(n), nil
}

// CountOrphanHighlights counts highlights whose parent is gone.
func (s *recordStore) CountOrphanHighlights(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM highlights h
		WHERE h.parent_id IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM records r WHERE r.id = h.parent_id)`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orphan highlights: %w", err)
	}
	return n, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func recordArgs(r *domain.Record) ([]any, error) {
	topics, err := json.Marshal(nonNil(r.Topics))
	if err != nil {
		return nil, fmt.Errorf("marshalling topics: %w", err)
	}
	genres, err := json.Marshal(nonNil(r.Genres))
	if err != nil {
		return nil, fmt.Errorf("marshalling genres: %w", err)
	}
	tags, err := json.Marshal(nonNil(r.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshalling tags: %w", err)
	}
	syncedAt := make(map[string]string, len(r.SourceSyncedAt))
	for source, at := range r.SourceSyncedAt {
		syncedAt[string(source)] = at.UTC().Format(timeLayout)
	}
	syncedAtJSON, err := json.Marshal(syncedAt)
	if err != nil {
		return nil, fmt.Errorf("marshalling sync times: %w", err)
	}

	return []any{
		r.ID, string(r.Type), r.Scope, r.IdentityKey, r.MatchKey, r.Link, r.Slug, r.ISBN,
		r.Title, r.Author, r.Publication, r.Description, r.Thumbnail, r.Body, r.Fingerprint,
		formatTime(r.ContentSyncedAt), formatTime(r.PublishedAt), formatTime(r.CompletedAt),
		r.WordCount, r.Progress,
		string(r.Status), string(r.Rating), string(r.Format), r.Location,
		boolToInt(r.Archived), boolToInt(r.Starred),
		string(topics), string(genres), string(tags),
		int64(r.SyncedBy), string(syncedAtJSON), formatTime(r.LastSyncedAt),
		r.CreatedAt.UTC().Format(timeLayout), r.UpdatedAt.UTC().Format(timeLayout),
	}, nil
}

func scanRecord(row scanner) (*domain.Record, error) {
	var (
		r                                         domain.Record
		recordType, status, rating, format        string
		contentSyncedAt, publishedAt, completedAt sql.NullString
		lastSyncedAt                              sql.NullString
		archived, starred                         int
		topics, genres, tags, syncedAt            string
		syncedBy                                  int64
		createdAt, updatedAt                      string
	)

	err := row.Scan(&r.ID, &recordType, &r.Scope, &r.IdentityKey, &r.MatchKey, &r.Link, &r.Slug, &r.ISBN,
		&r.Title, &r.Author, &r.Publication, &r.Description, &r.Thumbnail, &r.Body, &r.Fingerprint,
		&contentSyncedAt, &publishedAt, &completedAt, &r.WordCount, &r.Progress,
		&status, &rating, &format, &r.Location, &archived, &starred,
		&topics, &genres, &tags, &syncedBy, &syncedAt, &lastSyncedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	r.Type = domain.RecordType(recordType)
	r.Status = domain.Status(status)
	r.Rating = domain.Rating(rating)
	r.Format = domain.Format(format)
	r.Archived = archived == 1
	r.Starred = starred == 1
	r.SyncedBy = domain.SourceSet(syncedBy)
	r.ContentSyncedAt = parseTime(contentSyncedAt)
	r.PublishedAt = parseTime(publishedAt)
	r.CompletedAt = parseTime(completedAt)
	r.LastSyncedAt = parseTime(lastSyncedAt)
	r.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
	r.UpdatedAt = parseTime(sql.NullString{String: updatedAt, Valid: true})

	for _, f := range []struct {
		raw string
		dst *[]string
	}{{topics, &r.Topics}, {genres, &r.Genres}, {tags, &r.Tags}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("unmarshalling labels of %s: %w", r.ID, err)
		}
		if len(*f.dst) == 0 {
			*f.dst = nil
		}
	}

	var times map[string]string
	if err := json.Unmarshal([]byte(syncedAt), &times); err != nil {
		return nil, fmt.Errorf("unmarshalling sync times of %s: %w", r.ID, err)
	}
	for source, raw := range times {
		if r.SourceSyncedAt == nil {
			r.SourceSyncedAt = make(map[domain.SourceName]time.Time, len(times))
		}
		r.SourceSyncedAt[domain.SourceName(source)] = parseTime(sql.NullString{String: raw, Valid: true})
	}

	return &r, nil
}

func scanHighlight(row scanner) (*domain.Highlight, error) {
	var (
		h                           domain.Highlight
		externalID, parentID        sql.NullString
		parentType, tags            string
		favorite                    int
		highlightedAt, srcUpdatedAt sql.NullString
		createdAt, updatedAt        string
	)

	err := row.Scan(&h.ID, &externalID, &parentID, &parentType, &h.Text, &h.Note, &h.Location, &h.Color,
		&favorite, &tags, &h.SourceURL, &h.SourceTitle, &h.SourceAuthor, &h.Category, &h.Fingerprint,
		&highlightedAt, &srcUpdatedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning highlight: %w", err)
	}

	h.ExternalID = externalID.String
	h.ParentID = parentID.String
	h.ParentType = domain.RecordType(parentType)
	h.Favorite = favorite == 1
	h.HighlightedAt = parseTime(highlightedAt)
	h.SourceUpdatedAt = parseTime(srcUpdatedAt)
	h.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
	h.UpdatedAt = parseTime(sql.NullString{String: updatedAt, Valid: true})
	if err := json.Unmarshal([]byte(tags), &h.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags of %s: %w", h.ID, err)
	}
	if len(h.Tags) == 0 {
		h.Tags = nil
	}
	return &h, nil
}

// mapConstraint turns SQLite constraint violations into domain errors.
func mapConstraint(err error, op string) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", op, domain.ErrHasDependents)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// formatTime formats a time for storage, or returns nil for zero time.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored time. Values written by older versions in
// RFC3339 are accepted too.
func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, s.String); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString stores empty strings as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
