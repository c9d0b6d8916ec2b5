package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SessionRecord is the persisted row for one known session. Fields split
// into two provenance groups that are never overwritten by the other side:
// user-preference fields are written only by UpsertUserFields (and, for
// archived, by ArchiveAll), indexed fields only by UpsertIndexedFields.
type SessionRecord struct {
	SessionID string `json:"sessionId"`

	// User-preference fields.
	CustomName             string `json:"customName"`
	Pinned                 bool   `json:"pinned"`
	Archived               bool   `json:"archived"`
	ContinuationSessionID  string `json:"continuationSessionId,omitempty"`
	InitialCommitHead      string `json:"initialCommitHead,omitempty"`
	PermissionMode         string `json:"permissionMode"`

	// Indexed fields.
	Summary         string `json:"summary,omitempty"`
	ProjectPath     string `json:"projectPath,omitempty"`
	FilePath        string `json:"filePath,omitempty"`
	MessageCount    int    `json:"messageCount"`
	TotalDurationMs int64  `json:"totalDurationMs"`
	Model           string `json:"model"`
	LastScannedAtMs int64  `json:"lastScannedAtMs,omitempty"`

	// Bookkeeping.
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// IndexedMetadata is the transient value produced by the scanner and
// consumed by UpsertIndexedFields. It carries only the fields the indexer
// is allowed to write.
type IndexedMetadata struct {
	SessionID       string
	Summary         string
	ProjectPath     string
	FilePath        string
	MessageCount    int
	TotalDurationMs int64
	Model           string
	FirstTimestamp  string
	LastTimestamp   string
	LastScannedAtMs int64
}

// UserFieldsPatch carries the subset of user-preference fields an API
// caller wants to change. Nil pointers mean "leave alone".
type UserFieldsPatch struct {
	CustomName             *string
	Pinned                 *bool
	Archived               *bool
	ContinuationSessionID  *string
	InitialCommitHead      *string
	PermissionMode         *string
}

// ListQuery filters and paginates Store.List.
type ListQuery struct {
	ProjectPath     *string
	Archived        *bool
	Pinned          *bool
	HasContinuation *bool

	OrderBy  string // "createdAt" | "updatedAt"
	OrderDir string // "asc" | "desc"

	Limit  int
	Offset int
}

// Stats summarizes the store for operational visibility.
type Stats struct {
	Count       int64
	ByteSizeKB  int64
	LastUpdated string
}

const schemaVersion = 1

// Store is the metadata store: one sqlite table of SessionRecord rows plus
// a tiny bookkeeping table. It takes its *sql.DB explicitly so components
// that depend on it (the indexer, the read API) are wired through their own
// constructors rather than reaching for a package-global connection.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-open, already-migrated connection.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Get returns the record for id, inserting a default row first if one
// doesn't exist yet — callers can treat Get as a total function.
func (s *Store) Get(id string) (*SessionRecord, error) {
	rec, err := s.selectOne(id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	now := nowUTC()
	_, err = s.db.Exec(`
		INSERT INTO sessions (session_id, permission_mode, model, version, created_at, updated_at)
		VALUES (?, 'default', 'Unknown', ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, id, schemaVersion, now, now)
	if err != nil {
		return nil, err
	}

	if err := s.touchMetadata(); err != nil {
		return nil, err
	}

	return s.selectOne(id)
}

// LastScannedAtMs returns the stored scan watermark for id without the
// side-effecting default-row insert Get performs — the full scan needs to
// distinguish "never seen" from "seen at time zero" before deciding whether
// to re-scan.
func (s *Store) LastScannedAtMs(id string) (ms int64, exists bool, err error) {
	err = s.db.QueryRow("SELECT last_scanned_at_ms FROM sessions WHERE session_id = ?", id).Scan(&ms)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return ms, true, nil
}

func (s *Store) selectOne(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT session_id, custom_name, pinned, archived, continuation_session_id,
			   initial_commit_head, permission_mode, summary, project_path, file_path,
			   message_count, total_duration_ms, model, last_scanned_at_ms,
			   version, created_at, updated_at
		FROM sessions WHERE session_id = ?
	`, id)

	rec, err := scanSessionRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanSessionRecord(row interface{ Scan(...any) error }) (SessionRecord, error) {
	var rec SessionRecord
	var pinned, archived int
	err := row.Scan(
		&rec.SessionID, &rec.CustomName, &pinned, &archived, &rec.ContinuationSessionID,
		&rec.InitialCommitHead, &rec.PermissionMode, &rec.Summary, &rec.ProjectPath, &rec.FilePath,
		&rec.MessageCount, &rec.TotalDurationMs, &rec.Model, &rec.LastScannedAtMs,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	rec.Pinned = pinned == 1
	rec.Archived = archived == 1
	return rec, err
}

// UpsertUserFields merges patch into the record for id, creating the row
// first via Get if it doesn't exist. updatedAt is set to now; indexed
// fields are left untouched.
func (s *Store) UpsertUserFields(id string, patch UserFieldsPatch) (*SessionRecord, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	var sets []string
	var args []any

	if patch.CustomName != nil {
		sets = append(sets, "custom_name = ?")
		args = append(args, *patch.CustomName)
	}
	if patch.Pinned != nil {
		sets = append(sets, "pinned = ?")
		args = append(args, boolToInt(*patch.Pinned))
	}
	if patch.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, boolToInt(*patch.Archived))
	}
	if patch.ContinuationSessionID != nil {
		sets = append(sets, "continuation_session_id = ?")
		args = append(args, *patch.ContinuationSessionID)
	}
	if patch.InitialCommitHead != nil {
		sets = append(sets, "initial_commit_head = ?")
		args = append(args, *patch.InitialCommitHead)
	}
	if patch.PermissionMode != nil {
		sets = append(sets, "permission_mode = ?")
		args = append(args, *patch.PermissionMode)
	}

	sets = append(sets, "version = ?", "updated_at = ?")
	args = append(args, schemaVersion, nowUTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE sessions SET %s WHERE session_id = ?", strings.Join(sets, ", "))
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, err
	}

	if err := s.touchMetadata(); err != nil {
		return nil, err
	}

	return s.selectOne(id)
}

// UpsertIndexedFields bulk-upserts indexed metadata from a scan pass inside
// one transaction. Existing user-preference fields and createdAt are never
// touched; the coalescing/exclusion pattern below guards against a
// concurrent user write losing to this batch (and vice versa).
func (s *Store) UpsertIndexedFields(batch []IndexedMetadata) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO sessions (
			session_id, summary, project_path, file_path, message_count,
			total_duration_ms, model, last_scanned_at_ms, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			summary            = COALESCE(NULLIF(excluded.summary, ''), sessions.summary),
			project_path       = COALESCE(NULLIF(excluded.project_path, ''), sessions.project_path),
			file_path          = COALESCE(NULLIF(excluded.file_path, ''), sessions.file_path),
			message_count      = excluded.message_count,
			total_duration_ms  = excluded.total_duration_ms,
			model              = COALESCE(NULLIF(excluded.model, ''), sessions.model),
			last_scanned_at_ms = MAX(excluded.last_scanned_at_ms, sessions.last_scanned_at_ms),
			version            = excluded.version,
			updated_at         = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := nowUTC()
	for _, m := range batch {
		createdAt := m.FirstTimestamp
		if createdAt == "" {
			createdAt = now
		}
		updatedAt := m.LastTimestamp
		if updatedAt == "" {
			updatedAt = now
		}

		_, err := stmt.Exec(
			m.SessionID, m.Summary, m.ProjectPath, m.FilePath, m.MessageCount,
			m.TotalDurationMs, m.Model, m.LastScannedAtMs, schemaVersion, createdAt, updatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert indexed fields for %s: %w", m.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return s.touchMetadata()
}

// Delete removes a session row. This is the only path that ever deletes a
// row — the indexer never deletes even when the underlying file vanishes.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return err
	}
	return s.touchMetadata()
}

// List returns records matching q and the total count ignoring pagination.
func (s *Store) List(q ListQuery) ([]SessionRecord, int64, error) {
	var where []string
	var args []any

	if q.ProjectPath != nil {
		where = append(where, "project_path = ?")
		args = append(args, *q.ProjectPath)
	}
	if q.Archived != nil {
		where = append(where, "archived = ?")
		args = append(args, boolToInt(*q.Archived))
	}
	if q.Pinned != nil {
		where = append(where, "pinned = ?")
		args = append(args, boolToInt(*q.Pinned))
	}
	if q.HasContinuation != nil {
		if *q.HasContinuation {
			where = append(where, "continuation_session_id != ''")
		} else {
			where = append(where, "continuation_session_id = ''")
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM sessions " + whereClause
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderCol := "created_at"
	if q.OrderBy == "updatedAt" {
		orderCol = "updated_at"
	}
	orderDir := "DESC"
	if strings.EqualFold(q.OrderDir, "asc") {
		orderDir = "ASC"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	listQuery := fmt.Sprintf(`
		SELECT session_id, custom_name, pinned, archived, continuation_session_id,
			   initial_commit_head, permission_mode, summary, project_path, file_path,
			   message_count, total_duration_ms, model, last_scanned_at_ms,
			   version, created_at, updated_at
		FROM sessions %s
		ORDER BY %s %s
		LIMIT ? OFFSET ?
	`, whereClause, orderCol, orderDir)

	listArgs := append(append([]any{}, args...), limit, q.Offset)

	rows, err := s.db.Query(listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ArchiveAll sets archived=true on every currently-unarchived row in one
// transaction and returns the number of rows affected.
func (s *Store) ArchiveAll() (int64, error) {
	now := nowUTC()
	result, err := s.db.Exec(
		"UPDATE sessions SET archived = 1, updated_at = ? WHERE archived = 0",
		now,
	)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := s.touchMetadata(); err != nil {
		return 0, err
	}

	return affected, nil
}

// GetStats reports row count, approximate on-disk size, and the last write
// timestamp recorded in the bookkeeping table.
func (s *Store) GetStats() (Stats, error) {
	var stats Stats

	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.Count); err != nil {
		return stats, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.ByteSizeKB = (pageCount * pageSize) / 1024
		}
	}

	row := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'lastUpdated'")
	var lastUpdated sql.NullString
	if err := row.Scan(&lastUpdated); err == nil {
		stats.LastUpdated = lastUpdated.String
	}

	return stats, nil
}

// touchMetadata records schemaVersion/lastUpdated bookkeeping after any
// write to the sessions table.
func (s *Store) touchMetadata() error {
	now := nowUTC()
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES ('lastUpdated', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, now)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES ('schemaVersion', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, fmt.Sprintf("%d", schemaVersion))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
