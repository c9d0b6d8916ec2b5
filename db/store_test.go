package db

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func TestStore_GetInitializesDefaultRow(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Get("sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.SessionID != "sess-1" {
		t.Errorf("expected session id sess-1, got %s", rec.SessionID)
	}
	if rec.PermissionMode != "default" {
		t.Errorf("expected default permission mode, got %q", rec.PermissionMode)
	}
	if rec.Model != "Unknown" {
		t.Errorf("expected default model Unknown, got %q", rec.Model)
	}

	// Repeated Get must not duplicate or reset the row.
	if _, err := s.Get("sess-1"); err != nil {
		t.Fatalf("get again: %v", err)
	}
	records, total, err := s.List(ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("expected exactly one row, got total=%d len=%d", total, len(records))
	}
}

func TestStore_UserFieldsSurviveIndexedUpsert(t *testing.T) {
	s := newTestStore(t)

	name := "demo"
	if _, err := s.UpsertUserFields("sess-1", UserFieldsPatch{CustomName: &name}); err != nil {
		t.Fatalf("upsert user fields: %v", err)
	}

	if err := s.UpsertIndexedFields([]IndexedMetadata{{
		SessionID:       "sess-1",
		Summary:         "hi",
		ProjectPath:     "/p",
		MessageCount:    2,
		TotalDurationMs: 300,
		Model:           "m-1",
		FirstTimestamp:  "2024-01-01T00:00:00Z",
		LastTimestamp:   "2024-01-01T00:00:01Z",
	}}); err != nil {
		t.Fatalf("upsert indexed fields: %v", err)
	}

	rec, err := s.Get("sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.CustomName != "demo" {
		t.Errorf("expected custom name to survive indexer upsert, got %q", rec.CustomName)
	}
	if rec.MessageCount != 2 || rec.TotalDurationMs != 300 || rec.Model != "m-1" {
		t.Errorf("unexpected indexed fields: %+v", rec)
	}
}

func TestStore_IndexedUpsertDoesNotClobberLaterUserWrite(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertIndexedFields([]IndexedMetadata{{
		SessionID: "sess-1",
		Summary:   "first",
		Model:     "m-1",
	}}); err != nil {
		t.Fatalf("upsert indexed fields: %v", err)
	}

	pinned := true
	if _, err := s.UpsertUserFields("sess-1", UserFieldsPatch{Pinned: &pinned}); err != nil {
		t.Fatalf("upsert user fields: %v", err)
	}

	if err := s.UpsertIndexedFields([]IndexedMetadata{{
		SessionID: "sess-1",
		Summary:   "second",
		Model:     "m-1",
	}}); err != nil {
		t.Fatalf("upsert indexed fields: %v", err)
	}

	rec, err := s.Get("sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.Pinned {
		t.Errorf("expected pinned to survive a subsequent indexer upsert")
	}
	if rec.Summary != "second" {
		t.Errorf("expected indexed summary to update to %q, got %q", "second", rec.Summary)
	}
}

func TestStore_ListFiltersAndPaginates(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.UpsertIndexedFields([]IndexedMetadata{{
			SessionID:   id,
			ProjectPath: "/proj",
		}}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	archived := true
	if _, err := s.UpsertUserFields("b", UserFieldsPatch{Archived: &archived}); err != nil {
		t.Fatalf("archive b: %v", err)
	}

	notArchived := false
	records, total, err := s.List(ListQuery{Archived: &notArchived})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("expected 2 unarchived records, got total=%d len=%d", total, len(records))
	}

	limited, total, err := s.List(ListQuery{Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total count to ignore pagination, got %d", total)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 record with limit=1, got %d", len(limited))
	}
}

func TestStore_ArchiveAll(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"a", "b"} {
		if _, err := s.Get(id); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	affected, err := s.ArchiveAll()
	if err != nil {
		t.Fatalf("archive all: %v", err)
	}
	if affected != 2 {
		t.Errorf("expected 2 rows affected, got %d", affected)
	}

	archived := true
	_, total, err := s.List(ListQuery{Archived: &archived})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if total != 2 {
		t.Errorf("expected both rows archived, got %d", total)
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get("sess-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := s.Delete("sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, total, err := s.List(ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 rows after delete, got %d", total)
	}
}
