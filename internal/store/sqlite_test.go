package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"todolist/internal/models"
)

const testCollection = "todos"

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// recorder collects snapshots delivered to a subscription.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.Item
}

func (r *recorder) record(items []models.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, items)
}

func (r *recorder) all() [][]models.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]models.Item(nil), r.snapshots...)
}

func (r *recorder) last(t *testing.T) []models.Item {
	t.Helper()
	all := r.all()
	if len(all) == 0 {
		t.Fatal("expected at least one snapshot")
	}
	return all[len(all)-1]
}

func TestCreateItem(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, err := store.CreateItem(ctx, testCollection, models.Item{Text: "buy milk"})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected id to be assigned")
	}

	items, err := store.ListItems(ctx, testCollection, NewestFirst)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != id || items[0].Text != "buy milk" || items[0].Completed {
		t.Errorf("unexpected item: %+v", items[0])
	}
	if items[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestCreateItem_RejectsBlankText(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.CreateItem(context.Background(), testCollection, models.Item{Text: "   "})
	if !errors.Is(err, models.ErrTextRequired) {
		t.Fatalf("expected ErrTextRequired, got %v", err)
	}
}

func TestCreateItem_UniqueIDs(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := store.CreateItem(ctx, testCollection, models.Item{Text: "task"})
		if err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestListItems_NewestFirst(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		_, err := store.CreateItem(ctx, testCollection, models.Item{
			Text:      text,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}
	}

	items, err := store.ListItems(ctx, testCollection, NewestFirst)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}

	expected := []string{"third", "second", "first"}
	for i, item := range items {
		if item.Text != expected[i] {
			t.Errorf("position %d: expected %q, got %q", i, expected[i], item.Text)
		}
	}
	if !items[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected created_at to round-trip, got %v", items[0].CreatedAt)
	}
}

func TestListItems_InvalidOrder(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.ListItems(context.Background(), testCollection, OrderBy{Field: "priority"})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
}

func TestListItems_CollectionsAreIsolated(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.CreateItem(ctx, "work", models.Item{Text: "ship it"})
	store.CreateItem(ctx, "home", models.Item{Text: "water plants"})

	items, err := store.ListItems(ctx, "work", NewestFirst)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Text != "ship it" {
		t.Fatalf("expected only the work item, got %+v", items)
	}
}

func TestUpdateItem(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, _ := store.CreateItem(ctx, testCollection, models.Item{Text: "draft"})

	if err := store.UpdateItem(ctx, testCollection, id, models.SetCompleted(true)); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if err := store.UpdateItem(ctx, testCollection, id, models.SetText("final")); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	items, _ := store.ListItems(ctx, testCollection, NewestFirst)
	if items[0].Text != "final" {
		t.Errorf("expected text 'final', got %q", items[0].Text)
	}
	if !items[0].Completed {
		t.Error("expected completed to be preserved across text update")
	}
}

func TestUpdateItem_AllowsEmptyText(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, _ := store.CreateItem(ctx, testCollection, models.Item{Text: "draft"})

	if err := store.UpdateItem(ctx, testCollection, id, models.SetText("")); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	store := setupTestDB(t)

	err := store.UpdateItem(context.Background(), testCollection, "missing", models.SetCompleted(true))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	keep, _ := store.CreateItem(ctx, testCollection, models.Item{Text: "keep"})
	drop, _ := store.CreateItem(ctx, testCollection, models.Item{Text: "drop"})

	if err := store.DeleteItem(ctx, testCollection, drop); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	items, _ := store.ListItems(ctx, testCollection, NewestFirst)
	if len(items) != 1 || items[0].ID != keep {
		t.Fatalf("expected only %s to remain, got %+v", keep, items)
	}
}

func TestDeleteItem_MissingIsNotAnError(t *testing.T) {
	store := setupTestDB(t)

	if err := store.DeleteItem(context.Background(), testCollection, "missing"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestSubscribe_DeliversInitialSnapshot(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.CreateItem(ctx, testCollection, models.Item{Text: "existing"})

	rec := &recorder{}
	unsubscribe, err := store.Subscribe(ctx, testCollection, NewestFirst, rec.record)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	snapshots := rec.all()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if len(snapshots[0]) != 1 || snapshots[0][0].Text != "existing" {
		t.Fatalf("unexpected initial snapshot: %+v", snapshots[0])
	}
}

func TestSubscribe_SnapshotAfterEachWrite(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe, err := store.Subscribe(ctx, testCollection, NewestFirst, rec.record)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	id, _ := store.CreateItem(ctx, testCollection, models.Item{Text: "task"})
	if got := rec.last(t); len(got) != 1 || got[0].ID != id {
		t.Fatalf("expected snapshot with created item, got %+v", got)
	}

	store.UpdateItem(ctx, testCollection, id, models.SetCompleted(true))
	if got := rec.last(t); !got[0].Completed {
		t.Fatalf("expected snapshot with completed item, got %+v", got)
	}

	store.DeleteItem(ctx, testCollection, id)
	if got := rec.last(t); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}

	if n := len(rec.all()); n != 4 {
		t.Errorf("expected 4 snapshots, got %d", n)
	}
}

func TestSubscribe_OtherCollectionDoesNotNotify(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe, _ := store.Subscribe(ctx, testCollection, NewestFirst, rec.record)
	defer unsubscribe()

	store.CreateItem(ctx, "elsewhere", models.Item{Text: "task"})

	if n := len(rec.all()); n != 1 {
		t.Errorf("expected only the initial snapshot, got %d", n)
	}
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe, _ := store.Subscribe(ctx, testCollection, NewestFirst, rec.record)
	unsubscribe()
	unsubscribe()

	store.CreateItem(ctx, testCollection, models.Item{Text: "task"})

	if n := len(rec.all()); n != 1 {
		t.Errorf("expected no snapshots after unsubscribe, got %d total", n)
	}
	if n := store.subs.count(); n != 0 {
		t.Errorf("expected no registered subscriptions, got %d", n)
	}
}

func TestSubscribe_InvalidOrder(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Subscribe(context.Background(), testCollection, OrderBy{Field: "nope"}, func([]models.Item) {})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if n := store.subs.count(); n != 0 {
		t.Errorf("expected failed subscribe to leave no registration, got %d", n)
	}
}

func TestSubscribe_SnapshotsAreIndependentCopies(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	store.CreateItem(ctx, testCollection, models.Item{Text: "shared"})

	a, b := &recorder{}, &recorder{}
	unsubA, _ := store.Subscribe(ctx, testCollection, NewestFirst, a.record)
	defer unsubA()
	unsubB, _ := store.Subscribe(ctx, testCollection, NewestFirst, b.record)
	defer unsubB()

	store.CreateItem(ctx, testCollection, models.Item{Text: "another"})

	snapA := a.last(t)
	snapA[0].Text = "mutated"
	if b.last(t)[0].Text == "mutated" {
		t.Fatal("expected subscribers to receive independent slices")
	}
}

func TestClose_ReleasesSubscriptions(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	store.Subscribe(context.Background(), testCollection, NewestFirst, func([]models.Item) {})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := store.subs.count(); n != 0 {
		t.Errorf("expected no subscriptions after Close, got %d", n)
	}
}

func TestNewSQLiteStore_ReopenPreservesDataAndMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "todos.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	id, err := first.CreateItem(ctx, testCollection, models.Item{Text: "persisted"})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	items, err := second.ListItems(ctx, testCollection, NewestFirst)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("expected persisted item, got %+v", items)
	}

	var migrationCount int
	if err := second.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&migrationCount); err != nil {
		t.Fatalf("failed to count schema migrations: %v", err)
	}
	if migrationCount != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", migrationCount)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  int
		name     string
		wantErr  bool
	}{
		{filename: "001_create_documents.sql", version: 1, name: "create_documents"},
		{filename: "12_add_index.sql", version: 12, name: "add_index"},
		{filename: "nounderscore.sql", wantErr: true},
		{filename: "abc_name.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, err := parseMigrationFilename(tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if version != tt.version || name != tt.name {
				t.Errorf("expected (%d, %q), got (%d, %q)", tt.version, tt.name, version, name)
			}
		})
	}
}
