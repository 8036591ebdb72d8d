package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"todolist/internal/models"
)

// SQLiteStore implements the Store interface using SQLite. Each collection
// is a set of rows in a shared documents table.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	subs *subscribers
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for snapshot delivery failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *SQLiteStore) { s.logger = logger }
}

// WithClock overrides the clock used for updated_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(store)
	}
	store.subs = newSubscribers(store.logger)

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close releases every subscription and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.subs.closeAll()
	return s.db.Close()
}

// CreateItem inserts a new document and returns its generated id.
// A zero CreatedAt is replaced with the current time.
func (s *SQLiteStore) CreateItem(ctx context.Context, collection string, item models.Item) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}

	id := s.newID()
	now := s.now()
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, text, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, collection, id, item.Text, item.Completed, createdAt.UnixNano(), now.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to create item: %w", err)
	}

	s.publish(ctx, collection)
	return id, nil
}

// UpdateItem writes the non-nil fields of patch into an existing document.
func (s *SQLiteStore) UpdateItem(ctx context.Context, collection, id string, patch models.Patch) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{s.now().UnixNano()}
	if patch.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *patch.Text)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	args = append(args, collection, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE collection = ? AND id = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s/%s: %w", collection, id, ErrNotFound)
	}

	s.publish(ctx, collection)
	return nil
}

// DeleteItem deletes a document by id. Deleting a missing document is not
// an error.
func (s *SQLiteStore) DeleteItem(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		s.publish(ctx, collection)
	}
	return nil
}

// ListItems retrieves every document in a collection in the given order.
// Ties are broken by id so that repeated reads are identical.
func (s *SQLiteStore) ListItems(ctx context.Context, collection string, order OrderBy) ([]models.Item, error) {
	column, err := order.column()
	if err != nil {
		return nil, err
	}
	direction := "ASC"
	if order.Desc {
		direction = "DESC"
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, text, completed, created_at
		FROM documents WHERE collection = ?
		ORDER BY %s %s, id %s
	`, column, direction, direction), collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		var createdAt int64

		if err := rows.Scan(&item.ID, &item.Text, &item.Completed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.CreatedAt = time.Unix(0, createdAt).UTC()

		items = append(items, item)
	}

	return items, rows.Err()
}

// Subscribe registers fn for snapshots of collection and delivers the
// current contents before returning.
func (s *SQLiteStore) Subscribe(ctx context.Context, collection string, order OrderBy, fn SnapshotFunc) (func(), error) {
	if _, err := order.column(); err != nil {
		return nil, err
	}

	sub := s.subs.add(collection, order, fn)
	if err := s.subs.deliver(ctx, []*subscription{sub}, s.ListItems); err != nil {
		s.subs.remove(sub)
		return nil, fmt.Errorf("failed to deliver initial snapshot: %w", err)
	}

	return func() { s.subs.remove(sub) }, nil
}

func (s *SQLiteStore) publish(ctx context.Context, collection string) {
	subs := s.subs.forCollection(collection)
	if len(subs) == 0 {
		return
	}
	// The write has committed; a cancelled caller must not suppress the snapshot.
	if err := s.subs.deliver(context.WithoutCancel(ctx), subs, s.ListItems); err != nil {
		s.logger.Error("failed to publish snapshot",
			zap.String("collection", collection),
			zap.Error(err))
	}
}
