package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agora/internal/observability"
)

// DocumentRow is the relational shape of one document. Fields are stored as
// a JSON blob; the collection column is what queries and subscriptions scan.
type DocumentRow struct {
	Path       string `gorm:"primaryKey;size:512"`
	Collection string `gorm:"index;size:512;not null"`
	DocID      string `gorm:"size:128;not null"`
	Fields     string `gorm:"type:text;not null"`
	UpdatedAt  time.Time
}

// TableName overrides the gorm default.
func (DocumentRow) TableName() string { return "documents" }

// GormStore persists documents in a relational database via gorm and drives
// subscriptions by re-querying a collection whenever its changefeed fires.
// Snapshots reflect the committed state at the time of each re-query.
type GormStore struct {
	db   *gorm.DB
	feed Changefeed
	log  *observability.StoreLogger

	mu sync.Mutex
}

// NewGormStore migrates the documents table and returns a ready store. When
// feed is nil a local in-process changefeed is used.
func NewGormStore(db *gorm.DB, feed Changefeed) (*GormStore, error) {
	if err := db.AutoMigrate(&DocumentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	if feed == nil {
		feed = NewLocalChangefeed()
	}
	return &GormStore{db: db, feed: feed, log: observability.NewStoreLogger("gorm")}, nil
}

func (s *GormStore) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (CancelFunc, error) {
	w := &watcher{query: q, fn: fn}

	// refreshes are serialized per watcher so a slow query cannot enqueue an
	// older result set after a newer one.
	var refreshMu sync.Mutex
	refresh := func() {
		refreshMu.Lock()
		defer refreshMu.Unlock()
		docs, err := s.ListOnce(context.WithoutCancel(ctx), q)
		if err != nil {
			return
		}
		w.enqueue(docs)
		w.drain()
	}

	feedCancel, err := s.feed.Subscribe(ctx, q.Collection, refresh)
	if err != nil {
		return nil, err
	}
	s.log.LogSubscribe(ctx, q.Collection, "open")

	refresh() // initial snapshot

	var once sync.Once
	return func() {
		once.Do(func() {
			feedCancel()
			w.cancel()
			s.log.LogSubscribe(context.Background(), q.Collection, "close")
		})
	}, nil
}

func (s *GormStore) GetOnce(ctx context.Context, path string) (*Document, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).First(&row, "path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToDocument(row)
}

func (s *GormStore) Write(ctx context.Context, path string, fields map[string]any, merge bool) error {
	collection, id, ok := CollectionOf(path)
	if !ok {
		return fmt.Errorf("store: invalid document path %q", path)
	}
	op := "set"
	if merge {
		op = "merge"
	}
	defer observability.TrackWrite(op)()

	// Merge requires read-modify-write; a single mutex keeps same-instance
	// writers from clobbering each other's merges. Cross-instance writers
	// still race, which is why map-valued fields merge per key.
	s.mu.Lock()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := fields
		if merge {
			var existing DocumentRow
			ferr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&existing, "path = ?", path).Error
			switch {
			case ferr == nil:
				decoded, derr := decodeFields(existing.Fields)
				if derr != nil {
					return derr
				}
				next = MergeFields(decoded, fields)
			case errors.Is(ferr, gorm.ErrRecordNotFound):
				next = MergeFields(map[string]any{}, fields)
			default:
				return ferr
			}
		}
		encoded, merr := json.Marshal(next)
		if merr != nil {
			return merr
		}
		row := DocumentRow{
			Path:       path,
			Collection: collection,
			DocID:      id,
			Fields:     string(encoded),
			UpdatedAt:  time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
		}).Create(&row).Error
	})
	s.mu.Unlock()
	if err != nil {
		s.log.LogError(ctx, err, "write")
		return err
	}
	s.log.LogWrite(ctx, path, merge)

	return s.feed.Publish(ctx, collection)
}

func (s *GormStore) Delete(ctx context.Context, path string) error {
	collection, _, ok := CollectionOf(path)
	if !ok {
		return fmt.Errorf("store: invalid document path %q", path)
	}
	defer observability.TrackWrite("delete")()
	res := s.db.WithContext(ctx).Delete(&DocumentRow{}, "path = ?", path)
	if res.Error != nil {
		s.log.LogError(ctx, res.Error, "delete")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already deleted; idempotent
	}
	s.log.LogDelete(ctx, path)
	return s.feed.Publish(ctx, collection)
}

func (s *GormStore) ListOnce(ctx context.Context, q Query) ([]Document, error) {
	var rows []DocumentRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", q.Collection).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := rowToDocument(row)
		if err != nil {
			return nil, err
		}
		if !matches(q, *doc) {
			continue
		}
		out = append(out, *doc)
	}
	sortDocs(q, out)
	return out, nil
}

func rowToDocument(row DocumentRow) (*Document, error) {
	fields, err := decodeFields(row.Fields)
	if err != nil {
		return nil, err
	}
	return &Document{
		Path:      row.Path,
		ID:        row.DocID,
		Fields:    fields,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func decodeFields(encoded string) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(encoded), &fields); err != nil {
		return nil, fmt.Errorf("decode document fields: %w", err)
	}
	return fields, nil
}
