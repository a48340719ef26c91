package bookmarks

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/linkvault-app/linkvault-back/internal/db"
)

// GormStore is the durable Store over postgres. Consistency is delegated
// to the database: delete and update are single conditional statements,
// so an ownership check cannot race with a concurrent mutation.
type GormStore struct {
	db     *gorm.DB
	broker *Broker
}

func NewGormStore(gdb *gorm.DB, broker *Broker) *GormStore {
	return &GormStore{
		db:     gdb,
		broker: broker,
	}
}

func (s *GormStore) List(ctx context.Context, ownerID string) ([]Bookmark, error) {
	sql, args, err := squirrel.
		Select("id", "user_id", "url", "title", "created_at", "updated_at").
		From("bookmarks").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]db.Bookmark, 0)
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	out := make([]Bookmark, len(rows))
	for i := range rows {
		out[i] = fromRow(&rows[i])
	}
	return out, nil
}

func (s *GormStore) Add(ctx context.Context, ownerID, rawURL, title string) (*Bookmark, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	t, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := db.Bookmark{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		URL:       u,
		Title:     t,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res := s.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "create bookmark")
	}

	b := fromRow(&row)
	s.broker.Publish(Event{Op: OpInsert, Bookmark: b})
	return &b, nil
}

func (s *GormStore) Update(ctx context.Context, ownerID, id string, patch Patch) (*Bookmark, error) {
	if patch.URL == nil && patch.Title == nil {
		return nil, &ValidationError{Reason: "nothing to update"}
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if patch.URL != nil {
		u, err := normalizeURL(*patch.URL)
		if err != nil {
			return nil, err
		}
		updates["url"] = u
	}
	if patch.Title != nil {
		t, err := normalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = t
	}

	// Ownership predicate and mutation in one statement.
	res := s.db.WithContext(ctx).
		Model(&db.Bookmark{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update bookmark")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	row := db.Bookmark{}
	res = s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&row)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "reload bookmark")
	}

	b := fromRow(&row)
	s.broker.Publish(Event{Op: OpUpdate, Bookmark: b})
	return &b, nil
}

func (s *GormStore) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	// Single conditional delete: the row is removed only if the ownership
	// predicate holds at commit time. RowsAffected == 0 covers missing and
	// foreign-owned records alike.
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&db.Bookmark{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "delete bookmark")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.broker.Publish(Event{Op: OpDelete, Bookmark: Bookmark{ID: id, OwnerID: ownerID}})
	return true, nil
}

func fromRow(row *db.Bookmark) Bookmark {
	return Bookmark{
		ID:        row.ID,
		OwnerID:   row.UserID,
		URL:       row.URL,
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
