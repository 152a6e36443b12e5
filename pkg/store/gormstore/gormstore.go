// Package gormstore backs the store contract with a relational database
// through GORM. Records live in a single keyed table with an indexed
// secondary-lookup column.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkmark/inkmark/pkg/store"
)

// record is the table layout. IndexValue carries the secondary lookup key,
// empty for unindexed records.
type record struct {
	Key        string `gorm:"primaryKey"`
	IndexValue string `gorm:"index"`
	Value      []byte
	UpdatedAt  time.Time
}

func (record) TableName() string { return "inkmark_records" }

// Store implements store.Store on a GORM connection.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing GORM connection and migrates the schema.
// AutoMigrate only adds missing schema elements, so repeated calls are safe.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, index string) error {
	if s.db == nil {
		return store.ErrNotInitialized
	}

	rec := record{Key: key, IndexValue: index, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, store.ErrNotInitialized
	}

	var rec record
	err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get %q: %w", key, store.ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return rec.Value, nil
}

func (s *Store) GetAll(ctx context.Context) (map[string][]byte, error) {
	if s.db == nil {
		return nil, store.ErrNotInitialized
	}

	var recs []record
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get all records: %w", err)
	}

	out := make(map[string][]byte, len(recs))
	for _, rec := range recs {
		out[rec.Key] = rec.Value
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return store.ErrNotInitialized
	}

	if err := s.db.WithContext(ctx).Delete(&record{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) FindByIndex(ctx context.Context, index string) (map[string][]byte, error) {
	if s.db == nil {
		return nil, store.ErrNotInitialized
	}

	var recs []record
	err := s.db.WithContext(ctx).Where("index_value = ?", index).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find by index %q: %w", index, err)
	}

	out := make(map[string][]byte, len(recs))
	for _, rec := range recs {
		out[rec.Key] = rec.Value
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
