package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the single-table schema backing the sqlite store.
type Record struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     []byte    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (Record) TableName() string {
	return "state_records"
}

// SQLite persists records in a local sqlite blob table.
type SQLite struct {
	db *gorm.DB
}

// NewSQLite migrates the blob table and returns the store.
func NewSQLite(db *gorm.DB, autoMigrate bool) (*SQLite, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm handle required")
	}
	if autoMigrate {
		if err := db.AutoMigrate(&Record{}); err != nil {
			return nil, fmt.Errorf("migrating state table: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var record Record
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading %s: %w", key, err)
	}
	return record.Value, true, nil
}

func (s *SQLite) Save(ctx context.Context, key string, blob []byte) error {
	record := Record{Key: key, Value: blob}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
