package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// eventRow is the table layout for SQLiteStore. Seq preserves append order.
type eventRow struct {
	Seq         uint      `gorm:"primaryKey;autoIncrement"`
	DocumentID  string    `gorm:"uniqueIndex;size:36;not null"`
	Kind        string    `gorm:"size:32;not null"`
	DisplayName string    `gorm:"not null"`
	Text        string    `gorm:"not null"`
	Timestamp   time.Time `gorm:"not null"`
}

func (eventRow) TableName() string { return "chat_events" }

// SQLiteStore keeps the event log in a SQLite table through GORM.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// the events table. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLiteStore(db)
}

// NewSQLiteStore uses an already opened database.
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate events table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	row := eventRow{
		DocumentID:  uuid.New().String(),
		Kind:        string(rec.Kind),
		DisplayName: rec.DisplayName,
		Text:        rec.Text,
		Timestamp:   rec.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	var rows []eventRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			ID:          row.DocumentID,
			Kind:        Kind(row.Kind),
			DisplayName: row.DisplayName,
			Text:        row.Text,
			Timestamp:   row.Timestamp,
		})
	}
	return records, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
