package localstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ Store = (*Client)(nil) // Ensure Client implements Store

// Entry is one serialized value of the local cache.
type Entry struct {
	Name      string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName overrides the gorm table name.
func (Entry) TableName() string {
	return "local_entries"
}

// Client wraps the gorm.DB instance.
type Client struct {
	db *gorm.DB
}

// New opens the sqlite database and performs migrations.
func New(dbpath string) (*Client, error) {
	if dir := filepath.Dir(dbpath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbpath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Client{db: db}, nil
}

// Get returns the raw value stored under name.
func (c *Client) Get(ctx context.Context, name string) ([]byte, error) {
	var entry Entry
	err := c.db.WithContext(ctx).Where("name = ?", name).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Value, nil
}

// Set upserts the value stored under name.
func (c *Client) Set(ctx context.Context, name string, value []byte) error {
	entry := Entry{
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
}

// Delete removes the value stored under name.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.db.WithContext(ctx).Where("name = ?", name).Delete(&Entry{}).Error
}

// Entries returns the metadata of every stored entry, without values.
func (c *Client) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := c.db.WithContext(ctx).
		Select("name", "updated_at").
		Order("name").
		Find(&entries).Error
	return entries, err
}

// Close closes the underlying database connection.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
