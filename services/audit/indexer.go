package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lendledger/core/types"
)

// Record is one indexed ledger event.
type Record struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	EventID    string `gorm:"uniqueIndex;size:36"`
	Type       string `gorm:"index;size:64"`
	Height     uint64 `gorm:"index"`
	Attributes string // JSON-encoded attribute map
	CreatedAt  int64  `gorm:"autoCreateTime"`
}

// Indexer persists the node's event stream into SQLite so operators can query
// loan and pool history without replaying ledger state.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open creates or migrates the audit database at path.
func Open(path string, logger *slog.Logger) (*Indexer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &Indexer{db: db, logger: logger}, nil
}

// Run consumes events from ch until the context is cancelled or the channel
// closes. Indexing failures are logged and skipped so a bad row never stalls
// the stream.
func (i *Indexer) Run(ctx context.Context, ch <-chan *types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := i.Index(evt); err != nil {
				i.logger.Warn("audit index failed", "event", evt.ID, "type", evt.Type, "err", err)
			}
		}
	}
}

// Index writes one event. Re-indexing the same event id is a no-op.
func (i *Indexer) Index(evt *types.Event) error {
	if evt == nil {
		return nil
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	record := Record{
		EventID:    evt.ID,
		Type:       evt.Type,
		Height:     evt.Height,
		Attributes: string(attrs),
	}
	result := i.db.Where("event_id = ?", evt.ID).FirstOrCreate(&record)
	return result.Error
}

// ByType returns up to limit most recent events of the given type.
func (i *Indexer) ByType(eventType string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []Record
	err := i.db.Where("type = ?", eventType).Order("height desc").Limit(limit).Find(&records).Error
	return records, err
}

// ByHeightRange returns events between from and to inclusive, oldest first.
func (i *Indexer) ByHeightRange(from, to uint64) ([]Record, error) {
	var records []Record
	err := i.db.Where("height BETWEEN ? AND ?", from, to).Order("height asc").Find(&records).Error
	return records, err
}

// Count returns the number of indexed events.
func (i *Indexer) Count() (int64, error) {
	var n int64
	err := i.db.Model(&Record{}).Count(&n).Error
	return n, err
}

// Close releases the underlying database handle.
func (i *Indexer) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
