package alerts

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// alertRecord is the row layout of the alerts table. Seq preserves
// insertion order independently of timestamps.
type alertRecord struct {
	Seq         uint      `gorm:"primaryKey;autoIncrement"`
	AlertID     string    `gorm:"column:alert_id;uniqueIndex;size:64"`
	Type        string    `gorm:"index;size:32"`
	Severity    string    `gorm:"index;size:16"`
	Timestamp   time.Time `gorm:"column:raised_at;index"`
	Title       string    `gorm:"type:text"`
	Description string    `gorm:"type:text"`
	TargetSite  string    `gorm:"size:256"`
	MatchURL    string    `gorm:"size:2048"`
	Similarity  *int
	Read        bool   `gorm:"column:is_read;index"`
	AssetID     string `gorm:"index;size:64"`
}

func (alertRecord) TableName() string { return "alerts" }

func toRecord(a *model.ContentAlert) alertRecord {
	return alertRecord{
		AlertID:     a.ID,
		Type:        string(a.Type),
		Severity:    string(a.Severity),
		Timestamp:   a.Timestamp.UTC(),
		Title:       a.Title,
		Description: a.Description,
		TargetSite:  a.TargetSite,
		MatchURL:    a.MatchURL,
		Similarity:  a.Similarity,
		Read:        a.Read,
		AssetID:     a.AssetID,
	}
}

func (r alertRecord) toModel() *model.ContentAlert {
	return &model.ContentAlert{
		ID:          r.AlertID,
		Type:        model.AlertType(r.Type),
		Severity:    model.Severity(r.Severity),
		Timestamp:   r.Timestamp,
		Title:       r.Title,
		Description: r.Description,
		TargetSite:  r.TargetSite,
		MatchURL:    r.MatchURL,
		Similarity:  r.Similarity,
		Read:        r.Read,
		AssetID:     r.AssetID,
	}
}

// SQLiteRepository persists alerts in a SQLite file through GORM.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens (or creates) the alert database at path and
// migrates its schema. path can be ":memory:".
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening alert database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening alert database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&alertRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating alert database: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) InsertAlert(alert *model.ContentAlert) error {
	rec := toRecord(alert)
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting alert %s: %w", alert.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListAlerts() ([]*model.ContentAlert, error) {
	var recs []alertRecord
	if err := r.db.Order("seq DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	out := make([]*model.ContentAlert, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// TrimAlerts deletes every row older than the capacity-th newest one.
func (r *SQLiteRepository) TrimAlerts(capacity int) (int, error) {
	if capacity <= 0 {
		res := r.db.Where("1 = 1").Delete(&alertRecord{})
		return int(res.RowsAffected), res.Error
	}

	var cutoff alertRecord
	err := r.db.Order("seq DESC").Offset(capacity - 1).Limit(1).Take(&cutoff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("finding eviction cutoff: %w", err)
	}

	res := r.db.Where("seq < ?", cutoff.Seq).Delete(&alertRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("evicting alerts: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *SQLiteRepository) MarkAlertRead(id string) (bool, error) {
	res := r.db.Model(&alertRecord{}).Where("alert_id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return false, fmt.Errorf("marking alert %s read: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SQLiteRepository) DeleteAllAlerts() error {
	if err := r.db.Where("1 = 1").Delete(&alertRecord{}).Error; err != nil {
		return fmt.Errorf("deleting alerts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountUnreadAlerts() (int, error) {
	var n int64
	if err := r.db.Model(&alertRecord{}).Where("is_read = ?", false).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting unread alerts: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying connection.
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Compile-time check that SQLiteRepository implements shield.AlertRepository interface
var _ shield.AlertRepository = (*SQLiteRepository)(nil)
