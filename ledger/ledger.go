// Package ledger keeps the local durable record of bookings, escalations
// and security incidents. The spreadsheet is the business-facing log; the
// ledger backs the daily digest and post-hoc review.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/room4-2/frontdesk/notify"
)

// Booking is one committed booking snapshot.
type Booking struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:64;index"`
	Fields    string    `gorm:"type:text"` // JSON of the committed snapshot
	CreatedAt time.Time `gorm:"index"`
}

// Escalation is one hand-off to a human.
type Escalation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:64;index"`
	Route     string    `gorm:"size:32"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// Incident is one screened-out input.
type Incident struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:64;index"`
	Category  string    `gorm:"size:32"`
	Pattern   string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"index"`
}

// Store wraps the ledger database.
type Store struct {
	db *gorm.DB
}

// Open connects and migrates the ledger. The driver is picked by DSN shape:
// a mysql DSN contains "@tcp(", anything else is treated as a sqlite path.
func Open(dsn string) (*Store, error) {
	var dial gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dial = mysql.Open(dsn)
	} else {
		dial = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	if err := db.AutoMigrate(&Booking{}, &Escalation{}, &Incident{}); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveBooking records a committed booking.
func (s *Store) SaveBooking(ctx context.Context, userID string, fields map[string]string) error {
	payload, err := sonic.MarshalString(fields)
	if err != nil {
		return fmt.Errorf("ledger: encode booking: %w", err)
	}
	rec := Booking{UserID: userID, Fields: payload}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("ledger: save booking: %w", err)
	}
	return nil
}

// SaveEscalation records a hand-off to a human.
func (s *Store) SaveEscalation(ctx context.Context, userID, route, message string) error {
	rec := Escalation{UserID: userID, Route: route, Message: message}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("ledger: save escalation: %w", err)
	}
	return nil
}

// SaveIncident records a screened-out input.
func (s *Store) SaveIncident(ctx context.Context, userID, category, pattern string) error {
	rec := Incident{UserID: userID, Category: category, Pattern: pattern}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("ledger: save incident: %w", err)
	}
	return nil
}

// DayStats counts activity inside [since, until) for the digest.
func (s *Store) DayStats(ctx context.Context, since, until time.Time) (notify.DayStats, error) {
	var stats notify.DayStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&Booking{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&stats.Bookings).Error; err != nil {
		return stats, fmt.Errorf("ledger: count bookings: %w", err)
	}
	if err := db.Model(&Escalation{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&stats.Escalations).Error; err != nil {
		return stats, fmt.Errorf("ledger: count escalations: %w", err)
	}
	if err := db.Model(&Incident{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&stats.Incidents).Error; err != nil {
		return stats, fmt.Errorf("ledger: count incidents: %w", err)
	}
	return stats, nil
}

// BookingsFor returns a user's committed bookings, newest first.
func (s *Store) BookingsFor(ctx context.Context, userID string, limit int) ([]Booking, error) {
	var rows []Booking
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ledger: load bookings: %w", err)
	}
	return rows, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
