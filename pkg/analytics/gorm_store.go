package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const migrateLockID int64 = 48215731

// UserModel is a row of the analytics users table.
type UserModel struct {
	ID         string    `gorm:"primaryKey"`
	UserID     string    `gorm:"uniqueIndex;not null"`
	Username   string    `gorm:"not null"`
	Email      string
	Department string    `gorm:"index"`
	Hostel     string
	SignedUpAt time.Time `gorm:"not null;index"`
}

func (UserModel) TableName() string { return "users" }

// QueryModel is a row of the analytics queries table.
type QueryModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Username  string
	Kind      string `gorm:"not null;index"`
	Query     string `gorm:"not null"`
	Matched   bool   `gorm:"not null"`
	Details   datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
}

func (QueryModel) TableName() string { return "queries" }

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and migrates the analytics tables under an advisory lock
// so several instances can start together.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		return tx.AutoMigrate(&UserModel{}, &QueryModel{})
	}); err != nil {
		return nil, fmt.Errorf("migrate analytics tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) SaveSignup(ctx context.Context, ev SignupEvent) error {
	model := UserModel{
		ID:         ev.ID,
		UserID:     ev.UserID,
		Username:   ev.Username,
		Email:      ev.Email,
		Department: ev.Department,
		Hostel:     ev.Hostel,
		SignedUpAt: ev.At.UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

func (s *GormStore) SaveQuery(ctx context.Context, ev QueryEvent) error {
	model := QueryModel{
		ID:        ev.ID,
		UserID:    ev.UserID,
		Username:  ev.Username,
		Kind:      ev.Kind,
		Query:     ev.Query,
		Matched:   ev.Matched,
		CreatedAt: ev.At.UTC(),
	}
	if len(ev.Details) > 0 {
		raw, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("encode query details: %w", err)
		}
		model.Details = datatypes.JSON(raw)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

func (s *GormStore) ListUsers(ctx context.Context, limit int) ([]UserRow, error) {
	var models []UserModel
	q := s.db.WithContext(ctx).Order("signed_up_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]UserRow, 0, len(models))
	for _, m := range models {
		out = append(out, UserRow{
			ID:         m.ID,
			UserID:     m.UserID,
			Username:   m.Username,
			Email:      m.Email,
			Department: m.Department,
			Hostel:     m.Hostel,
			SignedUpAt: m.SignedUpAt,
		})
	}
	return out, nil
}

func (s *GormStore) ListQueries(ctx context.Context, limit int) ([]QueryRow, error) {
	var models []QueryModel
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]QueryRow, 0, len(models))
	for _, m := range models {
		out = append(out, QueryRow{
			ID:        m.ID,
			UserID:    m.UserID,
			Username:  m.Username,
			Kind:      m.Kind,
			Query:     m.Query,
			Matched:   m.Matched,
			Details:   json.RawMessage(m.Details),
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}
