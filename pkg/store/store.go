// Package store archives finished investigations in PostgreSQL. The
// in-memory registry stays authoritative while an investigation runs; once
// it reaches a terminal state the assessment and audit timeline are written
// here so they survive retention eviction and process restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql

	"github.com/fraudsight/crosscheck/pkg/models"
)

// ErrNoRecord is returned when no archived investigation matches.
var ErrNoRecord = errors.New("no archived investigation")

// Record is one archived investigation.
type Record struct {
	InvestigationID string                            `json:"investigation_id"`
	FinalState      models.State                      `json:"final_state"`
	Assessment      *models.MultiEntityRiskAssessment `json:"assessment"`
	Timeline        []models.TimelineEvent            `json:"timeline"`
	ArchivedAt      time.Time                         `json:"archived_at"`
}

// Store is the PostgreSQL-backed assessment archive.
type Store struct {
	db *sql.DB
}

// DB returns the underlying connection pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// New opens a pooled connection, verifies it, and applies pending
// migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a terminal investigation. Re-archiving the same id replaces
// the stored row, so a retried archive after a partial failure is safe.
func (s *Store) Save(ctx context.Context, finalState models.State, assessment *models.MultiEntityRiskAssessment, events []models.TimelineEvent) error {
	if assessment == nil {
		return fmt.Errorf("nil assessment for archive")
	}

	assessmentJSON, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshaling assessment: %w", err)
	}
	timelineJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshaling timeline: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			investigation_id, final_state, overall_score, confidence,
			degraded, assessment, timeline, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (investigation_id) DO UPDATE SET
			final_state = EXCLUDED.final_state,
			overall_score = EXCLUDED.overall_score,
			confidence = EXCLUDED.confidence,
			degraded = EXCLUDED.degraded,
			assessment = EXCLUDED.assessment,
			timeline = EXCLUDED.timeline,
			archived_at = EXCLUDED.archived_at`,
		assessment.InvestigationID, string(finalState), assessment.OverallScore,
		assessment.Confidence, assessment.Degraded, assessmentJSON, timelineJSON,
	)
	if err != nil {
		return fmt.Errorf("archiving investigation %s: %w", assessment.InvestigationID, err)
	}
	return nil
}

// Get loads one archived investigation.
func (s *Store) Get(ctx context.Context, investigationID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT investigation_id, final_state, assessment, timeline, archived_at
		FROM assessments
		WHERE investigation_id = $1`, investigationID)
	return scanRecord(row)
}

// ListRecent returns the most recently archived investigations, newest
// first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT investigation_id, final_state, assessment, timeline, archived_at
		FROM assessments
		ORDER BY archived_at DESC, investigation_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing archived investigations: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes one archived investigation.
func (s *Store) Delete(ctx context.Context, investigationID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM assessments WHERE investigation_id = $1`, investigationID)
	if err != nil {
		return fmt.Errorf("deleting archived investigation %s: %w", investigationID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNoRecord, investigationID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec            Record
		state          string
		assessmentJSON []byte
		timelineJSON   []byte
	)
	err := row.Scan(&rec.InvestigationID, &state, &assessmentJSON, &timelineJSON, &rec.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("scanning archived investigation: %w", err)
	}

	rec.FinalState = models.State(state)
	if err := json.Unmarshal(assessmentJSON, &rec.Assessment); err != nil {
		return nil, fmt.Errorf("unmarshaling assessment: %w", err)
	}
	if err := json.Unmarshal(timelineJSON, &rec.Timeline); err != nil {
		return nil, fmt.Errorf("unmarshaling timeline: %w", err)
	}
	return &rec, nil
}
