package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/internal/infrastructure/database"
)

// ReportRepository journals finalized reports and their delivery outcomes.
// The journal is an audit trail: the in-memory store stays authoritative for
// live sessions.
type ReportRepository struct {
	db *database.PostgresDB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.PostgresDB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EnsureSchema creates the journal tables when they do not exist.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS final_reports (
			session_id   TEXT PRIMARY KEY,
			scam_detected BOOLEAN NOT NULL,
			confidence    INT NOT NULL,
			messages      INT NOT NULL,
			intelligence  JSONB NOT NULL,
			tactics       JSONB NOT NULL,
			agent_notes   TEXT NOT NULL,
			finalized_at  TIMESTAMPTZ NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS report_deliveries (
			id          BIGSERIAL PRIMARY KEY,
			session_id  TEXT NOT NULL,
			status      TEXT NOT NULL,
			attempts    INT NOT NULL,
			last_error  TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_deliveries_session ON report_deliveries(session_id)`,
	}
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ensure report schema: %w", err)
	}
	return nil
}

// RecordReport upserts a finalized report keyed by session ID.
func (r *ReportRepository) RecordReport(ctx context.Context, report *models.FinalReport) error {
	intel, err := json.Marshal(report.Intelligence)
	if err != nil {
		return fmt.Errorf("failed to marshal intelligence: %w", err)
	}
	tactics, err := json.Marshal(report.Tactics)
	if err != nil {
		return fmt.Errorf("failed to marshal tactics: %w", err)
	}

	query := `
		INSERT INTO final_reports (
			session_id, scam_detected, confidence, messages,
			intelligence, tactics, agent_notes, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			scam_detected = EXCLUDED.scam_detected,
			confidence    = EXCLUDED.confidence,
			messages      = EXCLUDED.messages,
			intelligence  = EXCLUDED.intelligence,
			tactics       = EXCLUDED.tactics,
			agent_notes   = EXCLUDED.agent_notes,
			finalized_at  = EXCLUDED.finalized_at`

	if err := r.db.Exec(ctx, query,
		report.SessionID, report.ScamDetected, report.Confidence,
		report.TotalMessagesExchanged, intel, tactics,
		report.AgentNotes, report.FinalizedAt,
	); err != nil {
		return fmt.Errorf("failed to record report: %w", err)
	}
	return nil
}

// RecordDelivery appends a delivery outcome for a session.
func (r *ReportRepository) RecordDelivery(ctx context.Context, sessionID string, status models.DeliveryStatus, attempts int, lastError string) error {
	query := `
		INSERT INTO report_deliveries (session_id, status, attempts, last_error, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`

	if err := r.db.Exec(ctx, query, sessionID, string(status), attempts, lastError, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// JournaledReports returns the number of reports in the journal.
func (r *ReportRepository) JournaledReports(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM final_reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// FailedDeliveries lists session IDs whose most recent delivery failed,
// for manual re-trigger sweeps.
func (r *ReportRepository) FailedDeliveries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT DISTINCT ON (session_id) session_id, status
		FROM report_deliveries
		ORDER BY session_id, recorded_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var failed []string
	for rows.Next() {
		var sessionID, status string
		if err := rows.Scan(&sessionID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan delivery row: %w", err)
		}
		if status == string(models.DeliveryFailed) {
			failed = append(failed, sessionID)
		}
	}
	return failed, rows.Err()
}
