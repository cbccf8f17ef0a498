package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"mirathi/internal/readiness/models"
	"mirathi/internal/sentinel"
	"mirathi/pkg/domain"
	txcontext "mirathi/pkg/platform/tx"
)

// PostgresStore persists assessments in PostgreSQL. The aggregate is stored
// whole as a JSONB document; a few columns are extracted for indexed
// lookups, and risk flags are projected into a child table so the sweep
// worker can find due deadlines without decoding every aggregate.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed assessment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed assessment store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer resolves the executor for one statement: a store-bound transaction
// first, then a context-carried transaction from a service StoreTx boundary,
// then the pool.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// withTx runs fn inside the bound or context-carried transaction if one
// exists, otherwise inside a fresh transaction. The assessment row and its
// risk flag projection must always move together.
func (s *PostgresStore) withTx(ctx context.Context, fn func(exec dbExecutor) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assessment tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, assessment *models.ReadinessAssessment) error {
	if assessment == nil {
		return fmt.Errorf("assessment is required")
	}
	payload, err := json.Marshal(assessment.ToState())
	if err != nil {
		return fmt.Errorf("encode assessment state: %w", err)
	}
	return s.withTx(ctx, func(exec dbExecutor) error {
		query := `
			INSERT INTO assessments (id, estate_id, status, score, is_complete, version, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := exec.ExecContext(ctx, query,
			uuid.UUID(assessment.ID),
			uuid.UUID(assessment.EstateID),
			string(assessment.Score.Status),
			assessment.Score.Score,
			assessment.IsComplete,
			assessment.Version,
			payload,
			assessment.CreatedAt,
			assessment.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("estate already has an assessment: %w", sentinel.ErrAlreadyExists)
			}
			return fmt.Errorf("create assessment: %w", err)
		}
		return projectRiskFlags(ctx, exec, assessment)
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, assessmentID domain.AssessmentID) (*models.ReadinessAssessment, error) {
	return s.findBy(ctx, `SELECT state FROM assessments WHERE id = $1`, uuid.UUID(assessmentID))
}

func (s *PostgresStore) FindByEstate(ctx context.Context, estateID domain.EstateID) (*models.ReadinessAssessment, error) {
	return s.findBy(ctx, `SELECT state FROM assessments WHERE estate_id = $1`, uuid.UUID(estateID))
}

func (s *PostgresStore) findBy(ctx context.Context, query string, arg any) (*models.ReadinessAssessment, error) {
	var payload []byte
	if err := s.execer(ctx).QueryRowContext(ctx, query, arg).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assessment: %w", err)
	}
	return decodeAssessment(payload)
}

// Update persists a mutated aggregate guarded by its version: the row is
// written only while the stored version still matches the version the
// caller loaded. On success the version advances by one on the caller's
// aggregate; a zero-row update is disambiguated into not-found or conflict.
func (s *PostgresStore) Update(ctx context.Context, assessment *models.ReadinessAssessment) error {
	if assessment == nil {
		return fmt.Errorf("assessment is required")
	}
	expected := assessment.Version
	st := assessment.ToState()
	st.Version = expected + 1
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode assessment state: %w", err)
	}
	err = s.withTx(ctx, func(exec dbExecutor) error {
		query := `
			UPDATE assessments
			SET status = $3, score = $4, is_complete = $5, version = $6, state = $7, updated_at = $8
			WHERE id = $1 AND version = $2
		`
		res, err := exec.ExecContext(ctx, query,
			uuid.UUID(assessment.ID),
			expected,
			string(assessment.Score.Status),
			assessment.Score.Score,
			assessment.IsComplete,
			expected+1,
			payload,
			assessment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update assessment: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update assessment rows: %w", err)
		}
		if rows == 0 {
			return staleWriteError(ctx, exec, assessment.ID)
		}
		return projectRiskFlags(ctx, exec, assessment)
	})
	if err != nil {
		return err
	}
	assessment.Version = expected + 1
	return nil
}

// ListSweepDue returns IDs of open assessments holding at least one active
// flag whose auto-resolve deadline is at or before due. A limit of zero
// means no cap. The projection table answers this without loading any
// aggregate state.
func (s *PostgresStore) ListSweepDue(ctx context.Context, due time.Time, limit int) ([]domain.AssessmentID, error) {
	query := `
		SELECT DISTINCT a.id
		FROM assessments a
		JOIN risk_flags r ON r.assessment_id = a.id
		WHERE a.is_complete = FALSE
		  AND r.status = $1
		  AND r.auto_resolve_deadline IS NOT NULL
		  AND r.auto_resolve_deadline <= $2
		ORDER BY a.id
		LIMIT NULLIF($3, 0)
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(models.RiskStatusActive), due, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	defer rows.Close()

	var ids []domain.AssessmentID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan sweep candidate: %w", err)
		}
		ids = append(ids, domain.AssessmentID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep candidates: %w", err)
	}
	return ids, nil
}

// projectRiskFlags mirrors the aggregate's flags into the risk_flags table.
// Flags are never removed from an aggregate, only closed, so an upsert per
// flag keeps the projection in step with the JSONB document.
func projectRiskFlags(ctx context.Context, exec dbExecutor, assessment *models.ReadinessAssessment) error {
	query := `
		INSERT INTO risk_flags (id, assessment_id, estate_id, severity, category, status, detection_rule_id, auto_resolve_deadline, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			auto_resolve_deadline = EXCLUDED.auto_resolve_deadline,
			resolved_at = EXCLUDED.resolved_at
	`
	for _, risk := range assessment.RiskFlags {
		_, err := exec.ExecContext(ctx, query,
			uuid.UUID(risk.ID),
			uuid.UUID(assessment.ID),
			uuid.UUID(assessment.EstateID),
			string(risk.Severity),
			string(risk.Category),
			string(risk.Status),
			risk.DetectionRuleID,
			risk.AutoResolveDeadline,
			risk.CreatedAt,
			risk.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("project risk flag %s: %w", risk.ID, err)
		}
	}
	return nil
}

// staleWriteError separates "row is gone" from "row moved on".
func staleWriteError(ctx context.Context, exec dbExecutor, assessmentID domain.AssessmentID) error {
	var exists bool
	err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)`,
		uuid.UUID(assessmentID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("probe assessment existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrVersionConflict
}

func decodeAssessment(payload []byte) (*models.ReadinessAssessment, error) {
	var st models.AssessmentState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("decode assessment state: %w", err)
	}
	assessment, err := models.AssessmentFromState(st)
	if err != nil {
		return nil, fmt.Errorf("rebuild assessment: %w", err)
	}
	return assessment, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
