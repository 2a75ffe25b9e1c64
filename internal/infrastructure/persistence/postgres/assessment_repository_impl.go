package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

// PostgresAssessmentRepository реализует repository.AssessmentRepository
// для PostgreSQL
type PostgresAssessmentRepository struct {
	db *sql.DB
}

// NewPostgresAssessmentRepository создает новый PostgreSQL repository
func NewPostgresAssessmentRepository(db *sql.DB) *PostgresAssessmentRepository {
	return &PostgresAssessmentRepository{
		db: db,
	}
}

// Save сохраняет завершенный assessment
func (r *PostgresAssessmentRepository) Save(ctx context.Context, assessment *entity.Assessment) error {
	model, err := ToDBModel(uuid.New().String(), assessment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO assessments (id, generated_at, overall_score, overall_level, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		model.ID,
		model.GeneratedAt,
		model.OverallScore,
		model.OverallLevel,
		model.Payload,
		model.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}

	return nil
}

// FindSince возвращает assessments, сгенерированные после since,
// упорядоченные по generated_at по убыванию
func (r *PostgresAssessmentRepository) FindSince(ctx context.Context, since time.Time, limit int) ([]*entity.Assessment, error) {
	query := `
		SELECT id, generated_at, overall_score, overall_level, payload, created_at
		FROM assessments
		WHERE generated_at > $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*entity.Assessment
	for rows.Next() {
		model, err := ScanAssessmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment row: %w", err)
		}

		assessment, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		assessments = append(assessments, assessment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return assessments, nil
}

// DeleteOlderThan удаляет assessments старше cutoff (retention)
func (r *PostgresAssessmentRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE generated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old assessments: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}
