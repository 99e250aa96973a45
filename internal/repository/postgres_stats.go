package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tiretrack/internal/models"
)

// PostgresStatRepository 指标快照Repository实现
type PostgresStatRepository struct {
	db *sql.DB
}

// NewPostgresStatRepository 创建指标快照Repository
func NewPostgresStatRepository(db *sql.DB) *PostgresStatRepository {
	return &PostgresStatRepository{db: db}
}

// 确保实现了接口
var _ StatRepository = (*PostgresStatRepository)(nil)

// GetStat 读取最新指标快照
func (r *PostgresStatRepository) GetStat(ctx context.Context, tireID string) (*models.TireStat, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}

	var stat models.TireStat
	err := r.db.QueryRowContext(ctx, `
		SELECT tire_id, cpm, forecasted_cpm, updated_at
		FROM tire_stats
		WHERE tire_id = $1
	`, tireID).Scan(&stat.TireID, &stat.CPM, &stat.ForecastedCPM, &stat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 还没有快照
		}
		return nil, fmt.Errorf("failed to get tire stats: %w", err)
	}

	return &stat, nil
}

// ListByCompany 公司全部轮胎的指标快照
func (r *PostgresStatRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.TireStat, error) {
	if companyID == "" {
		return []*models.TireStat{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.tire_id, s.cpm, s.forecasted_cpm, s.updated_at
		FROM tire_stats s
		JOIN tires t ON s.tire_id = t.tire_id
		WHERE t.company_id = $1
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tire stats: %w", err)
	}
	defer rows.Close()

	stats := []*models.TireStat{}
	for rows.Next() {
		var stat models.TireStat
		if err := rows.Scan(&stat.TireID, &stat.CPM, &stat.ForecastedCPM, &stat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tire stats: %w", err)
		}
		stats = append(stats, &stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tire stats: %w", err)
	}

	return stats, nil
}
