package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tiretrack/internal/forecast"
	"tiretrack/internal/models"
)

// PostgresInspectionRepository 巡检Repository实现
type PostgresInspectionRepository struct {
	db *sql.DB
}

// NewPostgresInspectionRepository 创建巡检Repository
func NewPostgresInspectionRepository(db *sql.DB) *PostgresInspectionRepository {
	return &PostgresInspectionRepository{db: db}
}

// 确保实现了接口
var _ InspectionRepository = (*PostgresInspectionRepository)(nil)

// RecordInspection 记录巡检（单事务，行锁串行化同胎并发）
func (r *PostgresInspectionRepository) RecordInspection(ctx context.Context, input *models.NewInspectionInput) (*models.Inspection, *TireSnapshot, error) {
	if input == nil {
		return nil, nil, fmt.Errorf("%w: input is required", models.ErrInvalidInput)
	}
	if input.TireID == "" {
		return nil, nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if input.Depths.Center < 0 || input.Depths.Exterior < 0 || input.Depths.Interior < 0 {
		return nil, nil, fmt.Errorf("%w: depth readings must be non-negative", models.ErrInvalidInput)
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	now := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. 行锁轮胎：并发巡检不能读到彼此未提交的里程/成本组合
	snapshot := &TireSnapshot{TireID: input.TireID}
	var vehicleID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT company_id, vehicle_id, initial_depth, mileage
		FROM tires
		WHERE tire_id = $1
		FOR UPDATE
	`, input.TireID).Scan(&snapshot.CompanyID, &vehicleID, &snapshot.InitialDepth, &snapshot.Mileage)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("%w: tire_id=%s", models.ErrTireNotFound, input.TireID)
		}
		return nil, nil, fmt.Errorf("failed to lock tire: %w", err)
	}
	if vehicleID.Valid {
		snapshot.VehicleID = &vehicleID.String
	}

	// 2. 里程单调更新：小于等于当前值静默忽略
	if input.UpdatedMileage != nil && *input.UpdatedMileage > snapshot.Mileage {
		_, err = tx.ExecContext(ctx, `
			UPDATE tires SET mileage = $2, updated_at = CURRENT_TIMESTAMP WHERE tire_id = $1
		`, input.TireID, *input.UpdatedMileage)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update mileage: %w", err)
		}
		snapshot.Mileage = *input.UpdatedMileage
	}

	// 3. 累计成本
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM tire_costs WHERE tire_id = $1`,
		input.TireID,
	).Scan(&snapshot.TotalCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sum costs: %w", err)
	}

	// 4. 指标计算（纯函数）
	metrics := forecast.Compute(snapshot.TotalCost, snapshot.Mileage, snapshot.InitialDepth, input.Depths.Min())

	inspection := &models.Inspection{
		InspectionID:  uuid.New().String(),
		TireID:        input.TireID,
		UserID:        input.UserID,
		Date:          date,
		Depths:        input.Depths,
		Pressure:      input.Pressure,
		ImageURL:      input.ImageURL,
		CPM:           metrics.CPM,
		ForecastedCPM: metrics.ForecastedCPM,
		CreatedAt:     now,
	}

	// 5. 持久化巡检记录（指标审计副本随记录保存）
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tire_inspections (
			inspection_id, tire_id, user_id, date,
			cen_depth, ext_depth, int_depth, pressure, image_url,
			cpm, forecasted_cpm, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		inspection.InspectionID, inspection.TireID, inspection.UserID, inspection.Date,
		inspection.Depths.Center, inspection.Depths.Exterior, inspection.Depths.Interior,
		inspection.Pressure, inspection.ImageURL,
		inspection.CPM, inspection.ForecastedCPM, inspection.CreatedAt,
	)
	if err != nil {
		return nil, nil, wrapWriteError(err, "insert inspection")
	}

	// 6. upsert 最新指标快照
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tire_stats (tire_id, cpm, forecasted_cpm, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tire_id) DO UPDATE SET
			cpm = EXCLUDED.cpm,
			forecasted_cpm = EXCLUDED.forecasted_cpm,
			updated_at = EXCLUDED.updated_at
	`, input.TireID, metrics.CPM, metrics.ForecastedCPM, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert tire stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inspection, snapshot, nil
}

const inspectionColumns = `
	inspection_id,
	tire_id,
	user_id,
	date,
	cen_depth,
	ext_depth,
	int_depth,
	pressure,
	image_url,
	cpm,
	forecasted_cpm,
	created_at
`

// ListByTire 轮胎的巡检历史
func (r *PostgresInspectionRepository) ListByTire(ctx context.Context, tireID string) ([]*models.Inspection, error) {
	if tireID == "" {
		return []*models.Inspection{}, nil
	}

	query := `SELECT ` + inspectionColumns + `
		FROM tire_inspections
		WHERE tire_id = $1
		ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query, tireID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	inspections := []*models.Inspection{}
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, inspection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inspections: %w", err)
	}

	return inspections, nil
}

// LatestMetricsByCompany 公司每条轮胎最新巡检的指标
func (r *PostgresInspectionRepository) LatestMetricsByCompany(ctx context.Context, companyID string) ([]*models.TireStat, error) {
	if companyID == "" {
		return []*models.TireStat{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.tire_id, i.cpm, i.forecasted_cpm, i.date
		FROM tire_inspections i
		JOIN tires t ON i.tire_id = t.tire_id
		WHERE t.company_id = $1
		ORDER BY i.date DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query company inspections: %w", err)
	}
	defer rows.Close()

	// 按日期倒序扫描，每胎保留首次出现（即最新）的指标
	seen := map[string]bool{}
	stats := []*models.TireStat{}
	for rows.Next() {
		var stat models.TireStat
		var date time.Time
		if err := rows.Scan(&stat.TireID, &stat.CPM, &stat.ForecastedCPM, &date); err != nil {
			return nil, fmt.Errorf("failed to scan inspection metrics: %w", err)
		}
		if seen[stat.TireID] {
			continue
		}
		seen[stat.TireID] = true
		stat.UpdatedAt = date
		stats = append(stats, &stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inspection metrics: %w", err)
	}

	return stats, nil
}

// RebuildStats 从成本台账 + 最新巡检重建指标快照
func (r *PostgresInspectionRepository) RebuildStats(ctx context.Context, tireID string) (bool, error) {
	if tireID == "" {
		return false, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var initialDepth, mileage float64
	err = tx.QueryRowContext(ctx, `
		SELECT initial_depth, mileage FROM tires WHERE tire_id = $1 FOR UPDATE
	`, tireID).Scan(&initialDepth, &mileage)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, fmt.Errorf("%w: tire_id=%s", models.ErrTireNotFound, tireID)
		}
		return false, fmt.Errorf("failed to lock tire: %w", err)
	}

	var cen, ext, in float64
	err = tx.QueryRowContext(ctx, `
		SELECT cen_depth, ext_depth, int_depth
		FROM tire_inspections
		WHERE tire_id = $1
		ORDER BY date DESC
		LIMIT 1
	`, tireID).Scan(&cen, &ext, &in)
	if err != nil {
		if err == sql.ErrNoRows {
			// 没有巡检就没有可重建的快照
			return false, nil
		}
		return false, fmt.Errorf("failed to get latest inspection: %w", err)
	}

	var totalCost float64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM tire_costs WHERE tire_id = $1`,
		tireID,
	).Scan(&totalCost)
	if err != nil {
		return false, fmt.Errorf("failed to sum costs: %w", err)
	}

	depths := models.DepthReadings{Center: cen, Exterior: ext, Interior: in}
	metrics := forecast.Compute(totalCost, mileage, initialDepth, depths.Min())

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tire_stats (tire_id, cpm, forecasted_cpm, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (tire_id) DO UPDATE SET
			cpm = EXCLUDED.cpm,
			forecasted_cpm = EXCLUDED.forecasted_cpm,
			updated_at = EXCLUDED.updated_at
	`, tireID, metrics.CPM, metrics.ForecastedCPM)
	if err != nil {
		return false, fmt.Errorf("failed to upsert tire stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

func scanInspection(row rowScanner) (*models.Inspection, error) {
	var inspection models.Inspection
	var pressure sql.NullFloat64
	var imageURL sql.NullString

	err := row.Scan(
		&inspection.InspectionID,
		&inspection.TireID,
		&inspection.UserID,
		&inspection.Date,
		&inspection.Depths.Center,
		&inspection.Depths.Exterior,
		&inspection.Depths.Interior,
		&pressure,
		&imageURL,
		&inspection.CPM,
		&inspection.ForecastedCPM,
		&inspection.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pressure.Valid {
		inspection.Pressure = &pressure.Float64
	}
	if imageURL.Valid {
		inspection.ImageURL = &imageURL.String
	}

	return &inspection, nil
}
