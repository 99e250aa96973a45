package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tiretrack/internal/models"
)

// PostgresConditionRepository 状态事件Repository实现
type PostgresConditionRepository struct {
	db *sql.DB
}

// NewPostgresConditionRepository 创建状态事件Repository
func NewPostgresConditionRepository(db *sql.DB) *PostgresConditionRepository {
	return &PostgresConditionRepository{db: db}
}

// 确保实现了接口
var _ ConditionRepository = (*PostgresConditionRepository)(nil)

const conditionColumns = `
	seq,
	condition_id,
	tire_id,
	kind,
	value,
	date,
	design,
	cost,
	provider,
	motive,
	remaining_depth_mm,
	created_at
`

// AppendCondition 追加状态事件及其副作用（单事务，全有或全无）
func (r *PostgresConditionRepository) AppendCondition(ctx context.Context, event *models.ConditionEvent) (*models.ConditionEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: event is required", models.ErrInvalidInput)
	}
	if event.TireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if event.Value == "" {
		return nil, fmt.Errorf("%w: value is required", models.ErrInvalidInput)
	}
	if event.Cost != nil && *event.Cost < 0 {
		return nil, fmt.Errorf("%w: cost must be non-negative", models.ErrInvalidInput)
	}

	if event.ConditionID == "" {
		event.ConditionID = uuid.New().String()
	}
	if event.Date.IsZero() {
		event.Date = time.Now()
	}
	now := time.Now()
	event.CreatedAt = now
	event.Kind = models.DetectConditionKind(event.Value, event.Motive, event.RemainingDepthMM)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 行锁轮胎：状态事件副作用与并发巡检/报废互斥
	var vehicleID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT vehicle_id FROM tires WHERE tire_id = $1 FOR UPDATE`,
		event.TireID,
	).Scan(&vehicleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: tire_id=%s", models.ErrTireNotFound, event.TireID)
		}
		return nil, fmt.Errorf("failed to lock tire: %w", err)
	}

	// 行锁下复查终态：并发双重处置时后到的一方失败
	var disposed bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tire_conditions
			WHERE tire_id = $1 AND kind = 'disposed'
		)
	`, event.TireID).Scan(&disposed)
	if err != nil {
		return nil, fmt.Errorf("failed to check disposal state: %w", err)
	}
	if disposed {
		return nil, fmt.Errorf("%w: tire_id=%s", models.ErrTireDisposed, event.TireID)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tire_conditions (
			condition_id, tire_id, kind, value, date,
			design, cost, provider, motive, remaining_depth_mm, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq
	`,
		event.ConditionID, event.TireID, string(event.Kind), event.Value, event.Date,
		event.Design, event.Cost, event.Provider, event.Motive, event.RemainingDepthMM, now,
	).Scan(&event.Seq)
	if err != nil {
		return nil, wrapWriteError(err, "insert condition event")
	}

	// 正成本同步写入成本台账：报废/翻新费用与普通保养走同一台账
	if event.Cost != nil && *event.Cost > 0 {
		supplier := "Unknown"
		if event.Provider != nil && *event.Provider != "" {
			supplier = *event.Provider
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tire_costs (cost_id, tire_id, amount, date, supplier, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), event.TireID, *event.Cost, event.Date, supplier, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert condition cost: %w", err)
		}
	}

	// 翻新带花纹时更新显示花纹（展示元数据，不是生命周期转换）
	if event.Kind == models.ConditionRetread && event.Design != nil && *event.Design != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE tires SET design = $2, updated_at = CURRENT_TIMESTAMP WHERE tire_id = $1
		`, event.TireID, *event.Design)
		if err != nil {
			return nil, fmt.Errorf("failed to update tire design: %w", err)
		}
	}

	// 报废副作用
	if event.Kind == models.ConditionDisposed {
		// 1. 追加位置 0 事件（强制卸下）
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tire_positions (position_id, tire_id, value, date, created_at)
			VALUES ($1, $2, 0, $3, $4)
		`, uuid.New().String(), event.TireID, event.Date, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert unmount position: %w", err)
		}

		// 2. 清空装车关系
		_, err = tx.ExecContext(ctx, `
			UPDATE tires SET vehicle_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE tire_id = $1
		`, event.TireID)
		if err != nil {
			return nil, fmt.Errorf("failed to detach tire from vehicle: %w", err)
		}

		// 3. 原先装车时递减车辆计数；报废已卸下的轮胎不会把计数减成负值
		if vehicleID.Valid && vehicleID.String != "" {
			_, err = tx.ExecContext(ctx, `
				UPDATE vehicles SET tire_count = GREATEST(tire_count - 1, 0) WHERE vehicle_id = $1
			`, vehicleID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to decrement vehicle tire count: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return event, nil
}

// LatestCondition 最新状态事件
func (r *PostgresConditionRepository) LatestCondition(ctx context.Context, tireID string) (*models.ConditionEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}

	query := `SELECT ` + conditionColumns + `
		FROM tire_conditions
		WHERE tire_id = $1
		ORDER BY date DESC, seq DESC
		LIMIT 1`

	event, err := scanCondition(r.db.QueryRowContext(ctx, query, tireID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 没有历史事件
		}
		return nil, fmt.Errorf("failed to get latest condition: %w", err)
	}

	return event, nil
}

// ListByTire 轮胎的全部状态事件
func (r *PostgresConditionRepository) ListByTire(ctx context.Context, tireID string) ([]*models.ConditionEvent, error) {
	if tireID == "" {
		return []*models.ConditionEvent{}, nil
	}

	query := `SELECT ` + conditionColumns + `
		FROM tire_conditions
		WHERE tire_id = $1
		ORDER BY date DESC, seq DESC`
	return r.queryConditions(ctx, query, tireID)
}

// ListDisposalsByCompany 公司的全部报废事件
func (r *PostgresConditionRepository) ListDisposalsByCompany(ctx context.Context, companyID string) ([]*models.ConditionEvent, error) {
	if companyID == "" {
		return []*models.ConditionEvent{}, nil
	}

	query := `SELECT
		c.seq, c.condition_id, c.tire_id, c.kind, c.value, c.date,
		c.design, c.cost, c.provider, c.motive, c.remaining_depth_mm, c.created_at
		FROM tire_conditions c
		JOIN tires t ON c.tire_id = t.tire_id
		WHERE t.company_id = $1
		  AND c.kind = 'disposed'
		ORDER BY c.date DESC, c.seq DESC`
	return r.queryConditions(ctx, query, companyID)
}

func (r *PostgresConditionRepository) queryConditions(ctx context.Context, query string, args ...interface{}) ([]*models.ConditionEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query condition events: %w", err)
	}
	defer rows.Close()

	events := []*models.ConditionEvent{}
	for rows.Next() {
		event, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan condition event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate condition events: %w", err)
	}

	return events, nil
}

func scanCondition(row rowScanner) (*models.ConditionEvent, error) {
	var event models.ConditionEvent
	var kind string
	var design, provider, motive sql.NullString
	var cost, remainingDepth sql.NullFloat64

	err := row.Scan(
		&event.Seq,
		&event.ConditionID,
		&event.TireID,
		&kind,
		&event.Value,
		&event.Date,
		&design,
		&cost,
		&provider,
		&motive,
		&remainingDepth,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Kind = models.ConditionKind(kind)
	if design.Valid {
		event.Design = &design.String
	}
	if cost.Valid {
		event.Cost = &cost.Float64
	}
	if provider.Valid {
		event.Provider = &provider.String
	}
	if motive.Valid {
		event.Motive = &motive.String
	}
	if remainingDepth.Valid {
		event.RemainingDepthMM = &remainingDepth.Float64
	}

	return &event, nil
}
