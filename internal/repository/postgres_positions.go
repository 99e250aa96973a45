package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tiretrack/internal/models"
)

// PostgresPositionRepository 位置事件Repository实现
type PostgresPositionRepository struct {
	db *sql.DB
}

// NewPostgresPositionRepository 创建位置事件Repository
func NewPostgresPositionRepository(db *sql.DB) *PostgresPositionRepository {
	return &PostgresPositionRepository{db: db}
}

// 确保实现了接口
var _ PositionRepository = (*PostgresPositionRepository)(nil)

const positionColumns = `
	seq,
	position_id,
	tire_id,
	value,
	date,
	vehicle_id,
	created_at
`

// AppendPosition 追加位置事件并同步装车关系（单事务）
func (r *PostgresPositionRepository) AppendPosition(ctx context.Context, event *models.PositionEvent) (*models.PositionEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: event is required", models.ErrInvalidInput)
	}
	if event.TireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if event.Value < 0 {
		return nil, fmt.Errorf("%w: position value must be non-negative", models.ErrInvalidInput)
	}

	if event.PositionID == "" {
		event.PositionID = uuid.New().String()
	}
	if event.Date.IsZero() {
		event.Date = time.Now()
	}
	now := time.Now()
	event.CreatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var currentVehicleID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT vehicle_id FROM tires WHERE tire_id = $1 FOR UPDATE`,
		event.TireID,
	).Scan(&currentVehicleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: tire_id=%s", models.ErrTireNotFound, event.TireID)
		}
		return nil, fmt.Errorf("failed to lock tire: %w", err)
	}

	// 位置 0 = 入库存；>0 = 装到给定车辆，缺省沿用当前车辆
	var newVehicleID *string
	if event.Value > 0 {
		if event.VehicleID != nil && *event.VehicleID != "" {
			newVehicleID = event.VehicleID
		} else if currentVehicleID.Valid {
			newVehicleID = &currentVehicleID.String
		}
	}
	event.VehicleID = newVehicleID

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tire_positions (position_id, tire_id, value, date, vehicle_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`, event.PositionID, event.TireID, event.Value, event.Date, newVehicleID, now).Scan(&event.Seq)
	if err != nil {
		return nil, wrapWriteError(err, "insert position event")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tires SET vehicle_id = $2, updated_at = CURRENT_TIMESTAMP WHERE tire_id = $1
	`, event.TireID, newVehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to update tire vehicle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return event, nil
}

// LatestPosition 最新位置事件
func (r *PostgresPositionRepository) LatestPosition(ctx context.Context, tireID string) (*models.PositionEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}

	query := `SELECT ` + positionColumns + `
		FROM tire_positions
		WHERE tire_id = $1
		ORDER BY date DESC, seq DESC
		LIMIT 1`

	event, err := scanPosition(r.db.QueryRowContext(ctx, query, tireID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 没有历史事件
		}
		return nil, fmt.Errorf("failed to get latest position: %w", err)
	}

	return event, nil
}

// ListByTire 轮胎的全部位置事件
func (r *PostgresPositionRepository) ListByTire(ctx context.Context, tireID string) ([]*models.PositionEvent, error) {
	if tireID == "" {
		return []*models.PositionEvent{}, nil
	}

	query := `SELECT ` + positionColumns + `
		FROM tire_positions
		WHERE tire_id = $1
		ORDER BY date DESC, seq DESC`

	rows, err := r.db.QueryContext(ctx, query, tireID)
	if err != nil {
		return nil, fmt.Errorf("failed to query position events: %w", err)
	}
	defer rows.Close()

	events := []*models.PositionEvent{}
	for rows.Next() {
		event, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate position events: %w", err)
	}

	return events, nil
}

func scanPosition(row rowScanner) (*models.PositionEvent, error) {
	var event models.PositionEvent
	var vehicleID sql.NullString

	err := row.Scan(
		&event.Seq,
		&event.PositionID,
		&event.TireID,
		&event.Value,
		&event.Date,
		&vehicleID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if vehicleID.Valid {
		event.VehicleID = &vehicleID.String
	}

	return &event, nil
}
