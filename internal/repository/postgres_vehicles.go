package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tiretrack/internal/models"
)

// PostgresVehicleRepository 车辆Repository实现
type PostgresVehicleRepository struct {
	db *sql.DB
}

// NewPostgresVehicleRepository 创建车辆Repository
func NewPostgresVehicleRepository(db *sql.DB) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{db: db}
}

// 确保实现了接口
var _ VehicleRepository = (*PostgresVehicleRepository)(nil)

// GetVehicle 按 ID 获取车辆
func (r *PostgresVehicleRepository) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	query := `
		SELECT vehicle_id, company_id, license_plate, tire_count, created_at
		FROM vehicles
		WHERE vehicle_id = $1
	`

	var vehicle models.Vehicle
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(
		&vehicle.VehicleID,
		&vehicle.CompanyID,
		&vehicle.LicensePlate,
		&vehicle.TireCount,
		&vehicle.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: vehicle_id=%s", models.ErrVehicleNotFound, vehicleID)
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return &vehicle, nil
}

// GetTireCount 读取当前装胎计数
func (r *PostgresVehicleRepository) GetTireCount(ctx context.Context, vehicleID string) (int, error) {
	if vehicleID == "" {
		return 0, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT tire_count FROM vehicles WHERE vehicle_id = $1`, vehicleID).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: vehicle_id=%s", models.ErrVehicleNotFound, vehicleID)
		}
		return 0, fmt.Errorf("failed to get tire count: %w", err)
	}

	return count, nil
}

// DecrementTireCount 原子递减装胎计数（钳制在 0）
func (r *PostgresVehicleRepository) DecrementTireCount(ctx context.Context, vehicleID string) error {
	if vehicleID == "" {
		return fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE vehicles
		SET tire_count = GREATEST(tire_count - 1, 0)
		WHERE vehicle_id = $1
	`, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to decrement tire count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: vehicle_id=%s", models.ErrVehicleNotFound, vehicleID)
	}

	return nil
}

// IncrementTireCount 原子递增装胎计数
func (r *PostgresVehicleRepository) IncrementTireCount(ctx context.Context, vehicleID string) error {
	if vehicleID == "" {
		return fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE vehicles
		SET tire_count = tire_count + 1
		WHERE vehicle_id = $1
	`, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to increment tire count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: vehicle_id=%s", models.ErrVehicleNotFound, vehicleID)
	}

	return nil
}

// RecalculateTireCount 从轮胎装车状态重建计数器
func (r *PostgresVehicleRepository) RecalculateTireCount(ctx context.Context, vehicleID string) (int, error) {
	if vehicleID == "" {
		return 0, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE vehicles
		SET tire_count = (SELECT COUNT(*) FROM tires WHERE tires.vehicle_id = vehicles.vehicle_id)
		WHERE vehicle_id = $1
		RETURNING tire_count
	`, vehicleID).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: vehicle_id=%s", models.ErrVehicleNotFound, vehicleID)
		}
		return 0, fmt.Errorf("failed to recalculate tire count: %w", err)
	}

	return count, nil
}
