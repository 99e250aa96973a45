package repository

import (
	"context"

	"tiretrack/internal/models"
)

// VehicleRepository 车辆Repository接口（轮胎引擎只关心计数器）
type VehicleRepository interface {
	// GetVehicle 按 ID 获取车辆
	GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error)

	// GetTireCount 读取当前装胎计数
	GetTireCount(ctx context.Context, vehicleID string) (int, error)

	// DecrementTireCount 原子递减装胎计数（钳制在 0，不会为负）
	DecrementTireCount(ctx context.Context, vehicleID string) error

	// IncrementTireCount 原子递增装胎计数
	IncrementTireCount(ctx context.Context, vehicleID string) error

	// RecalculateTireCount 从轮胎装车状态重建计数器（漂移恢复）
	// 返回重建后的值
	RecalculateTireCount(ctx context.Context, vehicleID string) (int, error)
}
