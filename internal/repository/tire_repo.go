package repository

import (
	"context"

	"tiretrack/internal/models"
)

// TireRepository 轮胎Repository接口
type TireRepository interface {
	// CreateTire 创建轮胎，并在同一事务中写入初始成本、初始状态事件
	// 和可选的初始位置事件
	CreateTire(ctx context.Context, input *models.NewTireInput) (*models.Tire, error)

	// GetTire 按 ID 获取轮胎（附带最新状态/位置事件）
	GetTire(ctx context.Context, tireID string) (*models.Tire, error)

	// FindByCustomID 按人工编号查找
	FindByCustomID(ctx context.Context, companyID, customID string) ([]*models.Tire, error)

	// ListByCompany 公司下全部轮胎
	ListByCompany(ctx context.Context, companyID string) ([]*models.Tire, error)

	// ListByVehicle 车辆下全部轮胎
	ListByVehicle(ctx context.Context, vehicleID string) ([]*models.Tire, error)

	// UpdateMileage 条件更新里程（仅在新值更大时生效，保证单调）
	// 返回是否实际更新
	UpdateMileage(ctx context.Context, tireID string, mileage float64) (bool, error)
}
