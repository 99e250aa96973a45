package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tiretrack/internal/models"
	"tiretrack/internal/repository"
)

// TireService 轮胎登记与查询服务接口
type TireService interface {
	// RegisterTire 登记新轮胎（同一事务写入初始成本/状态/位置），
	// 初始装车时同步递增车辆装胎计数
	RegisterTire(ctx context.Context, input *models.NewTireInput) (*models.Tire, error)

	// GetTire 按 ID 获取轮胎
	GetTire(ctx context.Context, tireID string) (*models.Tire, error)

	// FindByCustomID 按人工编号查找（可能重名，返回全部匹配）
	FindByCustomID(ctx context.Context, companyID, customID string) ([]*models.Tire, error)

	// ListByCompany 公司下全部轮胎
	ListByCompany(ctx context.Context, companyID string) ([]*models.Tire, error)

	// ListByVehicle 车辆下全部轮胎
	ListByVehicle(ctx context.Context, vehicleID string) ([]*models.Tire, error)

	// RecordMileage 手工上报里程，只接受单调增长；
	// 返回是否发生更新（低于当前里程时静默忽略）
	RecordMileage(ctx context.Context, tireID string, mileage float64) (bool, error)

	// VehicleTireCount 车辆当前装胎计数
	VehicleTireCount(ctx context.Context, vehicleID string) (int, error)

	// ReconcileVehicleTireCount 从轮胎装车状态重建装胎计数（漂移恢复），
	// 返回重建后的值
	ReconcileVehicleTireCount(ctx context.Context, vehicleID string) (int, error)
}

// tireService 实现
type tireService struct {
	tiresRepo    repository.TireRepository
	vehiclesRepo repository.VehicleRepository
	logger       *zap.Logger
}

// NewTireService 创建 TireService 实例
func NewTireService(tiresRepo repository.TireRepository, vehiclesRepo repository.VehicleRepository, logger *zap.Logger) TireService {
	return &tireService{
		tiresRepo:    tiresRepo,
		vehiclesRepo: vehiclesRepo,
		logger:       logger,
	}
}

// RegisterTire 登记新轮胎
func (s *tireService) RegisterTire(ctx context.Context, input *models.NewTireInput) (*models.Tire, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", models.ErrInvalidInput)
	}

	// 初始装车必须指定目标车辆和槽位
	if input.VehicleID != nil && *input.VehicleID != "" {
		if _, err := s.vehiclesRepo.GetVehicle(ctx, *input.VehicleID); err != nil {
			return nil, err
		}
		if input.Position == nil || *input.Position <= 0 {
			return nil, fmt.Errorf("%w: position is required when mounting on a vehicle", models.ErrInvalidInput)
		}
	} else if input.Position != nil && *input.Position > 0 {
		// 装车槽位必须同时指定车辆，否则位置事件缺少挂载对象
		return nil, fmt.Errorf("%w: vehicle_id is required when position > 0", models.ErrInvalidInput)
	}

	tire, err := s.tiresRepo.CreateTire(ctx, input)
	if err != nil {
		return nil, err
	}

	if tire.Mounted() {
		if err := s.vehiclesRepo.IncrementTireCount(ctx, *tire.VehicleID); err != nil {
			// 计数漂移可用 RecalculateTireCount 恢复，不回滚登记
			s.logger.Error("Failed to increment vehicle tire count",
				zap.String("vehicle_id", *tire.VehicleID),
				zap.Error(err))
		}
	}

	s.logger.Info("Tire registered",
		zap.String("tire_id", tire.TireID),
		zap.String("company_id", tire.CompanyID),
		zap.String("custom_id", tire.CustomID))

	return tire, nil
}

// GetTire 按 ID 获取轮胎
func (s *tireService) GetTire(ctx context.Context, tireID string) (*models.Tire, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.tiresRepo.GetTire(ctx, tireID)
}

// FindByCustomID 按人工编号查找
func (s *tireService) FindByCustomID(ctx context.Context, companyID, customID string) ([]*models.Tire, error) {
	if companyID == "" || customID == "" {
		return nil, fmt.Errorf("%w: company_id and custom_id are required", models.ErrInvalidInput)
	}
	return s.tiresRepo.FindByCustomID(ctx, companyID, customID)
}

// ListByCompany 公司下全部轮胎
func (s *tireService) ListByCompany(ctx context.Context, companyID string) ([]*models.Tire, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}
	return s.tiresRepo.ListByCompany(ctx, companyID)
}

// ListByVehicle 车辆下全部轮胎
func (s *tireService) ListByVehicle(ctx context.Context, vehicleID string) ([]*models.Tire, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}
	return s.tiresRepo.ListByVehicle(ctx, vehicleID)
}

// RecordMileage 手工上报里程
func (s *tireService) RecordMileage(ctx context.Context, tireID string, mileage float64) (bool, error) {
	if tireID == "" {
		return false, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if mileage < 0 {
		return false, fmt.Errorf("%w: mileage must be non-negative", models.ErrInvalidInput)
	}

	updated, err := s.tiresRepo.UpdateMileage(ctx, tireID, mileage)
	if err != nil {
		return false, err
	}
	if !updated {
		s.logger.Debug("Mileage report ignored, not greater than current",
			zap.String("tire_id", tireID),
			zap.Float64("mileage", mileage))
	}
	return updated, nil
}

// VehicleTireCount 车辆当前装胎计数
func (s *tireService) VehicleTireCount(ctx context.Context, vehicleID string) (int, error) {
	if vehicleID == "" {
		return 0, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}
	return s.vehiclesRepo.GetTireCount(ctx, vehicleID)
}

// ReconcileVehicleTireCount 重建装胎计数
func (s *tireService) ReconcileVehicleTireCount(ctx context.Context, vehicleID string) (int, error) {
	if vehicleID == "" {
		return 0, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}
	count, err := s.vehiclesRepo.RecalculateTireCount(ctx, vehicleID)
	if err != nil {
		return 0, fmt.Errorf("failed to recalculate tire count: %w", err)
	}
	s.logger.Info("Vehicle tire count reconciled",
		zap.String("vehicle_id", vehicleID),
		zap.Int("tire_count", count))
	return count, nil
}
