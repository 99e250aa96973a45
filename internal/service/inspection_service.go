package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/evaluator"
	"tiretrack/internal/models"
	"tiretrack/internal/repository"
)

// InspectionService 巡检处理服务接口
type InspectionService interface {
	// RecordInspection 记录一次巡检：持久化读数与指标、
	// 条件更新里程、刷新指标快照，并评估是否触发报警。
	// 报警评估失败不影响巡检本身的成功
	RecordInspection(ctx context.Context, input *models.NewInspectionInput) (*models.InspectionResult, error)

	// ListInspections 轮胎的巡检历史（按 date 倒序）
	ListInspections(ctx context.Context, tireID string) ([]*models.Inspection, error)

	// TireStat 轮胎的最新指标快照；从未巡检返回 nil
	TireStat(ctx context.Context, tireID string) (*models.TireStat, error)

	// RebuildStats 从台账与最新巡检重建指标快照；
	// 返回是否实际重建（无巡检时为 no-op）
	RebuildStats(ctx context.Context, tireID string) (bool, error)
}

// inspectionService 实现
type inspectionService struct {
	inspectionsRepo repository.InspectionRepository
	statsRepo       repository.StatRepository
	eval            *evaluator.Evaluator
	logger          *zap.Logger
}

// NewInspectionService 创建 InspectionService 实例
func NewInspectionService(
	inspectionsRepo repository.InspectionRepository,
	statsRepo repository.StatRepository,
	eval *evaluator.Evaluator,
	logger *zap.Logger,
) InspectionService {
	return &inspectionService{
		inspectionsRepo: inspectionsRepo,
		statsRepo:       statsRepo,
		eval:            eval,
		logger:          logger,
	}
}

// RecordInspection 记录一次巡检
func (s *inspectionService) RecordInspection(ctx context.Context, input *models.NewInspectionInput) (*models.InspectionResult, error) {
	// 1. 参数验证
	if input == nil || input.TireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if input.Depths.Center < 0 || input.Depths.Exterior < 0 || input.Depths.Interior < 0 {
		return nil, fmt.Errorf("%w: depth readings must be non-negative", models.ErrInvalidInput)
	}
	if input.UpdatedMileage != nil && *input.UpdatedMileage < 0 {
		return nil, fmt.Errorf("%w: mileage must be non-negative", models.ErrInvalidInput)
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	// 2. 事务内完成持久化（行锁串行化同胎并发巡检）
	inspection, snapshot, err := s.inspectionsRepo.RecordInspection(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inspection recorded",
		zap.String("tire_id", inspection.TireID),
		zap.Float64("min_depth", input.Depths.Min()),
		zap.Float64("cpm", inspection.CPM),
		zap.Float64("forecasted_cpm", inspection.ForecastedCPM))

	result := &models.InspectionResult{Inspection: inspection}

	// 3. 事务外评估报警；失败只记日志，不回滚巡检
	evalInput := evaluator.Input{
		TireID:    snapshot.TireID,
		CompanyID: snapshot.CompanyID,
		UserID:    input.UserID,
		Depths:    input.Depths,
	}
	if snapshot.VehicleID != nil {
		evalInput.VehicleID = *snapshot.VehicleID
	}
	alert, err := s.eval.Evaluate(ctx, evalInput)
	if err != nil {
		s.logger.Error("Alert evaluation failed",
			zap.String("tire_id", snapshot.TireID),
			zap.Error(err))
		return result, nil
	}
	result.Alert = alert

	return result, nil
}

// ListInspections 巡检历史
func (s *inspectionService) ListInspections(ctx context.Context, tireID string) ([]*models.Inspection, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.inspectionsRepo.ListByTire(ctx, tireID)
}

// TireStat 最新指标快照
func (s *inspectionService) TireStat(ctx context.Context, tireID string) (*models.TireStat, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.statsRepo.GetStat(ctx, tireID)
}

// RebuildStats 重建指标快照
func (s *inspectionService) RebuildStats(ctx context.Context, tireID string) (bool, error) {
	if tireID == "" {
		return false, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	rebuilt, err := s.inspectionsRepo.RebuildStats(ctx, tireID)
	if err != nil {
		return false, fmt.Errorf("failed to rebuild stats: %w", err)
	}
	if rebuilt {
		s.logger.Info("Tire stats rebuilt", zap.String("tire_id", tireID))
	}
	return rebuilt, nil
}
