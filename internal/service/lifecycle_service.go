package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/lifecycle"
	"tiretrack/internal/models"
	"tiretrack/internal/repository"
)

// LifecycleService 生命周期轨道服务接口（状态事件 + 位置事件）
type LifecycleService interface {
	// AddConditionEvent 追加状态事件。报废是终态：
	// 已报废的轮胎拒绝任何后续事件（ErrTireDisposed）
	AddConditionEvent(ctx context.Context, req AddConditionRequest) (*models.ConditionEvent, error)

	// AddPositionEvent 追加位置事件并同步装车关系；
	// 已报废的轮胎同样拒绝
	AddPositionEvent(ctx context.Context, req AddPositionRequest) (*models.PositionEvent, error)

	// ConditionHistory 轮胎的状态事件历史（按 date 倒序）
	ConditionHistory(ctx context.Context, tireID string) ([]*models.ConditionEvent, error)

	// PositionHistory 轮胎的位置事件历史（按 date 倒序）
	PositionHistory(ctx context.Context, tireID string) ([]*models.PositionEvent, error)

	// CurrentPosition 轮胎最新位置事件，没有任何位置事件时返回 nil
	CurrentPosition(ctx context.Context, tireID string) (*models.PositionEvent, error)

	// CompanyDisposals 公司的全部报废事件
	CompanyDisposals(ctx context.Context, companyID string) ([]*models.ConditionEvent, error)
}

// lifecycleService 实现
type lifecycleService struct {
	conditionsRepo repository.ConditionRepository
	positionsRepo  repository.PositionRepository
	tiresRepo      repository.TireRepository
	logger         *zap.Logger
}

// NewLifecycleService 创建 LifecycleService 实例
func NewLifecycleService(
	conditionsRepo repository.ConditionRepository,
	positionsRepo repository.PositionRepository,
	tiresRepo repository.TireRepository,
	logger *zap.Logger,
) LifecycleService {
	return &lifecycleService{
		conditionsRepo: conditionsRepo,
		positionsRepo:  positionsRepo,
		tiresRepo:      tiresRepo,
		logger:         logger,
	}
}

// AddConditionRequest 追加状态事件请求
type AddConditionRequest struct {
	TireID string    `json:"tire_id"`
	Value  string    `json:"value"` // 状态标签（new / retread-2 / disposed / 自定义）
	Date   time.Time `json:"date"`

	Design           *string  `json:"design,omitempty"`
	Cost             *float64 `json:"cost,omitempty"`
	Provider         *string  `json:"provider,omitempty"`
	Motive           *string  `json:"motive,omitempty"`
	RemainingDepthMM *float64 `json:"remaining_depth_mm,omitempty"`
}

// AddConditionEvent 追加状态事件
func (s *lifecycleService) AddConditionEvent(ctx context.Context, req AddConditionRequest) (*models.ConditionEvent, error) {
	// 1. 参数验证
	if req.TireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if req.Value == "" {
		return nil, fmt.Errorf("%w: condition value is required", models.ErrInvalidInput)
	}
	if req.Cost != nil && *req.Cost < 0 {
		return nil, fmt.Errorf("%w: cost must be non-negative", models.ErrInvalidInput)
	}
	if req.RemainingDepthMM != nil && *req.RemainingDepthMM < 0 {
		return nil, fmt.Errorf("%w: remaining depth must be non-negative", models.ErrInvalidInput)
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	// 2. 轮胎必须存在
	if _, err := s.tiresRepo.GetTire(ctx, req.TireID); err != nil {
		return nil, err
	}

	// 3. 状态机检查：最新事件决定当前状态，报废后不再接受事件
	kind := models.DetectConditionKind(req.Value, req.Motive, req.RemainingDepthMM)
	latest, err := s.conditionsRepo.LatestCondition(ctx, req.TireID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest condition: %w", err)
	}
	machine := lifecycle.NewMachine(latest)
	if err := machine.Apply(kind); err != nil {
		return nil, err
	}

	// 4. 追加事件（副作用在 repository 事务内完成）
	event := &models.ConditionEvent{
		TireID:           req.TireID,
		Kind:             kind,
		Value:            req.Value,
		Date:             req.Date,
		Design:           req.Design,
		Cost:             req.Cost,
		Provider:         req.Provider,
		Motive:           req.Motive,
		RemainingDepthMM: req.RemainingDepthMM,
	}
	created, err := s.conditionsRepo.AppendCondition(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to append condition: %w", err)
	}

	s.logger.Info("Condition event recorded",
		zap.String("tire_id", created.TireID),
		zap.String("kind", string(created.Kind)),
		zap.String("value", created.Value))

	return created, nil
}

// AddPositionRequest 追加位置事件请求
type AddPositionRequest struct {
	TireID    string    `json:"tire_id"`
	Value     int       `json:"value"` // 0 卸下入库，>0 装车槽位
	Date      time.Time `json:"date"`
	VehicleID *string   `json:"vehicle_id,omitempty"` // 装车目标；缺省沿用当前车辆
}

// AddPositionEvent 追加位置事件
func (s *lifecycleService) AddPositionEvent(ctx context.Context, req AddPositionRequest) (*models.PositionEvent, error) {
	if req.TireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if req.Value < 0 {
		return nil, fmt.Errorf("%w: position must be non-negative", models.ErrInvalidInput)
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	tire, err := s.tiresRepo.GetTire(ctx, req.TireID)
	if err != nil {
		return nil, err
	}

	// 报废胎不再移动
	latest, err := s.conditionsRepo.LatestCondition(ctx, req.TireID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest condition: %w", err)
	}
	if latest != nil && latest.IsDisposal() {
		return nil, fmt.Errorf("%w: %s", models.ErrTireDisposed, req.TireID)
	}

	// 装车到新车辆时校验目标存在（repository 事务内仅同步关系）
	if req.Value > 0 && req.VehicleID == nil && !tire.Mounted() {
		return nil, fmt.Errorf("%w: vehicle_id is required to mount a stocked tire", models.ErrInvalidInput)
	}

	event := &models.PositionEvent{
		TireID:    req.TireID,
		Value:     req.Value,
		Date:      req.Date,
		VehicleID: req.VehicleID,
	}
	created, err := s.positionsRepo.AppendPosition(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to append position: %w", err)
	}

	s.logger.Info("Position event recorded",
		zap.String("tire_id", created.TireID),
		zap.Int("position", created.Value))

	return created, nil
}

// ConditionHistory 状态事件历史
func (s *lifecycleService) ConditionHistory(ctx context.Context, tireID string) ([]*models.ConditionEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.conditionsRepo.ListByTire(ctx, tireID)
}

// PositionHistory 位置事件历史
func (s *lifecycleService) PositionHistory(ctx context.Context, tireID string) ([]*models.PositionEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.positionsRepo.ListByTire(ctx, tireID)
}

// CurrentPosition 最新位置事件
func (s *lifecycleService) CurrentPosition(ctx context.Context, tireID string) (*models.PositionEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.positionsRepo.LatestPosition(ctx, tireID)
}

// CompanyDisposals 公司报废事件
func (s *lifecycleService) CompanyDisposals(ctx context.Context, companyID string) ([]*models.ConditionEvent, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}
	return s.conditionsRepo.ListDisposalsByCompany(ctx, companyID)
}
