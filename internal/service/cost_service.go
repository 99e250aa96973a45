package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/models"
	"tiretrack/internal/repository"
)

// CostService 成本台账服务接口
type CostService interface {
	// AddCost 追加成本事件（金额非负，0 表示免费服务留痕）
	AddCost(ctx context.Context, req AddCostRequest) (*models.CostEvent, error)

	// ListCosts 轮胎的全部成本事件（按时间倒序）
	ListCosts(ctx context.Context, tireID string) ([]*models.CostEvent, error)

	// CostsInWindow 轮胎在 [from, to) 时间窗内的成本事件
	CostsInWindow(ctx context.Context, tireID string, from, to time.Time) ([]*models.CostEvent, error)

	// TotalCost 轮胎累计成本；无记录返回 0
	TotalCost(ctx context.Context, tireID string) (float64, error)

	// CompanyInvestment 公司全部轮胎的累计投入
	CompanyInvestment(ctx context.Context, companyID string) (float64, error)

	// MonthlyComparison 公司本月与上月的成本对比
	MonthlyComparison(ctx context.Context, companyID string, now time.Time) (*models.MonthlyCost, error)
}

// costService 实现
type costService struct {
	costsRepo repository.CostRepository
	tiresRepo repository.TireRepository
	logger    *zap.Logger
}

// NewCostService 创建 CostService 实例
func NewCostService(costsRepo repository.CostRepository, tiresRepo repository.TireRepository, logger *zap.Logger) CostService {
	return &costService{
		costsRepo: costsRepo,
		tiresRepo: tiresRepo,
		logger:    logger,
	}
}

// AddCostRequest 追加成本事件请求
type AddCostRequest struct {
	TireID     string    `json:"tire_id"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	Supplier   string    `json:"supplier"`
	ReceiptURL *string   `json:"receipt_url,omitempty"`
}

// AddCost 追加成本事件
func (s *costService) AddCost(ctx context.Context, req AddCostRequest) (*models.CostEvent, error) {
	// 1. 参数验证
	if req.TireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must be non-negative", models.ErrInvalidInput)
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}
	if req.Supplier == "" {
		req.Supplier = "Unknown"
	}

	// 2. 轮胎必须存在（报废胎的台账仍接受追加，用于补录处置费用）
	if _, err := s.tiresRepo.GetTire(ctx, req.TireID); err != nil {
		return nil, err
	}

	// 3. 写入
	cost := &models.CostEvent{
		TireID:     req.TireID,
		Amount:     req.Amount,
		Date:       req.Date,
		Supplier:   req.Supplier,
		ReceiptURL: req.ReceiptURL,
	}
	if err := s.costsRepo.CreateCost(ctx, cost); err != nil {
		return nil, fmt.Errorf("failed to create cost: %w", err)
	}

	s.logger.Info("Cost event recorded",
		zap.String("tire_id", cost.TireID),
		zap.Float64("amount", cost.Amount),
		zap.String("supplier", cost.Supplier))

	return cost, nil
}

// ListCosts 轮胎的全部成本事件
func (s *costService) ListCosts(ctx context.Context, tireID string) ([]*models.CostEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.costsRepo.ListByTire(ctx, tireID)
}

// CostsInWindow 时间窗内的成本事件
func (s *costService) CostsInWindow(ctx context.Context, tireID string, from, to time.Time) ([]*models.CostEvent, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: window end must be after window start", models.ErrInvalidInput)
	}
	return s.costsRepo.CostsInWindow(ctx, tireID, from, to)
}

// TotalCost 轮胎累计成本
func (s *costService) TotalCost(ctx context.Context, tireID string) (float64, error) {
	if tireID == "" {
		return 0, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	return s.costsRepo.TotalCost(ctx, tireID)
}

// CompanyInvestment 公司累计投入
func (s *costService) CompanyInvestment(ctx context.Context, companyID string) (float64, error) {
	if companyID == "" {
		return 0, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}
	return s.costsRepo.CompanyTotalInvestment(ctx, companyID)
}

// MonthlyComparison 本月与上月的成本对比
// 本月窗口为 [月初, now)，不含未来日期的事件；上月窗口为 [上月初, 月初)
func (s *costService) MonthlyComparison(ctx context.Context, companyID string, now time.Time) (*models.MonthlyCost, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}

	currentStart := startOfMonth(now)
	previousStart := currentStart.AddDate(0, -1, 0)

	current, err := s.costsRepo.CompanyCostsInWindow(ctx, companyID, currentStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sum current month costs: %w", err)
	}
	previous, err := s.costsRepo.CompanyCostsInWindow(ctx, companyID, previousStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum previous month costs: %w", err)
	}

	return &models.MonthlyCost{
		CurrentMonthTotal:  current,
		PreviousMonthTotal: previous,
	}, nil
}

// startOfMonth 当月第一天零点（保留时区）
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
