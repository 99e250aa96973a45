package repository

import (
	"context"
	"time"

	"tiretrack/internal/models"
)

// CostRepository 成本台账Repository接口（只追加）
type CostRepository interface {
	// CreateCost 追加一条成本事件
	CreateCost(ctx context.Context, cost *models.CostEvent) error

	// ListByTire 按时间倒序列出轮胎的全部成本事件
	ListByTire(ctx context.Context, tireID string) ([]*models.CostEvent, error)

	// TotalCost 累计成本；无记录返回 0
	TotalCost(ctx context.Context, tireID string) (float64, error)

	// CostsInWindow [from, to) 时间窗内的成本事件
	CostsInWindow(ctx context.Context, tireID string, from, to time.Time) ([]*models.CostEvent, error)

	// CompanyTotalInvestment 公司全部轮胎的累计投入；无轮胎返回 0
	CompanyTotalInvestment(ctx context.Context, companyID string) (float64, error)

	// CompanyCostsInWindow 公司全部轮胎在 [from, to) 时间窗内的成本合计
	CompanyCostsInWindow(ctx context.Context, companyID string, from, to time.Time) (float64, error)
}
