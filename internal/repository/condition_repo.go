package repository

import (
	"context"

	"tiretrack/internal/models"
)

// ConditionRepository 状态事件Repository接口（只追加）
type ConditionRepository interface {
	// AppendCondition 追加状态事件，并在同一事务中执行其副作用：
	//   - cost 为正数时写入成本台账（supplier = provider，缺省 "Unknown"）
	//   - 翻新且带花纹时更新轮胎显示花纹
	//   - 报废时：追加位置 0 事件、清空 vehicle_id、
	//     原先装车时原子递减该车辆 tire_count（钳制在 0）
	AppendCondition(ctx context.Context, event *models.ConditionEvent) (*models.ConditionEvent, error)

	// LatestCondition 最新状态事件（按 date 倒序，同日期按 seq 后写优先）；
	// 无历史事件返回 nil
	LatestCondition(ctx context.Context, tireID string) (*models.ConditionEvent, error)

	// ListByTire 轮胎的全部状态事件（按 date 倒序）
	ListByTire(ctx context.Context, tireID string) ([]*models.ConditionEvent, error)

	// ListDisposalsByCompany 公司的全部报废事件（按 date 倒序）
	ListDisposalsByCompany(ctx context.Context, companyID string) ([]*models.ConditionEvent, error)
}
