package repository

import (
	"context"

	"tiretrack/internal/models"
)

// PositionRepository 位置事件Repository接口（只追加）
type PositionRepository interface {
	// AppendPosition 追加位置事件，并在同一事务中同步轮胎装车关系：
	//   - value == 0 强制 vehicle_id 置空（入库存），忽略传入的 vehicle_id
	//   - value > 0 装到传入车辆；未传车辆时沿用当前车辆（同车换轴位）
	AppendPosition(ctx context.Context, event *models.PositionEvent) (*models.PositionEvent, error)

	// LatestPosition 最新位置事件；无历史事件返回 nil
	LatestPosition(ctx context.Context, tireID string) (*models.PositionEvent, error)

	// ListByTire 轮胎的全部位置事件（按 date 倒序）
	ListByTire(ctx context.Context, tireID string) ([]*models.PositionEvent, error)
}
