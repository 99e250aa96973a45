package repository

import (
	"context"

	"tiretrack/internal/models"
)

// StatRepository 指标快照Repository接口
// 快照是派生缓存，写入发生在巡检事务内部，这里只提供读取路径
type StatRepository interface {
	// GetStat 读取轮胎的最新指标快照；不存在返回 nil
	GetStat(ctx context.Context, tireID string) (*models.TireStat, error)

	// ListByCompany 公司全部轮胎的指标快照（车队聚合读取路径）
	ListByCompany(ctx context.Context, companyID string) ([]*models.TireStat, error)
}
