package repository

import (
	"context"

	"tiretrack/internal/models"
)

// TireSnapshot 巡检事务中读到的轮胎一致性快照
// （行锁内的读值，用于事务外的报警评估）
type TireSnapshot struct {
	TireID       string
	CompanyID    string
	VehicleID    *string
	InitialDepth float64
	Mileage      float64 // 里程更新后的值
	TotalCost    float64
}

// InspectionRepository 巡检Repository接口
type InspectionRepository interface {
	// RecordInspection 记录一次巡检。整个序列在单事务内完成，
	// 对同一轮胎的并发巡检通过行锁串行化：
	//   1. 行锁轮胎（NotFound 检查）
	//   2. updated_mileage 大于当前里程时更新（否则静默忽略）
	//   3. 读取累计成本
	//   4. 计算 cpm / forecasted_cpm
	//   5. 持久化巡检记录（含指标审计副本）
	//   6. upsert 最新指标快照
	RecordInspection(ctx context.Context, input *models.NewInspectionInput) (*models.Inspection, *TireSnapshot, error)

	// ListByTire 轮胎的巡检历史（按 date 倒序）
	ListByTire(ctx context.Context, tireID string) ([]*models.Inspection, error)

	// LatestMetricsByCompany 公司每条轮胎最新巡检的指标
	// （扫描公司全部巡检按日期倒序，每胎取首次出现的记录）
	LatestMetricsByCompany(ctx context.Context, companyID string) ([]*models.TireStat, error)

	// RebuildStats 从成本台账 + 最新巡检重建指标快照（漂移恢复）
	// 轮胎没有任何巡检时为 no-op，返回 false
	RebuildStats(ctx context.Context, tireID string) (bool, error)
}
