package repository

import (
	"context"
	"time"

	"tiretrack/internal/models"
)

// AlertRepository 报警Repository接口
type AlertRepository interface {
	// CreateAlert 创建报警。去重靠 alerts 表上的部分唯一索引
	// （同一 tire_id + vehicle_id 至多一条打开的报警）：
	// 冲突视为"已有打开报警"，返回 created=false，不报错
	CreateAlert(ctx context.Context, alert *models.Alert) (created bool, err error)

	// GetOpenAlert 查询打开的报警（未读且未处理）；没有返回 nil
	GetOpenAlert(ctx context.Context, tireID, vehicleID string) (*models.Alert, error)

	// ListByUser 用户的报警（按创建时间倒序）
	ListByUser(ctx context.Context, userID string) ([]*models.Alert, error)

	// ListByCompany 公司的报警（按创建时间倒序）
	ListByCompany(ctx context.Context, companyID string) ([]*models.Alert, error)

	// MarkRead 标记已读（关闭报警的一条路径）
	MarkRead(ctx context.Context, alertID string) error

	// MarkActionTaken 标记已处理并记录处理时间
	MarkActionTaken(ctx context.Context, alertID string, actionDate time.Time) error
}
