package notifier

import (
	"context"

	"tiretrack/internal/models"
)

// Notifier 报警外发接口
// 投递是尽力而为：失败由调用方记日志，不影响主流程；
// 实际的邮件/推送分发和 is_email_sent 回写由外部通知服务负责
type Notifier interface {
	AlertCreated(ctx context.Context, alert *models.Alert) error
}

// NopNotifier 空实现（未配置任何外发通道时使用）
type NopNotifier struct{}

var _ Notifier = (*NopNotifier)(nil)

func (NopNotifier) AlertCreated(ctx context.Context, alert *models.Alert) error {
	return nil
}
