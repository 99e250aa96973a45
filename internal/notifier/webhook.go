package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"tiretrack/internal/models"
)

// WebhookNotifier 把新建报警 POST 到外部通知服务
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier 创建Webhook通知器
func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
	}
}

// AlertCreated POST 报警 JSON
func (n *WebhookNotifier) AlertCreated(ctx context.Context, alert *models.Alert) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	return nil
}
