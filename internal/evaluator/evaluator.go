package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/models"
	"tiretrack/internal/notifier"
)

// 胎深报警阈值（mm），首个命中的级别生效
const (
	criticalDepthMM = 2.0
	warningDepthMM  = 4.0
	infoDepthMM     = 6.0
)

// AlertStore 报警存储（用于在单元测试中替换 PostgreSQL 实现）
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) (bool, error)
}

// Evaluator 胎深报警评估器
type Evaluator struct {
	alerts   AlertStore
	notifier notifier.Notifier
	alertTTL time.Duration
	logger   *zap.Logger
}

// New 创建评估器
func New(alerts AlertStore, n notifier.Notifier, alertTTL time.Duration, logger *zap.Logger) *Evaluator {
	if n == nil {
		n = notifier.NopNotifier{}
	}
	return &Evaluator{
		alerts:   alerts,
		notifier: n,
		alertTTL: alertTTL,
		logger:   logger,
	}
}

// Input 评估输入
type Input struct {
	TireID    string
	VehicleID string // 空表示在库存中（不评估）
	CompanyID string
	UserID    string
	Depths    models.DepthReadings
}

// SeverityForDepth 深度到级别的映射；第二个返回值为 false 表示无需报警
func SeverityForDepth(minDepth float64) (models.AlertSeverity, bool) {
	switch {
	case minDepth < criticalDepthMM:
		return models.SeverityCritical, true
	case minDepth < warningDepthMM:
		return models.SeverityWarning, true
	case minDepth < infoDepthMM:
		return models.SeverityInfo, true
	default:
		return "", false
	}
}

// Evaluate 评估一次巡检的深度读数
// 返回新建的报警；无需报警或被去重时返回 nil（都是正常静默结果）
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (*models.Alert, error) {
	minDepth := in.Depths.Min()

	severity, ok := SeverityForDepth(minDepth)
	if !ok {
		return nil, nil
	}

	// 库存胎没有装车上下文，不产生报警
	if in.VehicleID == "" {
		e.logger.Debug("Skipping alert for unmounted tire",
			zap.String("tire_id", in.TireID),
			zap.Float64("min_depth", minDepth),
		)
		return nil, nil
	}

	now := time.Now()
	alert := &models.Alert{
		TireID:    in.TireID,
		VehicleID: in.VehicleID,
		CompanyID: in.CompanyID,
		UserID:    in.UserID,
		Severity:  severity,
		Title:     fmt.Sprintf("Tire Alert: %s", strings.ToUpper(string(severity))),
		Message:   fmt.Sprintf("Tire has low depth (%gmm). Please inspect.", minDepth),
		CreatedAt: now,
		ExpiresAt: now.Add(e.alertTTL),
	}

	created, err := e.alerts.CreateAlert(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	if !created {
		// 已有打开的报警：不重复、不升级、不重置过期时间
		e.logger.Debug("Open alert already exists, skipping",
			zap.String("tire_id", in.TireID),
			zap.String("vehicle_id", in.VehicleID),
		)
		return nil, nil
	}

	e.logger.Info("Alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("tire_id", in.TireID),
		zap.String("severity", string(severity)),
		zap.Float64("min_depth", minDepth),
	)

	// 外发尽力而为，失败不影响巡检主流程
	if err := e.notifier.AlertCreated(ctx, alert); err != nil {
		e.logger.Warn("Failed to hand off alert",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err),
		)
	}

	return alert, nil
}
