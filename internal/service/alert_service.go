package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/models"
	"tiretrack/internal/repository"
)

// AlertService 报警查询与处置服务接口
// 报警的创建只发生在巡检评估路径，这里只有读和关闭
type AlertService interface {
	// ListByUser 用户的报警（按创建时间倒序）
	ListByUser(ctx context.Context, userID string) ([]*models.Alert, error)

	// ListByCompany 公司的报警（按创建时间倒序）
	ListByCompany(ctx context.Context, companyID string) ([]*models.Alert, error)

	// OpenAlert 同一 (tire, vehicle) 当前打开的报警；没有返回 nil
	OpenAlert(ctx context.Context, tireID, vehicleID string) (*models.Alert, error)

	// MarkRead 标记已读；之后同一 (tire, vehicle) 可再次触发报警
	MarkRead(ctx context.Context, alertID string) error

	// MarkActionTaken 标记已处理并记录处理时间
	MarkActionTaken(ctx context.Context, alertID string) error
}

// alertService 实现
type alertService struct {
	alertsRepo repository.AlertRepository
	logger     *zap.Logger
}

// NewAlertService 创建 AlertService 实例
func NewAlertService(alertsRepo repository.AlertRepository, logger *zap.Logger) AlertService {
	return &alertService{
		alertsRepo: alertsRepo,
		logger:     logger,
	}
}

// ListByUser 用户的报警
func (s *alertService) ListByUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrInvalidInput)
	}
	return s.alertsRepo.ListByUser(ctx, userID)
}

// ListByCompany 公司的报警
func (s *alertService) ListByCompany(ctx context.Context, companyID string) ([]*models.Alert, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}
	return s.alertsRepo.ListByCompany(ctx, companyID)
}

// OpenAlert 当前打开的报警
func (s *alertService) OpenAlert(ctx context.Context, tireID, vehicleID string) (*models.Alert, error) {
	if tireID == "" || vehicleID == "" {
		return nil, fmt.Errorf("%w: tire_id and vehicle_id are required", models.ErrInvalidInput)
	}
	return s.alertsRepo.GetOpenAlert(ctx, tireID, vehicleID)
}

// MarkRead 标记已读
func (s *alertService) MarkRead(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrInvalidInput)
	}
	if err := s.alertsRepo.MarkRead(ctx, alertID); err != nil {
		return err
	}
	s.logger.Info("Alert marked as read", zap.String("alert_id", alertID))
	return nil
}

// MarkActionTaken 标记已处理
func (s *alertService) MarkActionTaken(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrInvalidInput)
	}
	if err := s.alertsRepo.MarkActionTaken(ctx, alertID, time.Now()); err != nil {
		return err
	}
	s.logger.Info("Alert marked as actioned", zap.String("alert_id", alertID))
	return nil
}
