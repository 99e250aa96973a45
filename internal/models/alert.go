package models

import "time"

// AlertSeverity 报警级别
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Alert 胎深报警（对应 alerts 表）
// 去重约束：同一 (tire_id, vehicle_id) 同时至多一条未读且未处理的报警，
// 由数据库部分唯一索引保证，不靠应用层 check-then-act
type Alert struct {
	AlertID     string        `json:"alert_id" db:"alert_id"`
	TireID      string        `json:"tire_id" db:"tire_id"`
	VehicleID   string        `json:"vehicle_id" db:"vehicle_id"`
	CompanyID   string        `json:"company_id" db:"company_id"`
	UserID      string        `json:"user_id" db:"user_id"`
	Severity    AlertSeverity `json:"severity" db:"severity"`
	Title       string        `json:"title" db:"title"`
	Message     string        `json:"message" db:"message"`
	IsRead      bool          `json:"is_read" db:"is_read"`
	IsEmailSent bool          `json:"is_email_sent" db:"is_email_sent"` // 投递状态由外部通知服务回写
	ActionTaken bool          `json:"action_taken" db:"action_taken"`
	ActionDate  *time.Time    `json:"action_date,omitempty" db:"action_date"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at" db:"expires_at"`
}

// Open 报警是否仍处于打开状态（未读且未处理）
func (a *Alert) Open() bool {
	return !a.IsRead && !a.ActionTaken
}
