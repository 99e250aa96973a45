package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tiretrack/internal/models"
)

// PostgresAlertRepository 报警Repository实现
type PostgresAlertRepository struct {
	db *sql.DB
}

// NewPostgresAlertRepository 创建报警Repository
func NewPostgresAlertRepository(db *sql.DB) *PostgresAlertRepository {
	return &PostgresAlertRepository{db: db}
}

// 确保实现了接口
var _ AlertRepository = (*PostgresAlertRepository)(nil)

const alertColumns = `
	alert_id,
	tire_id,
	vehicle_id,
	company_id,
	user_id,
	severity,
	title,
	message,
	is_read,
	is_email_sent,
	action_taken,
	action_date,
	created_at,
	expires_at
`

// CreateAlert 创建报警（冲突即已有打开报警，静默 no-op）
// 依赖部分唯一索引 uniq_alerts_open，并发评估不靠应用层先查后插
func (r *PostgresAlertRepository) CreateAlert(ctx context.Context, alert *models.Alert) (bool, error) {
	if alert == nil {
		return false, fmt.Errorf("%w: alert is required", models.ErrInvalidInput)
	}
	if alert.TireID == "" {
		return false, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if alert.VehicleID == "" {
		return false, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (
			alert_id, tire_id, vehicle_id, company_id, user_id,
			severity, title, message,
			is_read, is_email_sent, action_taken, action_date,
			created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE, FALSE, NULL, $9, $10)
		ON CONFLICT (tire_id, vehicle_id) WHERE NOT is_read AND NOT action_taken
		DO NOTHING
	`,
		alert.AlertID, alert.TireID, alert.VehicleID, alert.CompanyID, alert.UserID,
		string(alert.Severity), alert.Title, alert.Message,
		alert.CreatedAt, alert.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetOpenAlert 查询打开的报警
func (r *PostgresAlertRepository) GetOpenAlert(ctx context.Context, tireID, vehicleID string) (*models.Alert, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle_id is required", models.ErrInvalidInput)
	}

	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE tire_id = $1
		  AND vehicle_id = $2
		  AND NOT is_read
		  AND NOT action_taken
		LIMIT 1`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, tireID, vehicleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 没有打开的报警
		}
		return nil, fmt.Errorf("failed to get open alert: %w", err)
	}

	return alert, nil
}

// ListByUser 用户的报警
func (r *PostgresAlertRepository) ListByUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	if userID == "" {
		return []*models.Alert{}, nil
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryAlerts(ctx, query, userID)
}

// ListByCompany 公司的报警
func (r *PostgresAlertRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.Alert, error) {
	if companyID == "" {
		return []*models.Alert{}, nil
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE company_id = $1 ORDER BY created_at DESC`
	return r.queryAlerts(ctx, query, companyID)
}

// MarkRead 标记已读
func (r *PostgresAlertRepository) MarkRead(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = TRUE WHERE alert_id = $1`,
		alertID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert not found: alert_id=%s", alertID)
	}

	return nil
}

// MarkActionTaken 标记已处理
func (r *PostgresAlertRepository) MarkActionTaken(ctx context.Context, alertID string, actionDate time.Time) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET action_taken = TRUE, action_date = $2 WHERE alert_id = $1`,
		alertID, actionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to mark alert action taken: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert not found: alert_id=%s", alertID)
	}

	return nil
}

func (r *PostgresAlertRepository) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var alert models.Alert
	var severity string
	var actionDate sql.NullTime

	err := row.Scan(
		&alert.AlertID,
		&alert.TireID,
		&alert.VehicleID,
		&alert.CompanyID,
		&alert.UserID,
		&severity,
		&alert.Title,
		&alert.Message,
		&alert.IsRead,
		&alert.IsEmailSent,
		&alert.ActionTaken,
		&actionDate,
		&alert.CreatedAt,
		&alert.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	alert.Severity = models.AlertSeverity(severity)
	if actionDate.Valid {
		alert.ActionDate = &actionDate.Time
	}

	return &alert, nil
}
