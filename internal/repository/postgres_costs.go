package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tiretrack/internal/models"
)

// PostgresCostRepository 成本台账Repository实现
type PostgresCostRepository struct {
	db *sql.DB
}

// NewPostgresCostRepository 创建成本台账Repository
func NewPostgresCostRepository(db *sql.DB) *PostgresCostRepository {
	return &PostgresCostRepository{db: db}
}

// 确保实现了接口
var _ CostRepository = (*PostgresCostRepository)(nil)

const costColumns = `
	cost_id,
	tire_id,
	amount,
	date,
	supplier,
	receipt_url,
	created_at
`

// CreateCost 追加成本事件
func (r *PostgresCostRepository) CreateCost(ctx context.Context, cost *models.CostEvent) error {
	if cost == nil {
		return fmt.Errorf("%w: cost is required", models.ErrInvalidInput)
	}
	if cost.TireID == "" {
		return fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if cost.Amount < 0 {
		return fmt.Errorf("%w: amount must be non-negative", models.ErrInvalidInput)
	}

	if cost.CostID == "" {
		cost.CostID = uuid.New().String()
	}
	if cost.Date.IsZero() {
		cost.Date = time.Now()
	}
	if cost.CreatedAt.IsZero() {
		cost.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tire_costs (cost_id, tire_id, amount, date, supplier, receipt_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		cost.CostID, cost.TireID, cost.Amount, cost.Date,
		cost.Supplier, cost.ReceiptURL, cost.CreatedAt,
	)
	if err != nil {
		return wrapWriteError(err, "create cost event")
	}

	return nil
}

// ListByTire 按时间倒序列出轮胎的成本事件
func (r *PostgresCostRepository) ListByTire(ctx context.Context, tireID string) ([]*models.CostEvent, error) {
	if tireID == "" {
		return []*models.CostEvent{}, nil
	}

	query := `SELECT ` + costColumns + ` FROM tire_costs WHERE tire_id = $1 ORDER BY date DESC`
	return r.queryCosts(ctx, query, tireID)
}

// TotalCost 累计成本
func (r *PostgresCostRepository) TotalCost(ctx context.Context, tireID string) (float64, error) {
	if tireID == "" {
		return 0, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}

	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM tire_costs WHERE tire_id = $1`,
		tireID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum costs: %w", err)
	}

	return total, nil
}

// CostsInWindow [from, to) 时间窗内的成本事件
func (r *PostgresCostRepository) CostsInWindow(ctx context.Context, tireID string, from, to time.Time) ([]*models.CostEvent, error) {
	if tireID == "" {
		return []*models.CostEvent{}, nil
	}

	query := `SELECT ` + costColumns + ` FROM tire_costs WHERE tire_id = $1 AND date >= $2 AND date < $3 ORDER BY date DESC`
	return r.queryCosts(ctx, query, tireID, from, to)
}

// CompanyTotalInvestment 公司全部轮胎的累计投入
func (r *PostgresCostRepository) CompanyTotalInvestment(ctx context.Context, companyID string) (float64, error) {
	if companyID == "" {
		return 0, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}

	var total float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(c.amount), 0)
		FROM tire_costs c
		JOIN tires t ON c.tire_id = t.tire_id
		WHERE t.company_id = $1
	`, companyID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum company investment: %w", err)
	}

	return total, nil
}

// CompanyCostsInWindow 公司全部轮胎在 [from, to) 时间窗内的成本合计
func (r *PostgresCostRepository) CompanyCostsInWindow(ctx context.Context, companyID string, from, to time.Time) (float64, error) {
	if companyID == "" {
		return 0, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}

	var total float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(c.amount), 0)
		FROM tire_costs c
		JOIN tires t ON c.tire_id = t.tire_id
		WHERE t.company_id = $1
		  AND c.date >= $2
		  AND c.date < $3
	`, companyID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum company costs in window: %w", err)
	}

	return total, nil
}

func (r *PostgresCostRepository) queryCosts(ctx context.Context, query string, args ...interface{}) ([]*models.CostEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query costs: %w", err)
	}
	defer rows.Close()

	costs := []*models.CostEvent{}
	for rows.Next() {
		var cost models.CostEvent
		var receiptURL sql.NullString

		err := rows.Scan(
			&cost.CostID,
			&cost.TireID,
			&cost.Amount,
			&cost.Date,
			&cost.Supplier,
			&receiptURL,
			&cost.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost event: %w", err)
		}

		if receiptURL.Valid {
			cost.ReceiptURL = &receiptURL.String
		}

		costs = append(costs, &cost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cost events: %w", err)
	}

	return costs, nil
}
