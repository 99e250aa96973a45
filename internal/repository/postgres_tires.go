package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tiretrack/internal/models"
)

// PostgresTireRepository 轮胎Repository实现
type PostgresTireRepository struct {
	db *sql.DB
}

// NewPostgresTireRepository 创建轮胎Repository
func NewPostgresTireRepository(db *sql.DB) *PostgresTireRepository {
	return &PostgresTireRepository{db: db}
}

// 确保实现了接口
var _ TireRepository = (*PostgresTireRepository)(nil)

const tireColumns = `
	tire_id,
	company_id,
	vehicle_id,
	custom_id,
	brand,
	design,
	dimension,
	axis,
	initial_depth,
	mileage,
	created_at,
	updated_at
`

// CreateTire 创建轮胎，同一事务写入初始成本、初始状态和可选初始位置
func (r *PostgresTireRepository) CreateTire(ctx context.Context, input *models.NewTireInput) (*models.Tire, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", models.ErrInvalidInput)
	}
	if input.CompanyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}
	if input.CustomID == "" {
		return nil, fmt.Errorf("%w: custom_id is required", models.ErrInvalidInput)
	}
	if input.InitialDepth <= 0 {
		return nil, fmt.Errorf("%w: initial_depth must be positive", models.ErrInvalidInput)
	}
	if input.Cost.Amount < 0 {
		return nil, fmt.Errorf("%w: cost amount must be non-negative", models.ErrInvalidInput)
	}
	// 装车位置必须带目标车辆，否则位置事件与装车关系自相矛盾
	if input.Position != nil && *input.Position > 0 && (input.VehicleID == nil || *input.VehicleID == "") {
		return nil, fmt.Errorf("%w: vehicle_id is required when position > 0", models.ErrInvalidInput)
	}

	now := time.Now()
	tire := &models.Tire{
		TireID:       uuid.New().String(),
		CompanyID:    input.CompanyID,
		VehicleID:    input.VehicleID,
		CustomID:     input.CustomID,
		Brand:        input.Brand,
		Design:       input.Design,
		Dimension:    input.Dimension,
		Axis:         input.Axis,
		InitialDepth: input.InitialDepth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tires (
			tire_id, company_id, vehicle_id, custom_id, brand, design,
			dimension, axis, initial_depth, mileage, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $10)
	`,
		tire.TireID, tire.CompanyID, tire.VehicleID, tire.CustomID,
		tire.Brand, tire.Design, tire.Dimension, tire.Axis,
		tire.InitialDepth, now,
	)
	if err != nil {
		return nil, wrapWriteError(err, "insert tire")
	}

	// 初始采购成本
	costDate := input.Cost.Date
	if costDate.IsZero() {
		costDate = now
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tire_costs (cost_id, tire_id, amount, date, supplier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New().String(), tire.TireID, input.Cost.Amount, costDate, input.Cost.Supplier, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert initial cost: %w", err)
	}

	// 初始状态事件
	condition := input.Condition
	if condition == "" {
		condition = "new"
	}
	kind := models.DetectConditionKind(condition, nil, nil)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tire_conditions (condition_id, tire_id, kind, value, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, uuid.New().String(), tire.TireID, string(kind), condition, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert initial condition: %w", err)
	}

	// 可选初始位置事件
	if input.Position != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tire_positions (position_id, tire_id, value, date, vehicle_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $4)
		`, uuid.New().String(), tire.TireID, *input.Position, now, input.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert initial position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tire, nil
}

// GetTire 按 ID 获取轮胎
func (r *PostgresTireRepository) GetTire(ctx context.Context, tireID string) (*models.Tire, error) {
	if tireID == "" {
		return nil, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}

	query := `SELECT ` + tireColumns + ` FROM tires WHERE tire_id = $1`

	tire, err := scanTire(r.db.QueryRowContext(ctx, query, tireID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: tire_id=%s", models.ErrTireNotFound, tireID)
		}
		return nil, fmt.Errorf("failed to get tire: %w", err)
	}

	if err := r.attachLatestEvents(ctx, []*models.Tire{tire}); err != nil {
		return nil, err
	}

	return tire, nil
}

// FindByCustomID 按人工编号查找
func (r *PostgresTireRepository) FindByCustomID(ctx context.Context, companyID, customID string) ([]*models.Tire, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}
	if customID == "" {
		return nil, fmt.Errorf("%w: custom_id is required", models.ErrInvalidInput)
	}

	query := `SELECT ` + tireColumns + ` FROM tires WHERE company_id = $1 AND custom_id = $2 ORDER BY created_at DESC`
	return r.queryTires(ctx, query, companyID, customID)
}

// ListByCompany 公司下全部轮胎
func (r *PostgresTireRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.Tire, error) {
	if companyID == "" {
		return []*models.Tire{}, nil
	}

	query := `SELECT ` + tireColumns + ` FROM tires WHERE company_id = $1 ORDER BY created_at DESC`
	return r.queryTires(ctx, query, companyID)
}

// ListByVehicle 车辆下全部轮胎
func (r *PostgresTireRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]*models.Tire, error) {
	if vehicleID == "" {
		return []*models.Tire{}, nil
	}

	query := `SELECT ` + tireColumns + ` FROM tires WHERE vehicle_id = $1 ORDER BY created_at DESC`
	return r.queryTires(ctx, query, vehicleID)
}

// UpdateMileage 条件更新里程（仅在新值更大时生效）
func (r *PostgresTireRepository) UpdateMileage(ctx context.Context, tireID string, mileage float64) (bool, error) {
	if tireID == "" {
		return false, fmt.Errorf("%w: tire_id is required", models.ErrInvalidInput)
	}
	if mileage < 0 {
		return false, fmt.Errorf("%w: mileage must be non-negative", models.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tires
		SET mileage = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE tire_id = $1
		  AND mileage < $2
	`, tireID, mileage)
	if err != nil {
		return false, fmt.Errorf("failed to update mileage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// 区分"轮胎不存在"和"新值不大于当前值"（后者静默忽略）
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tires WHERE tire_id = $1)`, tireID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to check tire existence: %w", err)
		}
		if !exists {
			return false, fmt.Errorf("%w: tire_id=%s", models.ErrTireNotFound, tireID)
		}
		return false, nil
	}

	return true, nil
}

func (r *PostgresTireRepository) queryTires(ctx context.Context, query string, args ...interface{}) ([]*models.Tire, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tires: %w", err)
	}
	defer rows.Close()

	tires := []*models.Tire{}
	for rows.Next() {
		tire, err := scanTire(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tire: %w", err)
		}
		tires = append(tires, tire)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tires: %w", err)
	}

	if err := r.attachLatestEvents(ctx, tires); err != nil {
		return nil, err
	}

	return tires, nil
}

// attachLatestEvents 批量附带每胎最新的状态/位置事件
func (r *PostgresTireRepository) attachLatestEvents(ctx context.Context, tires []*models.Tire) error {
	if len(tires) == 0 {
		return nil
	}

	ids := make([]string, 0, len(tires))
	byID := make(map[string]*models.Tire, len(tires))
	for _, tire := range tires {
		ids = append(ids, tire.TireID)
		byID[tire.TireID] = tire
	}

	if err := r.attachLatestConditions(ctx, ids, byID); err != nil {
		return err
	}
	return r.attachLatestPositions(ctx, ids, byID)
}

func (r *PostgresTireRepository) attachLatestConditions(ctx context.Context, ids []string, byID map[string]*models.Tire) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (tire_id) `+conditionColumns+`
		FROM tire_conditions
		WHERE tire_id = ANY($1)
		ORDER BY tire_id, date DESC, seq DESC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query latest conditions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		event, err := scanCondition(rows)
		if err != nil {
			return fmt.Errorf("failed to scan condition event: %w", err)
		}
		if tire, ok := byID[event.TireID]; ok {
			tire.LatestCondition = event
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate condition events: %w", err)
	}
	return nil
}

func (r *PostgresTireRepository) attachLatestPositions(ctx context.Context, ids []string, byID map[string]*models.Tire) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (tire_id) `+positionColumns+`
		FROM tire_positions
		WHERE tire_id = ANY($1)
		ORDER BY tire_id, date DESC, seq DESC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query latest positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		event, err := scanPosition(rows)
		if err != nil {
			return fmt.Errorf("failed to scan position event: %w", err)
		}
		if tire, ok := byID[event.TireID]; ok {
			tire.LatestPosition = event
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate position events: %w", err)
	}
	return nil
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTire(row rowScanner) (*models.Tire, error) {
	var tire models.Tire
	var vehicleID sql.NullString

	err := row.Scan(
		&tire.TireID,
		&tire.CompanyID,
		&vehicleID,
		&tire.CustomID,
		&tire.Brand,
		&tire.Design,
		&tire.Dimension,
		&tire.Axis,
		&tire.InitialDepth,
		&tire.Mileage,
		&tire.CreatedAt,
		&tire.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if vehicleID.Valid {
		tire.VehicleID = &vehicleID.String
	}

	return &tire, nil
}
