package models

import "time"

// CostEvent 成本事件（对应 tire_costs 表，只追加不修改）
type CostEvent struct {
	CostID     string    `json:"cost_id" db:"cost_id"`
	TireID     string    `json:"tire_id" db:"tire_id"`
	Amount     float64   `json:"amount" db:"amount"` // 非负，0 表示免费服务记录
	Date       time.Time `json:"date" db:"date"`
	Supplier   string    `json:"supplier" db:"supplier"`
	ReceiptURL *string   `json:"receipt_url,omitempty" db:"receipt_url"` // 外部存储的票据地址，原样保存
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MonthlyCost 公司级月度成本对比
type MonthlyCost struct {
	CurrentMonthTotal  float64 `json:"current_month_total"`
	PreviousMonthTotal float64 `json:"previous_month_total"`
}
