package models

import (
	"time"
)

// Tire 轮胎（对应 tires 表）
// VehicleID 为 nil 表示在库存中（未装车）
type Tire struct {
	TireID       string    `json:"tire_id" db:"tire_id"`
	CompanyID    string    `json:"company_id" db:"company_id"`
	VehicleID    *string   `json:"vehicle_id,omitempty" db:"vehicle_id"`
	CustomID     string    `json:"custom_id" db:"custom_id"` // 人工编号
	Brand        string    `json:"brand" db:"brand"`
	Design       string    `json:"design" db:"design"` // 翻新时可更新显示用花纹
	Dimension    string    `json:"dimension" db:"dimension"`
	Axis         string    `json:"axis" db:"axis"`
	InitialDepth float64   `json:"initial_depth" db:"initial_depth"` // 安装时胎面深度（mm），创建后不变
	Mileage      float64   `json:"mileage" db:"mileage"`             // 单调不减，由巡检更新
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// 最新生命周期状态（从事件日志派生，非权威字段）
	LatestCondition *ConditionEvent `json:"latest_condition,omitempty" db:"-"`
	LatestPosition  *PositionEvent  `json:"latest_position,omitempty" db:"-"`
}

// Mounted 是否装车
func (t *Tire) Mounted() bool {
	return t.VehicleID != nil && *t.VehicleID != ""
}

// NewTireInput 创建轮胎的输入（含初始成本/状态/位置）
type NewTireInput struct {
	CompanyID    string  `json:"company_id"`
	VehicleID    *string `json:"vehicle_id,omitempty"`
	CustomID     string  `json:"custom_id"`
	Brand        string  `json:"brand"`
	Design       string  `json:"design"`
	Dimension    string  `json:"dimension"`
	Axis         string  `json:"axis"`
	InitialDepth float64 `json:"initial_depth"`

	// 初始采购成本
	Cost struct {
		Amount   float64   `json:"amount"`
		Date     time.Time `json:"date"`
		Supplier string    `json:"supplier"`
	} `json:"cost"`

	// 初始状态标签（new / retread-1 / ...）
	Condition string `json:"condition"`

	// 初始安装位置（nil 表示入库存）
	Position *int `json:"position,omitempty"`
}
