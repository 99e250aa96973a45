package models

import (
	"strings"
	"time"
)

// ConditionKind 状态事件类型（显式标签，而不是靠字段组合推断）
type ConditionKind string

const (
	ConditionNew      ConditionKind = "new"
	ConditionRetread  ConditionKind = "retread"
	ConditionDisposed ConditionKind = "disposed"
	ConditionOther    ConditionKind = "other"
)

// ConditionEvent 轮胎状态事件（对应 tire_conditions 表，只追加）
// Kind 在创建时确定：报废事件必须同时携带 Motive 和 RemainingDepthMM，
// 其余按 Value 标签归类。日期相同时按 Seq 取后写入者。
type ConditionEvent struct {
	Seq         int64         `json:"seq" db:"seq"`
	ConditionID string        `json:"condition_id" db:"condition_id"`
	TireID      string        `json:"tire_id" db:"tire_id"`
	Kind        ConditionKind `json:"kind" db:"kind"`
	Value       string        `json:"value" db:"value"` // 原始标签（new / retread-2 / disposed / 自定义）
	Date        time.Time     `json:"date" db:"date"`

	Design           *string  `json:"design,omitempty" db:"design"`     // 翻新花纹
	Cost             *float64 `json:"cost,omitempty" db:"cost"`         // 正数时同步写入成本台账
	Provider         *string  `json:"provider,omitempty" db:"provider"` // 服务商，作为成本 supplier
	Motive           *string  `json:"motive,omitempty" db:"motive"`     // 报废原因
	RemainingDepthMM *float64 `json:"remaining_depth_mm,omitempty" db:"remaining_depth_mm"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsDisposal 是否报废事件
func (e *ConditionEvent) IsDisposal() bool {
	return e.Kind == ConditionDisposed
}

// DetectConditionKind 根据事件内容归类
// 同时携带 motive 和 remaining_depth_mm 视为报废；
// 标签含 "retread"（或西语 "reencauche"）视为翻新
func DetectConditionKind(value string, motive *string, remainingDepthMM *float64) ConditionKind {
	if motive != nil && *motive != "" && remainingDepthMM != nil {
		return ConditionDisposed
	}
	lower := strings.ToLower(value)
	if strings.Contains(lower, "retread") || strings.Contains(lower, "reencauche") {
		return ConditionRetread
	}
	if lower == "new" {
		return ConditionNew
	}
	return ConditionOther
}

// PositionEvent 轮胎位置事件（对应 tire_positions 表，只追加）
// Value 0 表示卸下入库，>0 表示装车槽位
type PositionEvent struct {
	Seq        int64     `json:"seq" db:"seq"`
	PositionID string    `json:"position_id" db:"position_id"`
	TireID     string    `json:"tire_id" db:"tire_id"`
	Value      int       `json:"value" db:"value"`
	Date       time.Time `json:"date" db:"date"`
	VehicleID  *string   `json:"vehicle_id,omitempty" db:"vehicle_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
