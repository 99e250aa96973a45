package models

import "time"

// DepthReadings 三点胎面深度读数（mm）
type DepthReadings struct {
	Center   float64 `json:"center"`
	Exterior float64 `json:"exterior"`
	Interior float64 `json:"interior"`
}

// Min 三点最小深度
func (d DepthReadings) Min() float64 {
	min := d.Center
	if d.Exterior < min {
		min = d.Exterior
	}
	if d.Interior < min {
		min = d.Interior
	}
	return min
}

// Inspection 巡检记录（对应 tire_inspections 表，只追加）
// CPM / ForecastedCPM 是写入时计算的审计副本；
// 最新值的权威缓存在 tire_stats
type Inspection struct {
	InspectionID  string        `json:"inspection_id" db:"inspection_id"`
	TireID        string        `json:"tire_id" db:"tire_id"`
	UserID        string        `json:"user_id" db:"user_id"`
	Date          time.Time     `json:"date" db:"date"`
	Depths        DepthReadings `json:"depths" db:"-"`
	Pressure      *float64      `json:"pressure,omitempty" db:"pressure"`
	ImageURL      *string       `json:"image_url,omitempty" db:"image_url"` // 外部存储的照片地址，原样保存
	CPM           float64       `json:"cpm" db:"cpm"`
	ForecastedCPM float64       `json:"forecasted_cpm" db:"forecasted_cpm"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// NewInspectionInput 记录巡检的输入
type NewInspectionInput struct {
	TireID         string        `json:"tire_id"`
	UserID         string        `json:"user_id"`
	Date           time.Time     `json:"date"`
	Depths         DepthReadings `json:"depths"`
	Pressure       *float64      `json:"pressure,omitempty"`
	ImageURL       *string       `json:"image_url,omitempty"`
	UpdatedMileage *float64      `json:"updated_mileage,omitempty"` // 仅在大于当前里程时生效
}

// InspectionResult 巡检处理结果（持久化记录 + 触发的报警）
type InspectionResult struct {
	Inspection *Inspection `json:"inspection"`
	Alert      *Alert      `json:"alert,omitempty"` // 未触发或被去重时为 nil
}

// TireStat 轮胎最新指标快照（对应 tire_stats 表，每胎至多一行）
// 派生缓存：可随时从成本台账 + 最新巡检重建
type TireStat struct {
	TireID        string    `json:"tire_id" db:"tire_id"`
	CPM           float64   `json:"cpm" db:"cpm"`
	ForecastedCPM float64   `json:"forecasted_cpm" db:"forecasted_cpm"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
