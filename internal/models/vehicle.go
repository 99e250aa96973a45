package models

import "time"

// Vehicle 车辆（对应 vehicles 表）
// TireCount 是反规范化的计数器，所有变更必须走原子增减，
// 漂移时可用 RecalculateTireCount 从装车状态重建
type Vehicle struct {
	VehicleID    string    `json:"vehicle_id" db:"vehicle_id"`
	CompanyID    string    `json:"company_id" db:"company_id"`
	LicensePlate string    `json:"license_plate" db:"license_plate"`
	TireCount    int       `json:"tire_count" db:"tire_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
