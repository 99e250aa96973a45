package models

// FleetSummary 公司级车队指标汇总
// 无轮胎或无巡检数据时各项为 0，不报错
type FleetSummary struct {
	CompanyID               string  `json:"company_id"`
	TireCount               int     `json:"tire_count"`
	AverageCPM              float64 `json:"average_cpm"`
	AverageForecastedCPM    float64 `json:"average_forecasted_cpm"`
	CurrentMonthInvestment  float64 `json:"current_month_investment"`
	PreviousMonthInvestment float64 `json:"previous_month_investment"`
	TotalInvestment         float64 `json:"total_investment"`
}

// TireReportRow 车队报表行（xlsx 导出）
type TireReportRow struct {
	CustomID      string
	Brand         string
	Dimension     string
	LicensePlate  string // 未装车为空
	Mileage       float64
	TotalCost     float64
	CPM           float64
	ForecastedCPM float64
	Condition     string
}
