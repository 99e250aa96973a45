// Package forecast 实现磨损外推的纯计算，不做任何 I/O。
//
// 模型是闭式线性外推：wearRatio 近似"已消耗的胎面比例"，
// mileage / wearRatio 外推到完全磨损时的总里程，
// 再用累计成本折算出寿命终点的每公里成本。
package forecast

// 两个下限都是行为兼容性要求的固定策略值，调整会改变历史输出：
//   - minWearRatio 避免全新胎（深度未变）或读数噪声（深度变大）导致
//     除零或负值
//   - 里程下限 1 避免从未行驶的轮胎除零
const minWearRatio = 0.001

// Metrics 计算结果
type Metrics struct {
	CPM           float64 // 每公里成本
	ForecastedCPM float64 // 外推到完全磨损时的每公里成本
	WearRatio     float64 // 已消耗胎面比例（钳制后）
}

// Compute 由累计成本、里程、初始深度和当前最小深度计算成本指标
func Compute(totalCost, mileage, initialDepth, minDepth float64) Metrics {
	if mileage < 1 {
		mileage = 1
	}
	if initialDepth <= 0 {
		initialDepth = 1
	}

	wearRatio := (initialDepth - minDepth) / initialDepth
	if wearRatio <= 0 {
		wearRatio = minWearRatio
	}

	return Metrics{
		CPM:           totalCost / mileage,
		ForecastedCPM: totalCost / (mileage / wearRatio),
		WearRatio:     wearRatio,
	}
}
