package models

import "errors"

// 错误分类：NotFound / InvalidInput / Conflict 由调用方用 errors.Is 区分，
// 其余数据库错误原样包装上抛（由调用方决定是否重试）。
var (
	// ErrTireNotFound 轮胎不存在
	ErrTireNotFound = errors.New("tire not found")

	// ErrVehicleNotFound 车辆不存在
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrInvalidInput 输入参数非法（缺失字段、负数成本等）
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict 并发写入冲突（如里程 CAS 失败）
	ErrConflict = errors.New("conflict")

	// ErrTireDisposed 轮胎已报废，生命周期轨道不再接受新事件
	ErrTireDisposed = errors.New("tire already disposed")
)
