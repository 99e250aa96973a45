package service

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/cache"
	"tiretrack/internal/evaluator"
	"tiretrack/internal/notifier"
	"tiretrack/internal/repository"
)

// Engine 轮胎引擎对外入口：聚合全部服务，供上层（API、任务调度）调用
type Engine struct {
	Tires       TireService
	Costs       CostService
	Lifecycle   LifecycleService
	Inspections InspectionService
	Alerts      AlertService
	Fleet       FleetService
}

// EngineOptions 引擎装配参数
type EngineOptions struct {
	// KV 车队缓存；nil 时退化为实时计算
	KV cache.KVStore

	// Notifier 报警外发通道；nil 时只落库
	Notifier notifier.Notifier

	AlertTTL       time.Duration
	FleetKeyPrefix string
	FleetCacheTTL  time.Duration
}

// NewEngine 装配轮胎引擎（repository 层 + 评估器 + 服务层）
func NewEngine(db *sql.DB, opts EngineOptions, logger *zap.Logger) *Engine {
	tiresRepo := repository.NewPostgresTireRepository(db)
	vehiclesRepo := repository.NewPostgresVehicleRepository(db)
	costsRepo := repository.NewPostgresCostRepository(db)
	conditionsRepo := repository.NewPostgresConditionRepository(db)
	positionsRepo := repository.NewPostgresPositionRepository(db)
	inspectionsRepo := repository.NewPostgresInspectionRepository(db)
	statsRepo := repository.NewPostgresStatRepository(db)
	alertsRepo := repository.NewPostgresAlertRepository(db)

	eval := evaluator.New(alertsRepo, opts.Notifier, opts.AlertTTL, logger)

	return &Engine{
		Tires:       NewTireService(tiresRepo, vehiclesRepo, logger),
		Costs:       NewCostService(costsRepo, tiresRepo, logger),
		Lifecycle:   NewLifecycleService(conditionsRepo, positionsRepo, tiresRepo, logger),
		Inspections: NewInspectionService(inspectionsRepo, statsRepo, eval, logger),
		Alerts:      NewAlertService(alertsRepo, logger),
		Fleet: NewFleetService(
			tiresRepo, vehiclesRepo, costsRepo, inspectionsRepo, statsRepo,
			opts.KV, opts.FleetKeyPrefix, opts.FleetCacheTTL, logger,
		),
	}
}
