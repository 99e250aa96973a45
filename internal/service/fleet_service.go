package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tiretrack/internal/cache"
	"tiretrack/internal/models"
	"tiretrack/internal/report"
	"tiretrack/internal/repository"
)

// FleetService 车队聚合服务接口
type FleetService interface {
	// Summary 公司级车队汇总（平均 cpm、月度投入、总投入）。
	// 结果短 TTL 缓存；公司无轮胎或无巡检时各项为 0
	Summary(ctx context.Context, companyID string, now time.Time) (*models.FleetSummary, error)

	// InvalidateSummary 主动失效汇总缓存（写路径后调用）
	InvalidateSummary(ctx context.Context, companyID string) error

	// ReportRows 车队报表行（xlsx 导出的数据源）
	ReportRows(ctx context.Context, companyID string) ([]*models.TireReportRow, error)

	// ExportReport 生成车队 xlsx 报表
	ExportReport(ctx context.Context, companyID string) ([]byte, error)
}

// fleetService 实现
type fleetService struct {
	tiresRepo       repository.TireRepository
	vehiclesRepo    repository.VehicleRepository
	costsRepo       repository.CostRepository
	inspectionsRepo repository.InspectionRepository
	statsRepo       repository.StatRepository
	kv              cache.KVStore
	cachePrefix     string
	cacheTTL        time.Duration
	logger          *zap.Logger
}

// NewFleetService 创建 FleetService 实例
// kv 为 nil 时不启用缓存（每次实时计算）
func NewFleetService(
	tiresRepo repository.TireRepository,
	vehiclesRepo repository.VehicleRepository,
	costsRepo repository.CostRepository,
	inspectionsRepo repository.InspectionRepository,
	statsRepo repository.StatRepository,
	kv cache.KVStore,
	cachePrefix string,
	cacheTTL time.Duration,
	logger *zap.Logger,
) FleetService {
	return &fleetService{
		tiresRepo:       tiresRepo,
		vehiclesRepo:    vehiclesRepo,
		costsRepo:       costsRepo,
		inspectionsRepo: inspectionsRepo,
		statsRepo:       statsRepo,
		kv:              kv,
		cachePrefix:     cachePrefix,
		cacheTTL:        cacheTTL,
		logger:          logger,
	}
}

// Summary 公司级车队汇总
func (s *fleetService) Summary(ctx context.Context, companyID string, now time.Time) (*models.FleetSummary, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}

	// 1. 缓存命中直接返回；缓存故障只记日志，退化为实时计算
	cacheKey := s.cachePrefix + companyID
	if s.kv != nil {
		raw, err := s.kv.Get(ctx, cacheKey)
		if err == nil {
			var summary models.FleetSummary
			if err := json.Unmarshal([]byte(raw), &summary); err == nil {
				return &summary, nil
			}
			s.logger.Warn("Corrupt fleet summary cache entry, recomputing",
				zap.String("company_id", companyID))
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Fleet summary cache read failed",
				zap.String("company_id", companyID),
				zap.Error(err))
		}
	}

	// 2. 实时计算
	summary, err := s.computeSummary(ctx, companyID, now)
	if err != nil {
		return nil, err
	}

	// 3. 回填缓存（best-effort）
	if s.kv != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.kv.Set(ctx, cacheKey, string(raw), s.cacheTTL); err != nil {
				s.logger.Warn("Fleet summary cache write failed",
					zap.String("company_id", companyID),
					zap.Error(err))
			}
		}
	}

	return summary, nil
}

// computeSummary 实时聚合
func (s *fleetService) computeSummary(ctx context.Context, companyID string, now time.Time) (*models.FleetSummary, error) {
	summary := &models.FleetSummary{CompanyID: companyID}

	tires, err := s.tiresRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list company tires: %w", err)
	}
	summary.TireCount = len(tires)

	// 平均值只统计有巡检数据的轮胎
	stats, err := s.inspectionsRepo.LatestMetricsByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest metrics: %w", err)
	}
	if len(stats) > 0 {
		var sumCPM, sumForecast float64
		for _, st := range stats {
			sumCPM += st.CPM
			sumForecast += st.ForecastedCPM
		}
		summary.AverageCPM = sumCPM / float64(len(stats))
		summary.AverageForecastedCPM = sumForecast / float64(len(stats))
	}

	// 本月窗口截至 now，未来日期的事件不计入当月投入
	currentStart := startOfMonth(now)
	previousStart := currentStart.AddDate(0, -1, 0)

	summary.CurrentMonthInvestment, err = s.costsRepo.CompanyCostsInWindow(ctx, companyID, currentStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sum current month investment: %w", err)
	}
	summary.PreviousMonthInvestment, err = s.costsRepo.CompanyCostsInWindow(ctx, companyID, previousStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum previous month investment: %w", err)
	}
	summary.TotalInvestment, err = s.costsRepo.CompanyTotalInvestment(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum total investment: %w", err)
	}

	return summary, nil
}

// InvalidateSummary 主动失效汇总缓存
func (s *fleetService) InvalidateSummary(ctx context.Context, companyID string) error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Delete(ctx, s.cachePrefix+companyID)
}

// ReportRows 车队报表行
func (s *fleetService) ReportRows(ctx context.Context, companyID string) ([]*models.TireReportRow, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id is required", models.ErrInvalidInput)
	}

	tires, err := s.tiresRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list company tires: %w", err)
	}

	// 车牌按需查询并缓存在本次调用内
	plates := make(map[string]string)

	rows := make([]*models.TireReportRow, 0, len(tires))
	for _, tire := range tires {
		row := &models.TireReportRow{
			CustomID:  tire.CustomID,
			Brand:     tire.Brand,
			Dimension: tire.Dimension,
			Mileage:   tire.Mileage,
		}

		if tire.Mounted() {
			vehicleID := *tire.VehicleID
			plate, ok := plates[vehicleID]
			if !ok {
				vehicle, err := s.vehiclesRepo.GetVehicle(ctx, vehicleID)
				if err != nil {
					if !errors.Is(err, models.ErrVehicleNotFound) {
						return nil, fmt.Errorf("failed to load vehicle %s: %w", vehicleID, err)
					}
					plate = ""
				} else {
					plate = vehicle.LicensePlate
				}
				plates[vehicleID] = plate
			}
			row.LicensePlate = plate
		}

		row.TotalCost, err = s.costsRepo.TotalCost(ctx, tire.TireID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum costs for tire %s: %w", tire.TireID, err)
		}

		if tire.LatestCondition != nil {
			row.Condition = tire.LatestCondition.Value
		}

		rows = append(rows, row)
	}

	// 指标快照批量读取后合并
	stats, err := s.statsRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stat snapshots: %w", err)
	}
	statByTire := make(map[string]*models.TireStat, len(stats))
	for _, st := range stats {
		statByTire[st.TireID] = st
	}
	for i, tire := range tires {
		if st, ok := statByTire[tire.TireID]; ok {
			rows[i].CPM = st.CPM
			rows[i].ForecastedCPM = st.ForecastedCPM
		}
	}

	return rows, nil
}

// ExportReport 生成车队 xlsx 报表
func (s *fleetService) ExportReport(ctx context.Context, companyID string) ([]byte, error) {
	rows, err := s.ReportRows(ctx, companyID)
	if err != nil {
		return nil, err
	}
	data, err := report.GenerateFleetReport(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fleet report: %w", err)
	}
	s.logger.Info("Fleet report generated",
		zap.String("company_id", companyID),
		zap.Int("rows", len(rows)))
	return data, nil
}
