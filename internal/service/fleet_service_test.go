package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tiretrack/internal/models"
)

type fleetFixture struct {
	svc         FleetService
	tires       *fakeTireRepo
	vehicles    *fakeVehicleRepo
	costs       *fakeCostRepo
	inspections *fakeInspectionRepo
	kv          *fakeKV
}

func newFleetFixture(t *testing.T) *fleetFixture {
	t.Helper()
	tires := newFakeTireRepo()
	vehicles := newFakeVehicleRepo()
	costs := newFakeCostRepo()
	inspections := newFakeInspectionRepo(tires, costs)
	kv := newFakeKV()
	svc := NewFleetService(
		tires, vehicles, costs, inspections, &fakeStatRepo{insp: inspections},
		kv, "tiretrack:fleet:", time.Minute, zap.NewNop(),
	)
	return &fleetFixture{svc: svc, tires: tires, vehicles: vehicles, costs: costs, inspections: inspections, kv: kv}
}

func (f *fleetFixture) addTire(t *testing.T, companyID string, vehicleID *string) *models.Tire {
	t.Helper()
	tire, err := f.tires.CreateTire(context.Background(), &models.NewTireInput{
		CompanyID:    companyID,
		VehicleID:    vehicleID,
		CustomID:     "T-" + time.Now().Format("150405.000000000"),
		InitialDepth: 8,
	})
	require.NoError(t, err)
	f.costs.companyOf[tire.TireID] = companyID
	return tire
}

func TestSummary_EmptyCompany(t *testing.T) {
	// 无轮胎公司返回全 0，不报错
	f := newFleetFixture(t)

	summary, err := f.svc.Summary(context.Background(), "empty-co", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TireCount)
	assert.Equal(t, 0.0, summary.AverageCPM)
	assert.Equal(t, 0.0, summary.AverageForecastedCPM)
	assert.Equal(t, 0.0, summary.TotalInvestment)
}

func TestSummary_Averages(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	tireA := f.addTire(t, "company-1", nil)
	tireB := f.addTire(t, "company-1", nil)
	// 第三条没有巡检，不参与平均值，但计入 TireCount
	f.addTire(t, "company-1", nil)

	require.NoError(t, f.costs.CreateCost(ctx, &models.CostEvent{
		TireID: tireA.TireID, Amount: 100, Date: now.AddDate(0, 0, -5),
	}))
	require.NoError(t, f.costs.CreateCost(ctx, &models.CostEvent{
		TireID: tireB.TireID, Amount: 300, Date: now.AddDate(0, -1, 0),
	}))

	// tireA: cpm=100/1000=0.1  tireB: cpm=300/1000=0.3
	for _, tc := range []struct {
		tireID string
		depth  float64
	}{
		{tireA.TireID, 6}, // wearRatio 0.25
		{tireB.TireID, 4}, // wearRatio 0.5
	} {
		_, _, err := f.inspections.RecordInspection(ctx, &models.NewInspectionInput{
			TireID:         tc.tireID,
			Date:           now,
			Depths:         models.DepthReadings{Center: tc.depth, Exterior: tc.depth, Interior: tc.depth},
			UpdatedMileage: floatPtr(1000),
		})
		require.NoError(t, err)
	}

	// 未来日期的成本不计入当月投入，只进累计
	require.NoError(t, f.costs.CreateCost(ctx, &models.CostEvent{
		TireID: tireA.TireID, Amount: 40, Date: now.AddDate(0, 0, 5),
	}))

	summary, err := f.svc.Summary(ctx, "company-1", now)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TireCount)
	assert.InDelta(t, 0.2, summary.AverageCPM, 1e-9)
	// forecasted: 100/(1000/0.25)=0.025, 300/(1000/0.5)=0.15 → 平均 0.0875
	assert.InDelta(t, 0.0875, summary.AverageForecastedCPM, 1e-9)
	assert.Equal(t, 100.0, summary.CurrentMonthInvestment)
	assert.Equal(t, 300.0, summary.PreviousMonthInvestment)
	assert.Equal(t, 440.0, summary.TotalInvestment)
}

func TestSummary_CacheHitAndInvalidate(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()
	now := time.Now()

	f.addTire(t, "company-1", nil)

	first, err := f.svc.Summary(ctx, "company-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TireCount)

	// 第二次命中缓存：新增轮胎在 TTL 内不可见
	f.addTire(t, "company-1", nil)
	second, err := f.svc.Summary(ctx, "company-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, second.TireCount)
	assert.Equal(t, 1, f.kv.hits)

	// 失效后重新计算
	require.NoError(t, f.svc.InvalidateSummary(ctx, "company-1"))
	third, err := f.svc.Summary(ctx, "company-1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, third.TireCount)
}

func TestSummary_CorruptCacheRecomputes(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	f.addTire(t, "company-1", nil)
	require.NoError(t, f.kv.Set(ctx, "tiretrack:fleet:company-1", "{not json", 0))

	summary, err := f.svc.Summary(ctx, "company-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TireCount)
}

func TestReportRows(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()
	now := time.Now()

	f.vehicles.vehicles["vehicle-1"] = &models.Vehicle{
		VehicleID: "vehicle-1", CompanyID: "company-1", LicensePlate: "ABC-123",
	}
	vehicleID := "vehicle-1"
	mounted := f.addTire(t, "company-1", &vehicleID)
	stocked := f.addTire(t, "company-1", nil)

	require.NoError(t, f.costs.CreateCost(ctx, &models.CostEvent{
		TireID: mounted.TireID, Amount: 250, Date: now,
	}))
	_, _, err := f.inspections.RecordInspection(ctx, &models.NewInspectionInput{
		TireID:         mounted.TireID,
		Date:           now,
		Depths:         models.DepthReadings{Center: 6, Exterior: 6, Interior: 6},
		UpdatedMileage: floatPtr(1000),
	})
	require.NoError(t, err)

	rows, err := f.svc.ReportRows(ctx, "company-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := make(map[string]*models.TireReportRow)
	tires, _ := f.tires.ListByCompany(ctx, "company-1")
	for i, tire := range tires {
		byID[tire.TireID] = rows[i]
	}

	assert.Equal(t, "ABC-123", byID[mounted.TireID].LicensePlate)
	assert.Equal(t, 250.0, byID[mounted.TireID].TotalCost)
	assert.InDelta(t, 0.25, byID[mounted.TireID].CPM, 1e-9)
	assert.Equal(t, "new", byID[mounted.TireID].Condition)
	assert.Empty(t, byID[stocked.TireID].LicensePlate)
	assert.Equal(t, 0.0, byID[stocked.TireID].TotalCost)
	assert.Equal(t, "new", byID[stocked.TireID].Condition)
}

func TestExportReport(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	f.addTire(t, "company-1", nil)
	f.addTire(t, "company-1", nil)

	data, err := f.svc.ExportReport(ctx, "company-1")
	require.NoError(t, err)
	require.NotEmpty(t, data)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("Fleet Report")
	require.NoError(t, err)
	// 表头 + 每胎一行
	assert.Len(t, rows, 3)

	_, err = f.svc.ExportReport(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
