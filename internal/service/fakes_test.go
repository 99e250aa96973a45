package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tiretrack/internal/cache"
	"tiretrack/internal/forecast"
	"tiretrack/internal/models"
	"tiretrack/internal/repository"
)

// 内存 fake，仅用于服务层单元测试。
// 行为对齐 PostgreSQL 实现（里程单调、计数钳制、报废副作用）。

type fakeTireRepo struct {
	mu    sync.Mutex
	tires map[string]*models.Tire
}

func newFakeTireRepo() *fakeTireRepo {
	return &fakeTireRepo{tires: make(map[string]*models.Tire)}
}

func (f *fakeTireRepo) CreateTire(ctx context.Context, input *models.NewTireInput) (*models.Tire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tire := &models.Tire{
		TireID:       uuid.New().String(),
		CompanyID:    input.CompanyID,
		VehicleID:    input.VehicleID,
		CustomID:     input.CustomID,
		Brand:        input.Brand,
		Design:       input.Design,
		Dimension:    input.Dimension,
		Axis:         input.Axis,
		InitialDepth: input.InitialDepth,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	condition := input.Condition
	if condition == "" {
		condition = "new"
	}
	tire.LatestCondition = &models.ConditionEvent{
		ConditionID: uuid.New().String(),
		TireID:      tire.TireID,
		Kind:        models.DetectConditionKind(condition, nil, nil),
		Value:       condition,
		Date:        time.Now(),
	}
	if input.Position != nil {
		tire.LatestPosition = &models.PositionEvent{
			PositionID: uuid.New().String(),
			TireID:     tire.TireID,
			Value:      *input.Position,
			Date:       time.Now(),
			VehicleID:  input.VehicleID,
		}
	}
	f.tires[tire.TireID] = tire
	return tire, nil
}

func (f *fakeTireRepo) GetTire(ctx context.Context, tireID string) (*models.Tire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tire, ok := f.tires[tireID]
	if !ok {
		return nil, models.ErrTireNotFound
	}
	copied := *tire
	return &copied, nil
}

func (f *fakeTireRepo) FindByCustomID(ctx context.Context, companyID, customID string) ([]*models.Tire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tire
	for _, t := range f.tires {
		if t.CompanyID == companyID && t.CustomID == customID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTireRepo) ListByCompany(ctx context.Context, companyID string) ([]*models.Tire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tire
	for _, t := range f.tires {
		if t.CompanyID == companyID {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomID < out[j].CustomID })
	return out, nil
}

func (f *fakeTireRepo) ListByVehicle(ctx context.Context, vehicleID string) ([]*models.Tire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tire
	for _, t := range f.tires {
		if t.VehicleID != nil && *t.VehicleID == vehicleID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTireRepo) UpdateMileage(ctx context.Context, tireID string, mileage float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tire, ok := f.tires[tireID]
	if !ok {
		return false, models.ErrTireNotFound
	}
	if mileage <= tire.Mileage {
		return false, nil
	}
	tire.Mileage = mileage
	return true, nil
}

var _ repository.TireRepository = (*fakeTireRepo)(nil)

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{vehicles: make(map[string]*models.Vehicle)}
}

func (f *fakeVehicleRepo) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return nil, models.ErrVehicleNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVehicleRepo) GetTireCount(ctx context.Context, vehicleID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return 0, models.ErrVehicleNotFound
	}
	return v.TireCount, nil
}

func (f *fakeVehicleRepo) DecrementTireCount(ctx context.Context, vehicleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return models.ErrVehicleNotFound
	}
	if v.TireCount > 0 {
		v.TireCount--
	}
	return nil
}

func (f *fakeVehicleRepo) IncrementTireCount(ctx context.Context, vehicleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return models.ErrVehicleNotFound
	}
	v.TireCount++
	return nil
}

func (f *fakeVehicleRepo) RecalculateTireCount(ctx context.Context, vehicleID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return 0, models.ErrVehicleNotFound
	}
	return v.TireCount, nil
}

var _ repository.VehicleRepository = (*fakeVehicleRepo)(nil)

type fakeCostRepo struct {
	mu        sync.Mutex
	costs     []*models.CostEvent
	companyOf map[string]string // tire_id → company_id
}

func newFakeCostRepo() *fakeCostRepo {
	return &fakeCostRepo{companyOf: make(map[string]string)}
}

func (f *fakeCostRepo) CreateCost(ctx context.Context, cost *models.CostEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cost.CostID == "" {
		cost.CostID = uuid.New().String()
	}
	cost.CreatedAt = time.Now()
	copied := *cost
	f.costs = append(f.costs, &copied)
	return nil
}

func (f *fakeCostRepo) ListByTire(ctx context.Context, tireID string) ([]*models.CostEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CostEvent
	for _, c := range f.costs {
		if c.TireID == tireID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeCostRepo) TotalCost(ctx context.Context, tireID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, c := range f.costs {
		if c.TireID == tireID {
			total += c.Amount
		}
	}
	return total, nil
}

func (f *fakeCostRepo) CostsInWindow(ctx context.Context, tireID string, from, to time.Time) ([]*models.CostEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CostEvent
	for _, c := range f.costs {
		if c.TireID == tireID && !c.Date.Before(from) && c.Date.Before(to) {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeCostRepo) CompanyTotalInvestment(ctx context.Context, companyID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, c := range f.costs {
		if f.companyOf[c.TireID] == companyID {
			total += c.Amount
		}
	}
	return total, nil
}

func (f *fakeCostRepo) CompanyCostsInWindow(ctx context.Context, companyID string, from, to time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, c := range f.costs {
		if f.companyOf[c.TireID] == companyID && !c.Date.Before(from) && c.Date.Before(to) {
			total += c.Amount
		}
	}
	return total, nil
}

var _ repository.CostRepository = (*fakeCostRepo)(nil)

type fakeConditionRepo struct {
	mu     sync.Mutex
	nextSq int64
	events []*models.ConditionEvent
}

func newFakeConditionRepo() *fakeConditionRepo {
	return &fakeConditionRepo{}
}

func (f *fakeConditionRepo) AppendCondition(ctx context.Context, event *models.ConditionEvent) (*models.ConditionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSq++
	event.Seq = f.nextSq
	event.ConditionID = uuid.New().String()
	event.CreatedAt = time.Now()
	copied := *event
	f.events = append(f.events, &copied)
	return event, nil
}

func (f *fakeConditionRepo) LatestCondition(ctx context.Context, tireID string) (*models.ConditionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.ConditionEvent
	for _, e := range f.events {
		if e.TireID != tireID {
			continue
		}
		if latest == nil || e.Date.After(latest.Date) ||
			(e.Date.Equal(latest.Date) && e.Seq > latest.Seq) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeConditionRepo) ListByTire(ctx context.Context, tireID string) ([]*models.ConditionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ConditionEvent
	for _, e := range f.events {
		if e.TireID == tireID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func (f *fakeConditionRepo) ListDisposalsByCompany(ctx context.Context, companyID string) ([]*models.ConditionEvent, error) {
	return nil, nil
}

var _ repository.ConditionRepository = (*fakeConditionRepo)(nil)

type fakePositionRepo struct {
	mu     sync.Mutex
	nextSq int64
	events []*models.PositionEvent
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{}
}

func (f *fakePositionRepo) AppendPosition(ctx context.Context, event *models.PositionEvent) (*models.PositionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSq++
	event.Seq = f.nextSq
	event.PositionID = uuid.New().String()
	event.CreatedAt = time.Now()
	if event.Value == 0 {
		event.VehicleID = nil
	}
	copied := *event
	f.events = append(f.events, &copied)
	return event, nil
}

func (f *fakePositionRepo) LatestPosition(ctx context.Context, tireID string) (*models.PositionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.PositionEvent
	for _, e := range f.events {
		if e.TireID != tireID {
			continue
		}
		if latest == nil || e.Date.After(latest.Date) ||
			(e.Date.Equal(latest.Date) && e.Seq > latest.Seq) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakePositionRepo) ListByTire(ctx context.Context, tireID string) ([]*models.PositionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PositionEvent
	for _, e := range f.events {
		if e.TireID == tireID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

var _ repository.PositionRepository = (*fakePositionRepo)(nil)

// fakeInspectionRepo 在内存中复刻巡检事务的语义
type fakeInspectionRepo struct {
	mu          sync.Mutex
	tires       *fakeTireRepo
	costs       *fakeCostRepo
	inspections []*models.Inspection
	stats       map[string]*models.TireStat
	err         error
}

func newFakeInspectionRepo(tires *fakeTireRepo, costs *fakeCostRepo) *fakeInspectionRepo {
	return &fakeInspectionRepo{
		tires: tires,
		costs: costs,
		stats: make(map[string]*models.TireStat),
	}
}

func (f *fakeInspectionRepo) RecordInspection(ctx context.Context, input *models.NewInspectionInput) (*models.Inspection, *repository.TireSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}

	tire, err := f.tires.GetTire(ctx, input.TireID)
	if err != nil {
		return nil, nil, err
	}

	if input.UpdatedMileage != nil {
		if _, err := f.tires.UpdateMileage(ctx, input.TireID, *input.UpdatedMileage); err != nil {
			return nil, nil, err
		}
		tire, _ = f.tires.GetTire(ctx, input.TireID)
	}

	totalCost, _ := f.costs.TotalCost(ctx, input.TireID)
	metrics := forecast.Compute(totalCost, tire.Mileage, tire.InitialDepth, input.Depths.Min())

	inspection := &models.Inspection{
		InspectionID:  uuid.New().String(),
		TireID:        input.TireID,
		UserID:        input.UserID,
		Date:          input.Date,
		Depths:        input.Depths,
		Pressure:      input.Pressure,
		ImageURL:      input.ImageURL,
		CPM:           metrics.CPM,
		ForecastedCPM: metrics.ForecastedCPM,
		CreatedAt:     time.Now(),
	}
	f.inspections = append(f.inspections, inspection)
	f.stats[input.TireID] = &models.TireStat{
		TireID:        input.TireID,
		CPM:           metrics.CPM,
		ForecastedCPM: metrics.ForecastedCPM,
		UpdatedAt:     time.Now(),
	}

	snapshot := &repository.TireSnapshot{
		TireID:       tire.TireID,
		CompanyID:    tire.CompanyID,
		VehicleID:    tire.VehicleID,
		InitialDepth: tire.InitialDepth,
		Mileage:      tire.Mileage,
		TotalCost:    totalCost,
	}
	return inspection, snapshot, nil
}

func (f *fakeInspectionRepo) ListByTire(ctx context.Context, tireID string) ([]*models.Inspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Inspection
	for _, in := range f.inspections {
		if in.TireID == tireID {
			copied := *in
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeInspectionRepo) LatestMetricsByCompany(ctx context.Context, companyID string) ([]*models.TireStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TireStat
	for tireID, st := range f.stats {
		tire, err := f.tires.GetTire(ctx, tireID)
		if err != nil || tire.CompanyID != companyID {
			continue
		}
		copied := *st
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TireID < out[j].TireID })
	return out, nil
}

func (f *fakeInspectionRepo) RebuildStats(ctx context.Context, tireID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, in := range f.inspections {
		if in.TireID == tireID {
			return true, nil
		}
	}
	return false, nil
}

var _ repository.InspectionRepository = (*fakeInspectionRepo)(nil)

// fakeStatRepo 快照读取口，与 fakeInspectionRepo 共享同一份快照
type fakeStatRepo struct {
	insp *fakeInspectionRepo
}

func (f *fakeStatRepo) GetStat(ctx context.Context, tireID string) (*models.TireStat, error) {
	f.insp.mu.Lock()
	defer f.insp.mu.Unlock()
	st, ok := f.insp.stats[tireID]
	if !ok {
		return nil, nil
	}
	copied := *st
	return &copied, nil
}

func (f *fakeStatRepo) ListByCompany(ctx context.Context, companyID string) ([]*models.TireStat, error) {
	return f.insp.LatestMetricsByCompany(ctx, companyID)
}

var _ repository.StatRepository = (*fakeStatRepo)(nil)

// fakeKV 内存 KV（与部分唯一索引无关，只做车队缓存测试）
type fakeKV struct {
	mu     sync.Mutex
	data   map[string]string
	hits   int
	misses int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	if !ok {
		f.misses++
		return "", cache.ErrCacheMiss
	}
	f.hits++
	return val, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}
