package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tiretrack/internal/models"
)

type lifecycleFixture struct {
	svc        LifecycleService
	tires      *fakeTireRepo
	conditions *fakeConditionRepo
	positions  *fakePositionRepo
	tire       *models.Tire
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	tires := newFakeTireRepo()
	conditions := newFakeConditionRepo()
	positions := newFakePositionRepo()
	svc := NewLifecycleService(conditions, positions, tires, zap.NewNop())

	tire, err := tires.CreateTire(context.Background(), &models.NewTireInput{
		CompanyID:    "company-1",
		CustomID:     "T-001",
		InitialDepth: 8,
	})
	require.NoError(t, err)

	return &lifecycleFixture{
		svc: svc, tires: tires, conditions: conditions, positions: positions, tire: tire,
	}
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestAddConditionEvent_Retread(t *testing.T) {
	f := newLifecycleFixture(t)

	event, err := f.svc.AddConditionEvent(context.Background(), AddConditionRequest{
		TireID:   f.tire.TireID,
		Value:    "retread-1",
		Design:   strPtr("HDR2"),
		Cost:     floatPtr(80),
		Provider: strPtr("Reencauchadora Norte"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConditionRetread, event.Kind)
	assert.NotZero(t, event.Seq)
}

func TestAddConditionEvent_Disposal(t *testing.T) {
	f := newLifecycleFixture(t)

	event, err := f.svc.AddConditionEvent(context.Background(), AddConditionRequest{
		TireID:           f.tire.TireID,
		Value:            "fin de vida",
		Motive:           strPtr("desgaste total"),
		RemainingDepthMM: floatPtr(1.5),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConditionDisposed, event.Kind)
	assert.True(t, event.IsDisposal())
}

func TestAddConditionEvent_DisposedIsTerminal(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddConditionEvent(ctx, AddConditionRequest{
		TireID:           f.tire.TireID,
		Value:            "disposed",
		Motive:           strPtr("sidewall damage"),
		RemainingDepthMM: floatPtr(4),
	})
	require.NoError(t, err)

	// 报废后任何状态事件都被拒绝，包括再次报废
	for _, req := range []AddConditionRequest{
		{TireID: f.tire.TireID, Value: "retread-2"},
		{TireID: f.tire.TireID, Value: "new"},
		{TireID: f.tire.TireID, Value: "disposed again", Motive: strPtr("x"), RemainingDepthMM: floatPtr(1)},
	} {
		_, err := f.svc.AddConditionEvent(ctx, req)
		assert.ErrorIs(t, err, models.ErrTireDisposed, "value=%s", req.Value)
	}

	// 位置事件同样被拒绝
	_, err = f.svc.AddPositionEvent(ctx, AddPositionRequest{
		TireID: f.tire.TireID,
		Value:  2,
	})
	assert.ErrorIs(t, err, models.ErrTireDisposed)
}

func TestAddConditionEvent_Validation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddConditionEvent(ctx, AddConditionRequest{Value: "new"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.AddConditionEvent(ctx, AddConditionRequest{TireID: f.tire.TireID})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.AddConditionEvent(ctx, AddConditionRequest{
		TireID: f.tire.TireID, Value: "retread-1", Cost: floatPtr(-5),
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.AddConditionEvent(ctx, AddConditionRequest{
		TireID: "missing", Value: "new",
	})
	assert.ErrorIs(t, err, models.ErrTireNotFound)
}

func TestAddConditionEvent_SameDayLastWriteWins(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.AddConditionEvent(ctx, AddConditionRequest{
		TireID: f.tire.TireID, Value: "new", Date: day,
	})
	require.NoError(t, err)
	_, err = f.svc.AddConditionEvent(ctx, AddConditionRequest{
		TireID: f.tire.TireID, Value: "retread-1", Date: day,
	})
	require.NoError(t, err)

	latest, err := f.conditions.LatestCondition(ctx, f.tire.TireID)
	require.NoError(t, err)
	assert.Equal(t, "retread-1", latest.Value)
}

func TestAddPositionEvent_MountStockedTireRequiresVehicle(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.AddPositionEvent(context.Background(), AddPositionRequest{
		TireID: f.tire.TireID,
		Value:  3,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestAddPositionEvent_UnmountClearsVehicle(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	// value 0 即使带 vehicle_id 也强制入库
	event, err := f.svc.AddPositionEvent(ctx, AddPositionRequest{
		TireID:    f.tire.TireID,
		Value:     0,
		VehicleID: strPtr("vehicle-1"),
	})
	require.NoError(t, err)
	assert.Nil(t, event.VehicleID)
}

func TestCurrentPosition(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	// 没有任何位置事件时返回 nil
	current, err := f.svc.CurrentPosition(ctx, f.tire.TireID)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = f.svc.AddPositionEvent(ctx, AddPositionRequest{
		TireID:    f.tire.TireID,
		Value:     2,
		Date:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		VehicleID: strPtr("vehicle-1"),
	})
	require.NoError(t, err)
	_, err = f.svc.AddPositionEvent(ctx, AddPositionRequest{
		TireID: f.tire.TireID,
		Value:  0,
		Date:   time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	current, err = f.svc.CurrentPosition(ctx, f.tire.TireID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 0, current.Value)
	assert.Nil(t, current.VehicleID)

	_, err = f.svc.CurrentPosition(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
