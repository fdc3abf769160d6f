package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"farmlink/internal/database"
	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordTransition(action string, err error) {
	m.Called(action, err == nil)
}

func (m *MockRecorder) RecordLotLookup(found bool) {
	m.Called(found)
}

func newTestService(t *testing.T, recorder Recorder) *Service {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(context.Background(), db, func(pw string) (string, error) { return pw, nil }))

	svc := NewService(database.NewOrderStore(db), recorder, nil)
	svc.now = func() time.Time { return time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC) }
	return svc
}

var farmer = Actor{UserID: database.DemoFarmerID, Role: models.RoleFarmer}

func TestFindByLotID(t *testing.T) {
	orders := database.SampleOrders()

	lot, err := FindByLotID(orders, "LOT-GVF-2026-0206A")
	require.NoError(t, err)
	assert.Equal(t, "Grade A", lot.Traceability.QualityGrade)
	assert.Equal(t, "ORD-1245", lot.OrderID)
	assert.Len(t, lot.Journey, 6)

	_, err = FindByLotID(orders, "LOT-DOES-NOT-EXIST")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// lookups do not alter the collection
	assert.Equal(t, database.SampleOrders(), orders)
}

func TestService_Trace(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("RecordLotLookup", true).Once()
	recorder.On("RecordLotLookup", false).Once()
	svc := newTestService(t, recorder)

	lot, err := svc.Trace(context.Background(), "LOT-MP-2026-0201C")
	require.NoError(t, err)
	assert.Equal(t, "Alphonso Mangoes", lot.Traceability.Product)
	assert.Equal(t, models.OrderStatusDelivered, lot.Status)

	_, err = svc.Trace(context.Background(), "LOT-DOES-NOT-EXIST")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	recorder.AssertExpectations(t)
}

func TestService_TransitionLifecycle(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("RecordTransition", mock.Anything, mock.Anything)
	svc := newTestService(t, recorder)
	ctx := context.Background()

	order, err := svc.Transition(ctx, farmer, "ORD-1242", models.ActionTransit)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInTransit, order.Status)
	assert.Equal(t, 5, order.CompletedCount())

	order, err = svc.Transition(ctx, farmer, "ORD-1242", models.ActionDeliver)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	assert.Empty(t, order.ETA)
	require.NotNil(t, order.TrackingEvents[5].Timestamp)
	assert.Equal(t, 2026, order.TrackingEvents[5].Timestamp.Year())

	_, err = svc.Transition(ctx, farmer, "ORD-1242", models.ActionDeliver)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	recorder.AssertCalled(t, "RecordTransition", "deliver", true)
	recorder.AssertCalled(t, "RecordTransition", "deliver", false)
}

func TestService_TransitionFromWrongStateLeavesOrder(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Transition(ctx, farmer, "ORD-1245", models.ActionAccept)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	orders, err := svc.ListForFarmer(ctx, farmer, models.OrderStatusInTransit)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-1245", orders[0].ID)
	assert.Equal(t, 5, orders[0].CompletedCount())
}

func TestService_TransitionOwnership(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	stranger := Actor{UserID: "another-farmer", Role: models.RoleFarmer}
	_, err := svc.Transition(ctx, stranger, "ORD-1242", models.ActionTransit)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	admin := Actor{UserID: database.DemoAdminID, Role: models.RoleAdmin}
	_, err = svc.Transition(ctx, admin, "ORD-1242", models.ActionTransit)
	assert.NoError(t, err)

	_, err = svc.Transition(ctx, farmer, "ORD-9999", models.ActionAccept)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestService_Listings(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	all, err := svc.ListForFarmer(ctx, farmer, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	other, err := svc.ListForFarmer(ctx, Actor{UserID: "another-farmer", Role: models.RoleFarmer}, "")
	require.NoError(t, err)
	assert.Empty(t, other)

	admin, err := svc.ListForFarmer(ctx, Actor{UserID: "someone", Role: models.RoleAdmin}, models.OrderStatusCancelled)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Equal(t, "ORD-1235", admin[0].ID)

	mine, err := svc.ListForConsumer(ctx, Actor{UserID: database.DemoConsumerID, Role: models.RoleConsumer})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "ORD-1245", mine[0].ID)
}

func TestParseStatusFilter(t *testing.T) {
	status, err := ParseStatusFilter("All")
	require.NoError(t, err)
	assert.Empty(t, status)

	status, err = ParseStatusFilter("in_transit")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInTransit, status)

	_, err = ParseStatusFilter("lost")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}
