package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/utils"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// flakyItems wraps a line item store and fails selected calls.
type flakyItems struct {
	store.OrderItemStore
	failInsertFor map[primitive.ObjectID]bool
	failDelete    map[primitive.ObjectID]bool
	deleted       sync.Map
}

func (f *flakyItems) InsertItem(ctx context.Context, item *models.OrderItem) error {
	if f.failInsertFor[item.ProductID] {
		return errors.New("insert refused")
	}
	return f.OrderItemStore.InsertItem(ctx, item)
}

func (f *flakyItems) DeleteItem(ctx context.Context, id primitive.ObjectID) error {
	f.deleted.Store(id, true)
	if f.failDelete[id] {
		return errors.New("delete refused")
	}
	return f.OrderItemStore.DeleteItem(ctx, id)
}

type failingOrders struct {
	store.OrderStore
}

func (failingOrders) Insert(ctx context.Context, order *models.Order) error {
	return errors.New("orders collection unavailable")
}

type fixture struct {
	stores *store.Stores
	items  *store.MemoryOrderStore
	wf     *OrderWorkflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := store.NewMemoryStores()
	logger, _ := test.NewNullLogger()
	return &fixture{
		stores: stores,
		items:  stores.OrderItems.(*store.MemoryOrderStore),
		wf:     NewOrderWorkflow(stores, true, logger),
	}
}

func (f *fixture) product(t *testing.T, price float64) primitive.ObjectID {
	t.Helper()
	p := &models.Product{Name: "p", Price: price, CategoryID: primitive.NewObjectID()}
	require.NoError(t, f.stores.Products.Insert(context.Background(), p))
	return p.ID
}

func shipping(items ...LineItem) OrderRequest {
	return OrderRequest{
		Items:            items,
		ShippingAddress1: "Flowers Street,45",
		ShippingAddress2: "1-B",
		City:             "Prague",
		Zip:              "00000",
		Country:          "Czech Republic",
		Phone:            "+480702241333",
		UserID:           primitive.NewObjectID(),
	}
}

func TestCreateComputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1, p2 := f.product(t, 10), f.product(t, 5)

	saga, err := f.wf.Run(ctx, shipping(
		LineItem{ProductID: p1, Quantity: 2},
		LineItem{ProductID: p2, Quantity: 3},
	))
	require.NoError(t, err)

	assert.Equal(t, OrderPersisted, saga.State)
	assert.Equal(t, 35.0, saga.Order.TotalPrice)
	assert.Equal(t, models.StatusPending, saga.Order.Status)
	assert.False(t, saga.Order.ID.IsZero())
	require.Len(t, saga.Order.OrderItems, 2)

	first, err := f.items.FindItem(ctx, saga.Order.OrderItems[0])
	require.NoError(t, err)
	assert.Equal(t, p1, first.ProductID)
	assert.Equal(t, 2, first.Quantity)

	second, err := f.items.FindItem(ctx, saga.Order.OrderItems[1])
	require.NoError(t, err)
	assert.Equal(t, p2, second.ProductID)
	assert.Equal(t, 3, second.Quantity)

	stored, err := f.stores.Orders.FindByID(ctx, saga.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 35.0, stored.TotalPrice)
}

func TestCreateDecimalTotals(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 0.1)

	order, err := f.wf.Create(context.Background(), shipping(LineItem{ProductID: p, Quantity: 3}))
	require.NoError(t, err)
	assert.Equal(t, 0.3, order.TotalPrice)
}

func TestCreateKeepsRequestedStatus(t *testing.T) {
	f := newFixture(t)
	req := shipping(LineItem{ProductID: f.product(t, 1), Quantity: 1})
	req.Status = "Processing"

	order, err := f.wf.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Processing", order.Status)
}

func TestCreateEmptyOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.wf.Create(context.Background(), shipping())
	require.NoError(t, err)
	assert.Zero(t, order.TotalPrice)
	assert.NotNil(t, order.OrderItems)
	assert.Len(t, order.OrderItems, 0)

	f.wf.AllowEmpty = false
	saga, err := f.wf.Run(context.Background(), shipping())
	assert.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, Failed, saga.State)
}

func TestCreateRejectsBadItems(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 3)

	testCases := []struct {
		name string
		item LineItem
	}{
		{"zero quantity", LineItem{ProductID: p, Quantity: 0}},
		{"negative quantity", LineItem{ProductID: p, Quantity: -2}},
		{"missing product", LineItem{Quantity: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.wf.Create(context.Background(), shipping(tc.item))
			assert.ErrorIs(t, err, utils.ErrValidation)
			assert.Zero(t, f.items.ItemCount())
		})
	}
}

func TestCreateItemFailureCompensates(t *testing.T) {
	f := newFixture(t)
	good, bad := f.product(t, 1), f.product(t, 2)
	flaky := &flakyItems{OrderItemStore: f.items, failInsertFor: map[primitive.ObjectID]bool{bad: true}}
	f.wf.Items = flaky

	saga, err := f.wf.Run(context.Background(), shipping(
		LineItem{ProductID: good, Quantity: 1},
		LineItem{ProductID: bad, Quantity: 1},
		LineItem{ProductID: good, Quantity: 4},
	))

	assert.ErrorIs(t, err, utils.ErrItemCreation)
	assert.Equal(t, Failed, saga.State)
	assert.Nil(t, saga.Order)
	assert.Zero(t, f.items.ItemCount(), "written line items are compensated")
	count, _ := f.stores.Orders.Count(context.Background())
	assert.Zero(t, count)
}

func TestCreateUnknownProduct(t *testing.T) {
	f := newFixture(t)

	saga, err := f.wf.Run(context.Background(), shipping(
		LineItem{ProductID: f.product(t, 1), Quantity: 1},
		LineItem{ProductID: primitive.NewObjectID(), Quantity: 1},
	))

	assert.ErrorIs(t, err, utils.ErrPriceResolution)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Equal(t, Failed, saga.State)
	assert.Zero(t, f.items.ItemCount())
}

func TestCreateOrderPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.wf.Orders = failingOrders{OrderStore: f.stores.Orders}

	saga, err := f.wf.Run(context.Background(), shipping(LineItem{ProductID: f.product(t, 9), Quantity: 1}))

	assert.ErrorIs(t, err, utils.ErrOrderCreation)
	assert.Equal(t, Failed, saga.State)
	assert.Len(t, saga.ItemIDs, 1)
	assert.Zero(t, f.items.ItemCount())
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.wf.Create(ctx, shipping(
		LineItem{ProductID: f.product(t, 1), Quantity: 1},
		LineItem{ProductID: f.product(t, 2), Quantity: 2},
		LineItem{ProductID: f.product(t, 3), Quantity: 3},
	))
	require.NoError(t, err)
	require.EqualValues(t, 3, f.items.ItemCount())

	deleted, err := f.wf.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, deleted.ID)
	assert.Zero(t, f.items.ItemCount())

	_, err = f.wf.Delete(ctx, order.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.wf.Create(ctx, shipping(
		LineItem{ProductID: f.product(t, 1), Quantity: 1},
		LineItem{ProductID: f.product(t, 2), Quantity: 1},
		LineItem{ProductID: f.product(t, 3), Quantity: 1},
	))
	require.NoError(t, err)

	stuck := order.OrderItems[0]
	flaky := &flakyItems{OrderItemStore: f.items, failDelete: map[primitive.ObjectID]bool{stuck: true}}
	f.wf.Items = flaky

	deleted, err := f.wf.Delete(ctx, order.ID)
	assert.ErrorIs(t, err, ErrCascadeIncomplete)
	require.NotNil(t, deleted)

	for _, id := range order.OrderItems {
		_, attempted := flaky.deleted.Load(id)
		assert.True(t, attempted, "deletion of %s attempted", id.Hex())
	}
	assert.EqualValues(t, 1, f.items.ItemCount())
	_, err = f.items.FindItem(ctx, stuck)
	assert.NoError(t, err)
}

func TestFanOutWaitsForAll(t *testing.T) {
	var calls atomic.Int32
	err := FanOut(5, func(i int) error {
		calls.Add(1)
		if i == 0 {
			return errors.New("first fails")
		}
		return nil
	})
	assert.Error(t, err)
	assert.EqualValues(t, 5, calls.Load())

	assert.NoError(t, FanOut(0, func(int) error { return errors.New("never called") }))
}

func TestFanOutAllJoinsErrors(t *testing.T) {
	e1, e3 := errors.New("one"), errors.New("three")
	err := FanOutAll(4, func(i int) error {
		switch i {
		case 1:
			return e1
		case 3:
			return e3
		}
		return nil
	})
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e3)
	assert.NoError(t, FanOutAll(3, func(int) error { return nil }))
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, CanTransition(ItemsPending, ItemsCreated))
	assert.True(t, CanTransition(PriceResolved, Failed))
	assert.False(t, CanTransition(ItemsPending, OrderPersisted))
	assert.False(t, CanTransition(Failed, ItemsCreated))
	assert.True(t, OrderPersisted.Terminal())
	assert.Equal(t, "PriceResolved", PriceResolved.String())
	assert.Equal(t, "State(9)", State(9).String())
}

// deadlineItems honours ctx like a network-backed store: inserts for slow
// products block until ctx is done, deletes fail on a done ctx.
type deadlineItems struct {
	store.OrderItemStore
	slow map[primitive.ObjectID]bool
}

func (d *deadlineItems) InsertItem(ctx context.Context, item *models.OrderItem) error {
	if d.slow[item.ProductID] {
		<-ctx.Done()
		return ctx.Err()
	}
	return d.OrderItemStore.InsertItem(ctx, item)
}

func (d *deadlineItems) DeleteItem(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.OrderItemStore.DeleteItem(ctx, id)
}

// cancelAfterDelete cancels the request context right after the order is removed.
type cancelAfterDelete struct {
	store.OrderStore
	cancel context.CancelFunc
}

func (c cancelAfterDelete) Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := c.OrderStore.Delete(ctx, id)
	c.cancel()
	return order, err
}

func TestCompensationOutlivesRequestDeadline(t *testing.T) {
	f := newFixture(t)
	fast, slow := f.product(t, 1), f.product(t, 2)
	f.wf.Items = &deadlineItems{OrderItemStore: f.items, slow: map[primitive.ObjectID]bool{slow: true}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	saga, err := f.wf.Run(ctx, shipping(
		LineItem{ProductID: fast, Quantity: 1},
		LineItem{ProductID: slow, Quantity: 1},
	))

	assert.ErrorIs(t, err, utils.ErrItemCreation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Failed, saga.State)
	assert.Zero(t, f.items.ItemCount(), "line item written before the deadline is removed")
}

func TestDeleteCascadeOutlivesRequestCancel(t *testing.T) {
	f := newFixture(t)
	order, err := f.wf.Create(context.Background(), shipping(
		LineItem{ProductID: f.product(t, 1), Quantity: 1},
		LineItem{ProductID: f.product(t, 2), Quantity: 1},
	))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.wf.Items = &deadlineItems{OrderItemStore: f.items}
	f.wf.Orders = cancelAfterDelete{OrderStore: f.stores.Orders, cancel: cancel}

	deleted, err := f.wf.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, deleted.ID)
	assert.Zero(t, f.items.ItemCount())
}
