package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sentMail struct {
	to    string
	order models.Order
}

type fakeMailer struct {
	sent chan sentMail
}

func (m *fakeMailer) SendOrderConfirmationEmail(toEmail string, order models.Order) error {
	m.sent <- sentMail{to: toEmail, order: order}
	return nil
}

type orderFixture struct {
	oc       *OrderController
	stores   *store.Stores
	mailer   *fakeMailer
	user     models.User
	category models.Category
	p1, p2   models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	ctx := context.Background()
	stores := store.NewMemoryStores()
	f := &orderFixture{
		stores:   stores,
		mailer:   &fakeMailer{sent: make(chan sentMail, 4)},
		user:     models.User{Name: "Jane", Email: "jane@example.com", PasswordHash: "x"},
		category: models.Category{Name: "Shoes"},
	}
	require.NoError(t, stores.Users.Insert(ctx, &f.user))
	require.NoError(t, stores.Categories.Insert(ctx, &f.category))
	f.p1 = models.Product{Name: "Runner", Price: 10, CategoryID: f.category.ID}
	f.p2 = models.Product{Name: "Walker", Price: 5, CategoryID: f.category.ID}
	require.NoError(t, stores.Products.Insert(ctx, &f.p1))
	require.NoError(t, stores.Products.Insert(ctx, &f.p2))

	logger := nullLogger()
	wf := workflow.NewOrderWorkflow(stores, true, logger)
	f.oc = NewOrderController(stores, wf, f.mailer, logger, 0)
	return f
}

func (f *orderFixture) body(items ...map[string]any) map[string]any {
	return map[string]any{
		"orderItems":       items,
		"shippingAddress1": "Flowers Street,45",
		"shippingAddress2": "1-B",
		"city":             "Prague",
		"zip":              "00000",
		"country":          "Czech Republic",
		"phone":            "+420702241333",
		"user":             f.user.ID.Hex(),
	}
}

func (f *orderFixture) create(t *testing.T, items ...map[string]any) models.Order {
	t.Helper()
	rec := serve(f.oc.CreateOrder, jsonRequest(t, http.MethodPost, "/orders", f.body(items...)), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.Order](t, rec)
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)

	order := f.create(t,
		map[string]any{"quantity": "2", "product": f.p1.ID.Hex()},
		map[string]any{"quantity": 3, "product": f.p2.ID.Hex()},
	)

	assert.False(t, order.ID.IsZero())
	assert.Equal(t, 35.0, order.TotalPrice)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, f.user.ID, order.UserID)
	assert.Len(t, order.OrderItems, 2)

	select {
	case mail := <-f.mailer.sent:
		assert.Equal(t, "jane@example.com", mail.to)
		assert.Equal(t, order.ID, mail.order.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation mail not sent")
	}
}

func TestCreateOrderRejects(t *testing.T) {
	f := newOrderFixture(t)

	missingCity := f.body(map[string]any{"quantity": 1, "product": f.p1.ID.Hex()})
	delete(missingCity, "city")
	badUser := f.body()
	badUser["user"] = "jane"

	testCases := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"missing shipping field", missingCity, http.StatusBadRequest},
		{"invalid user", badUser, http.StatusBadRequest},
		{"invalid product id", f.body(map[string]any{"quantity": 1, "product": "runner"}), http.StatusBadRequest},
		{"zero quantity", f.body(map[string]any{"quantity": 0, "product": f.p1.ID.Hex()}), http.StatusBadRequest},
		{"unknown product", f.body(map[string]any{"quantity": 1, "product": primitive.NewObjectID().Hex()}), http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(f.oc.CreateOrder, jsonRequest(t, http.MethodPost, "/orders", tc.body), nil)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
		})
	}

	n, err := f.stores.Orders.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.stores.OrderItems.(*store.MemoryOrderStore).ItemCount())
}

func TestCreateEmptyOrderViaHandler(t *testing.T) {
	f := newOrderFixture(t)
	order := f.create(t)
	assert.Zero(t, order.TotalPrice)
	assert.Empty(t, order.OrderItems)
}

func TestGetOrders(t *testing.T) {
	f := newOrderFixture(t)

	rec := serve(f.oc.GetOrders, httptest.NewRequest(http.MethodGet, "/orders", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	first := f.create(t, map[string]any{"quantity": 1, "product": f.p1.ID.Hex()})
	time.Sleep(2 * time.Millisecond)
	second := f.create(t, map[string]any{"quantity": 1, "product": f.p2.ID.Hex()})

	rec = serve(f.oc.GetOrders, httptest.NewRequest(http.MethodGet, "/orders", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]map[string]any](t, rec)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID.Hex(), orders[0]["id"], "newest first")
	assert.Equal(t, first.ID.Hex(), orders[1]["id"])

	user := orders[0]["user"].(map[string]any)
	assert.Equal(t, "Jane", user["name"])
	assert.Equal(t, "jane@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")
}

func TestGetOrderByIDPopulatesItems(t *testing.T) {
	f := newOrderFixture(t)
	order := f.create(t, map[string]any{"quantity": 2, "product": f.p1.ID.Hex()})

	rec := serve(f.oc.GetOrderByID, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": order.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	items := body["orderItems"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.EqualValues(t, 2, item["quantity"])
	product := item["product"].(map[string]any)
	assert.Equal(t, "Runner", product["name"])
	category := product["categoryID"].(map[string]any)
	assert.Equal(t, "Shoes", category["name"])

	rec = serve(f.oc.GetOrderByID, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUserOrders(t *testing.T) {
	f := newOrderFixture(t)
	f.create(t, map[string]any{"quantity": 1, "product": f.p1.ID.Hex()})

	rec := serve(f.oc.GetUserOrders, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"userid": f.user.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]map[string]any](t, rec)
	require.Len(t, orders, 1)
	items := orders[0]["orderItems"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Runner", items[0].(map[string]any)["product"].(map[string]any)["name"])

	rec = serve(f.oc.GetUserOrders, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"userid": primitive.NewObjectID().Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newOrderFixture(t)
	order := f.create(t, map[string]any{"quantity": 1, "product": f.p1.ID.Hex()})
	vars := map[string]string{"id": order.ID.Hex()}

	rec := serve(f.oc.UpdateOrder, jsonRequest(t, http.MethodPut, "/", map[string]string{"status": "Shipped"}), vars)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Order](t, rec)
	assert.Equal(t, "Shipped", updated.Status)
	assert.Equal(t, order.TotalPrice, updated.TotalPrice)

	rec = serve(f.oc.UpdateOrder, jsonRequest(t, http.MethodPut, "/", map[string]string{}), vars)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(f.oc.UpdateOrder, jsonRequest(t, http.MethodPut, "/", map[string]string{"status": "Shipped"}),
		map[string]string{"id": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "The order with the given ID was not Found\n", rec.Body.String())
}

func TestDeleteOrderCascades(t *testing.T) {
	f := newOrderFixture(t)
	order := f.create(t,
		map[string]any{"quantity": 1, "product": f.p1.ID.Hex()},
		map[string]any{"quantity": 1, "product": f.p2.ID.Hex()},
	)
	items := f.stores.OrderItems.(*store.MemoryOrderStore)
	require.EqualValues(t, 2, items.ItemCount())

	vars := map[string]string{"id": order.ID.Hex()}
	rec := serve(f.oc.DeleteOrder, httptest.NewRequest(http.MethodDelete, "/", nil), vars)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"the order is deleted"}`, rec.Body.String())
	assert.Zero(t, items.ItemCount())

	rec = serve(f.oc.DeleteOrder, httptest.NewRequest(http.MethodDelete, "/", nil), vars)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"order not found"}`, rec.Body.String())
}

func TestOrderAggregates(t *testing.T) {
	f := newOrderFixture(t)

	rec := serve(f.oc.GetTotalSales, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.JSONEq(t, `{"totalsales":0}`, rec.Body.String())

	f.create(t, map[string]any{"quantity": 2, "product": f.p1.ID.Hex()})
	f.create(t, map[string]any{"quantity": 1, "product": f.p2.ID.Hex()})

	rec = serve(f.oc.GetTotalSales, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalsales":25}`, rec.Body.String())

	rec = serve(f.oc.CountOrders, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.JSONEq(t, `{"orderCount":2}`, rec.Body.String())
}
