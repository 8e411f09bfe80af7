// controllers/order.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"eshop/middleware"
	"eshop/models"
	"eshop/store"
	"eshop/utils"
	"eshop/workflow"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderMailer sends order confirmations.
type OrderMailer interface {
	SendOrderConfirmationEmail(toEmail string, order models.Order) error
}

// OrderController handles order-related requests
type OrderController struct {
	Orders     store.OrderStore
	Items      store.OrderItemStore
	Products   store.ProductStore
	Categories store.CategoryStore
	Users      store.UserStore
	Workflow   *workflow.OrderWorkflow
	Mailer     OrderMailer
	Log        logrus.FieldLogger
	Timeout    time.Duration
}

// NewOrderController creates a new OrderController. mailer may be nil.
func NewOrderController(stores *store.Stores, wf *workflow.OrderWorkflow, mailer OrderMailer, logger logrus.FieldLogger, timeout time.Duration) *OrderController {
	return &OrderController{
		Orders:     stores.Orders,
		Items:      stores.OrderItems,
		Products:   stores.Products,
		Categories: stores.Categories,
		Users:      stores.Users,
		Workflow:   wf,
		Mailer:     mailer,
		Log:        logger,
		Timeout:    timeout,
	}
}

type orderItemRequest struct {
	Quantity flexInt `json:"quantity"`
	Product  string  `json:"product"`
}

// orderRequest is the JSON body of POST /orders.
type orderRequest struct {
	OrderItems       []orderItemRequest `json:"orderItems"`
	ShippingAddress1 string             `json:"shippingAddress1"`
	ShippingAddress2 string             `json:"shippingAddress2"`
	City             string             `json:"city"`
	Zip              string             `json:"zip"`
	Country          string             `json:"country"`
	Phone            string             `json:"phone"`
	Status           string             `json:"status"`
	User             string             `json:"user"`
}

func (req orderRequest) toWorkflow() (workflow.OrderRequest, error) {
	out := workflow.OrderRequest{
		ShippingAddress1: req.ShippingAddress1,
		ShippingAddress2: req.ShippingAddress2,
		City:             req.City,
		Zip:              req.Zip,
		Country:          req.Country,
		Phone:            req.Phone,
		Status:           req.Status,
	}
	if err := requireFields(map[string]string{
		"shippingAddress1": req.ShippingAddress1,
		"shippingAddress2": req.ShippingAddress2,
		"city":             req.City,
		"zip":              req.Zip,
		"country":          req.Country,
		"phone":            req.Phone,
	}); err != nil {
		return out, err
	}

	if req.User != "" {
		userID, err := primitive.ObjectIDFromHex(req.User)
		if err != nil {
			return out, fmt.Errorf("%w: invalid user id", utils.ErrValidation)
		}
		out.UserID = userID
	}

	out.Items = make([]workflow.LineItem, len(req.OrderItems))
	for i, item := range req.OrderItems {
		productID, err := primitive.ObjectIDFromHex(item.Product)
		if err != nil {
			return out, fmt.Errorf("%w: item %d: invalid product id %q", utils.ErrValidation, i, item.Product)
		}
		out.Items[i] = workflow.LineItem{ProductID: productID, Quantity: int(item.Quantity)}
	}
	return out, nil
}

// orderPopulation caches the documents referenced by a set of orders.
type orderPopulation struct {
	users      map[primitive.ObjectID]models.User
	items      map[primitive.ObjectID]models.OrderItem
	products   map[primitive.ObjectID]models.Product
	categories map[primitive.ObjectID]*models.Category
}

// populate resolves users and, when deep, line items with their products and categories.
func (oc *OrderController) populate(ctx context.Context, orders []models.Order, deep bool) ([]models.OrderView, error) {
	pop := orderPopulation{
		users:      map[primitive.ObjectID]models.User{},
		items:      map[primitive.ObjectID]models.OrderItem{},
		products:   map[primitive.ObjectID]models.Product{},
		categories: map[primitive.ObjectID]*models.Category{},
	}

	var userIDs, itemIDs []primitive.ObjectID
	for _, o := range orders {
		userIDs = append(userIDs, o.UserID)
		itemIDs = append(itemIDs, o.OrderItems...)
	}
	users, err := oc.Users.FindByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		pop.users[u.ID] = u
	}

	if deep {
		if err := oc.populateItems(ctx, &pop, uniqueIDs(itemIDs)); err != nil {
			return nil, err
		}
	}

	views := make([]models.OrderView, len(orders))
	for i, o := range orders {
		views[i] = pop.view(o, deep)
	}
	return views, nil
}

func (oc *OrderController) populateItems(ctx context.Context, pop *orderPopulation, itemIDs []primitive.ObjectID) error {
	items, err := oc.Items.FindItems(ctx, itemIDs)
	if err != nil {
		return err
	}
	var productIDs []primitive.ObjectID
	for _, item := range items {
		pop.items[item.ID] = item
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := oc.Products.FindByIDs(ctx, uniqueIDs(productIDs))
	if err != nil {
		return err
	}
	var categoryIDs []primitive.ObjectID
	for _, p := range products {
		pop.products[p.ID] = p
		categoryIDs = append(categoryIDs, p.CategoryID)
	}

	categories, err := oc.Categories.FindByIDs(ctx, uniqueIDs(categoryIDs))
	if err != nil {
		return err
	}
	for i := range categories {
		pop.categories[categories[i].ID] = &categories[i]
	}
	return nil
}

func (pop *orderPopulation) view(o models.Order, deep bool) models.OrderView {
	v := models.OrderView{Order: o, OrderItems: o.OrderItems}
	if u, ok := pop.users[o.UserID]; ok {
		v.User = u.Summary()
	} else if !o.UserID.IsZero() {
		v.User = o.UserID
	}
	if o.OrderItems == nil {
		v.OrderItems = []primitive.ObjectID{}
	}
	if !deep {
		return v
	}

	items := make([]models.OrderItemView, 0, len(o.OrderItems))
	for _, id := range o.OrderItems {
		item, ok := pop.items[id]
		if !ok {
			continue
		}
		iv := models.OrderItemView{ID: item.ID, Quantity: item.Quantity}
		if p, ok := pop.products[item.ProductID]; ok {
			iv.Product = p.View(pop.categories[p.CategoryID])
		}
		items = append(items, iv)
	}
	v.OrderItems = items
	return v
}

// GetOrders lists every order, newest first, with user name and email
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	oc.listOrders(w, r, store.OrderFilter{}, false)
}

// GetUserOrders lists the orders of {userid} with their line items populated
func (oc *OrderController) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userid")
	if err != nil {
		utils.WriteError(w, err, "invalid user id")
		return
	}
	oc.listOrders(w, r, store.OrderFilter{UserID: &userID}, true)
}

func (oc *OrderController) listOrders(w http.ResponseWriter, r *http.Request, filter store.OrderFilter, deep bool) {
	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	orders, err := oc.Orders.List(ctx, filter)
	if err != nil {
		oc.Log.WithError(err).Error("List orders failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	views, err := oc.populate(ctx, orders, deep)
	if err != nil {
		oc.Log.WithError(err).Error("Populate orders failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

// GetOrderByID retrieves one order with user, line items, products and categories
func (oc *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid order id")
		return
	}

	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	order, err := oc.Orders.FindByID(ctx, id)
	if err != nil {
		if !store.IsNotFound(err) {
			oc.Log.WithError(err).Error("Find order failed")
		}
		utils.WriteError(w, err, "The Order with the given ID was not Found")
		return
	}
	views, err := oc.populate(ctx, []models.Order{*order}, true)
	if err != nil {
		oc.Log.WithError(err).Error("Populate order failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}
	utils.WriteJSON(w, http.StatusOK, views[0])
}

// CreateOrder runs the order workflow for the submitted line items
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body orderRequest
	if err := decodeJSON(r, &body); err != nil {
		utils.WriteError(w, err, "Invalid request body")
		return
	}
	req, err := body.toWorkflow()
	if err != nil {
		utils.WriteError(w, err, err.Error())
		return
	}

	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	order, err := oc.Workflow.Create(ctx, req)
	if err != nil {
		status := utils.StatusFor(err)
		if status == http.StatusBadRequest {
			utils.WriteError(w, err, err.Error())
			return
		}
		utils.WriteJSON(w, status, map[string]any{
			"success": false,
			"message": "the order cannot be created!",
			"error":   err.Error(),
		})
		return
	}

	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		oc.Log.WithFields(logrus.Fields{"order_id": order.ID.Hex(), "by": claims.UserID}).Debug("Order placed")
	}
	oc.notify(*order)
	utils.WriteJSON(w, http.StatusOK, order)
}

// notify mails a confirmation to the order's user in the background.
func (oc *OrderController) notify(order models.Order) {
	if oc.Mailer == nil || order.UserID.IsZero() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), oc.timeout())
		defer cancel()

		user, err := oc.Users.FindByID(ctx, order.UserID)
		if err != nil {
			oc.Log.WithError(err).WithField("order_id", order.ID.Hex()).Warn("Order confirmation skipped: user not found")
			return
		}
		if err := oc.Mailer.SendOrderConfirmationEmail(user.Email, order); err != nil {
			oc.Log.WithError(err).Warnf("Failed to send email to %s", user.Email)
		}
	}()
}

func (oc *OrderController) timeout() time.Duration {
	if oc.Timeout <= 0 {
		return defaultTimeout
	}
	return oc.Timeout
}

// UpdateOrder overwrites the status of an order
func (oc *OrderController) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid order id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		utils.WriteError(w, err, "Invalid request body")
		return
	}
	if err := requireFields(map[string]string{"status": body.Status}); err != nil {
		utils.WriteError(w, err, err.Error())
		return
	}

	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	order, err := oc.Orders.UpdateStatus(ctx, id, body.Status)
	if err != nil {
		if !store.IsNotFound(err) {
			oc.Log.WithError(err).Error("Update order status failed")
		}
		http.Error(w, "The order with the given ID was not Found", utils.StatusFor(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// DeleteOrder removes an order and its line items
func (oc *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid order id")
		return
	}

	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	if _, err := oc.Workflow.Delete(ctx, id); err != nil && !errors.Is(err, workflow.ErrCascadeIncomplete) {
		if !store.IsNotFound(err) {
			oc.Log.WithError(err).Error("Delete order failed")
		}
		utils.WriteError(w, err, "order not found")
		return
	}
	utils.WriteMessage(w, http.StatusOK, "the order is deleted")
}

// GetTotalSales sums the total price of every order
func (oc *OrderController) GetTotalSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	total, err := oc.Orders.TotalSales(ctx)
	if err != nil {
		oc.Log.WithError(err).Error("Aggregate total sales failed")
		http.Error(w, "The order sales cannot be generated", http.StatusBadRequest)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]float64{"totalsales": total})
}

// CountOrders returns the number of orders
func (oc *OrderController) CountOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, oc.Timeout)
	defer cancel()

	n, err := oc.Orders.Count(ctx)
	if err != nil {
		oc.Log.WithError(err).Error("Count orders failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error counting orders")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"orderCount": n})
}
