package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrCascadeIncomplete is returned by Delete when the order was removed but
// some of its line items could not be.
var ErrCascadeIncomplete = errors.New("order deleted but line item cleanup incomplete")

// LineItem is one requested (product, quantity) pair.
type LineItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// OrderRequest is a validated order submission.
type OrderRequest struct {
	Items            []LineItem
	ShippingAddress1 string
	ShippingAddress2 string
	City             string
	Zip              string
	Country          string
	Phone            string
	Status           string
	UserID           primitive.ObjectID
}

// Validate checks the line items; allowEmpty decides whether zero items is acceptable.
func (r OrderRequest) Validate(allowEmpty bool) error {
	if len(r.Items) == 0 && !allowEmpty {
		return fmt.Errorf("%w: order must contain at least one item", utils.ErrValidation)
	}
	for i, item := range r.Items {
		if item.ProductID.IsZero() {
			return fmt.Errorf("%w: item %d: missing product", utils.ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", utils.ErrValidation, i)
		}
	}
	return nil
}

// Saga is the record of one order creation run.
type Saga struct {
	State      State
	ItemIDs    []primitive.ObjectID
	LineTotals []decimal.Decimal
	Total      decimal.Decimal
	Order      *models.Order
	Err        error
}

func (s *Saga) advance(to State) {
	if !CanTransition(s.State, to) {
		panic(fmt.Sprintf("workflow: illegal saga transition %s -> %s", s.State, to))
	}
	s.State = to
}

// OrderWorkflow creates and deletes orders across the order and line item
// collections. Nothing here is transactional: failures are compensated by
// best-effort deletes.
type OrderWorkflow struct {
	Orders     store.OrderStore
	Items      store.OrderItemStore
	Products   store.ProductStore
	AllowEmpty bool
	Log        logrus.FieldLogger

	now func() time.Time
}

func NewOrderWorkflow(stores *store.Stores, allowEmpty bool, logger logrus.FieldLogger) *OrderWorkflow {
	return &OrderWorkflow{
		Orders:     stores.Orders,
		Items:      stores.OrderItems,
		Products:   stores.Products,
		AllowEmpty: allowEmpty,
		Log:        logger,
		now:        time.Now,
	}
}

// Create materializes req and returns the persisted order.
func (w *OrderWorkflow) Create(ctx context.Context, req OrderRequest) (*models.Order, error) {
	saga, err := w.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return saga.Order, nil
}

// Run executes the saga and returns its final record, including on failure.
func (w *OrderWorkflow) Run(ctx context.Context, req OrderRequest) (*Saga, error) {
	saga := &Saga{State: ItemsPending}
	if err := req.Validate(w.AllowEmpty); err != nil {
		return w.fail(ctx, saga, err)
	}

	if err := w.createItems(ctx, saga, req.Items); err != nil {
		return w.fail(ctx, saga, fmt.Errorf("%w: %w", utils.ErrItemCreation, err))
	}
	saga.advance(ItemsCreated)

	if err := w.resolvePrices(ctx, saga); err != nil {
		return w.fail(ctx, saga, fmt.Errorf("%w: %w", utils.ErrPriceResolution, err))
	}
	saga.Total = decimal.Sum(decimal.Zero, saga.LineTotals...)
	saga.advance(PriceResolved)

	order := &models.Order{
		OrderItems:       saga.ItemIDs,
		ShippingAddress1: req.ShippingAddress1,
		ShippingAddress2: req.ShippingAddress2,
		City:             req.City,
		Zip:              req.Zip,
		Country:          req.Country,
		Phone:            req.Phone,
		Status:           req.Status,
		TotalPrice:       saga.Total.InexactFloat64(),
		UserID:           req.UserID,
		DateOrdered:      w.now(),
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if err := w.Orders.Insert(ctx, order); err != nil {
		return w.fail(ctx, saga, fmt.Errorf("%w: %w", utils.ErrOrderCreation, err))
	}
	saga.Order = order
	saga.advance(OrderPersisted)

	w.Log.WithFields(logrus.Fields{
		"order_id": order.ID.Hex(),
		"items":    len(saga.ItemIDs),
		"total":    saga.Total.String(),
	}).Info("Order created")
	return saga, nil
}

func (w *OrderWorkflow) createItems(ctx context.Context, saga *Saga, items []LineItem) error {
	saga.ItemIDs = make([]primitive.ObjectID, len(items))
	return FanOut(len(items), func(i int) error {
		item := &models.OrderItem{ProductID: items[i].ProductID, Quantity: items[i].Quantity}
		if err := w.Items.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		saga.ItemIDs[i] = item.ID
		return nil
	})
}

// resolvePrices re-reads every stored line item and its product so totals
// reflect the catalog at assembly time.
func (w *OrderWorkflow) resolvePrices(ctx context.Context, saga *Saga) error {
	saga.LineTotals = make([]decimal.Decimal, len(saga.ItemIDs))
	return FanOut(len(saga.ItemIDs), func(i int) error {
		item, err := w.Items.FindItem(ctx, saga.ItemIDs[i])
		if err != nil {
			return fmt.Errorf("item %s: %w", saga.ItemIDs[i].Hex(), err)
		}
		product, err := w.Products.FindByID(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("product %s: %w", item.ProductID.Hex(), err)
		}
		saga.LineTotals[i] = decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		return nil
	})
}

// cleanupTimeout bounds compensating deletes, which outlive the request deadline.
const cleanupTimeout = 5 * time.Second

// cleanupContext keeps ctx's values but not its cancellation.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

// fail moves the saga to Failed and deletes whatever line items it wrote.
func (w *OrderWorkflow) fail(ctx context.Context, saga *Saga, err error) (*Saga, error) {
	saga.advance(Failed)
	saga.Err = err

	var written []primitive.ObjectID
	for _, id := range saga.ItemIDs {
		if !id.IsZero() {
			written = append(written, id)
		}
	}
	if len(written) > 0 {
		cctx, cancel := cleanupContext(ctx)
		defer cancel()
		cerr := FanOutAll(len(written), func(i int) error {
			return w.Items.DeleteItem(cctx, written[i])
		})
		if cerr != nil {
			w.Log.WithError(cerr).Warnf("Order compensation left orphaned line items")
		}
	}

	w.Log.WithError(err).WithField("compensated_items", len(written)).Warn("Order creation failed")
	return saga, err
}

// Delete removes the order, then every referenced line item. Each item
// deletion is attempted regardless of the others.
func (w *OrderWorkflow) Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := w.Orders.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	cctx, cancel := cleanupContext(ctx)
	defer cancel()
	err = FanOutAll(len(order.OrderItems), func(i int) error {
		return w.Items.DeleteItem(cctx, order.OrderItems[i])
	})
	if err != nil {
		w.Log.WithError(err).WithField("order_id", id.Hex()).Warn("Order line item cleanup incomplete")
		return order, fmt.Errorf("%w: %w", ErrCascadeIncomplete, err)
	}
	return order, nil
}
