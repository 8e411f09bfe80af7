package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"eshop/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// collection is a mutex-guarded, insertion-ordered document map.
type collection[T any] struct {
	mu    sync.RWMutex
	docs  map[primitive.ObjectID]T
	order []primitive.ObjectID
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{docs: make(map[primitive.ObjectID]T)}
}

func (c *collection[T]) insert(id primitive.ObjectID, doc T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
}

func (c *collection[T]) get(id primitive.ObjectID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	return doc, ok
}

func (c *collection[T]) replace(id primitive.ObjectID, doc T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return false
	}
	c.docs[id] = doc
	return true
}

func (c *collection[T]) update(id primitive.ObjectID, fn func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return doc, false
	}
	fn(&doc)
	c.docs[id] = doc
	return doc, true
}

func (c *collection[T]) remove(id primitive.ObjectID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return doc, false
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(o primitive.ObjectID) bool { return o == id })
	return doc, true
}

func (c *collection[T]) filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, id := range c.order {
		if doc := c.docs[id]; keep == nil || keep(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (c *collection[T]) byIDs(ids []primitive.ObjectID) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, id := range ids {
		if doc, ok := c.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

func (c *collection[T]) count() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.docs))
}

// NewMemoryStores returns process-local stores, used for local runs and tests.
func NewMemoryStores() *Stores {
	orders := NewMemoryOrderStore()
	return &Stores{
		Users:      NewMemoryUserStore(),
		Categories: NewMemoryCategoryStore(),
		Products:   NewMemoryProductStore(),
		Orders:     orders,
		OrderItems: orders,
	}
}

// MemoryUserStore keeps users in memory with a unique email constraint.
type MemoryUserStore struct {
	users   *collection[models.User]
	emailMu sync.Mutex
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: newCollection[models.User]()}
}

func (s *MemoryUserStore) List(ctx context.Context) ([]models.User, error) {
	return s.users.filter(nil), nil
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := s.users.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	return s.users.byIDs(ids), nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	found := s.users.filter(func(u models.User) bool { return u.Email == email })
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

func (s *MemoryUserStore) emailTaken(email string, except primitive.ObjectID) bool {
	return len(s.users.filter(func(u models.User) bool { return u.Email == email && u.ID != except })) > 0
}

func (s *MemoryUserStore) Insert(ctx context.Context, user *models.User) error {
	s.emailMu.Lock()
	defer s.emailMu.Unlock()
	if s.emailTaken(user.Email, primitive.NilObjectID) {
		return ErrDuplicate
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users.insert(user.ID, *user)
	return nil
}

func (s *MemoryUserStore) Replace(ctx context.Context, user *models.User) error {
	s.emailMu.Lock()
	defer s.emailMu.Unlock()
	if s.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	if !s.users.replace(user.ID, *user) {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := s.users.remove(id); !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryUserStore) Count(ctx context.Context) (int64, error) {
	return s.users.count(), nil
}

// MemoryCategoryStore keeps categories in memory.
type MemoryCategoryStore struct {
	categories *collection[models.Category]
}

func NewMemoryCategoryStore() *MemoryCategoryStore {
	return &MemoryCategoryStore{categories: newCollection[models.Category]()}
}

func (s *MemoryCategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.filter(nil), nil
}

func (s *MemoryCategoryStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	c, ok := s.categories.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryCategoryStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	return s.categories.byIDs(ids), nil
}

func (s *MemoryCategoryStore) Insert(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	s.categories.insert(category.ID, *category)
	return nil
}

func (s *MemoryCategoryStore) Replace(ctx context.Context, category *models.Category) error {
	if !s.categories.replace(category.ID, *category) {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryCategoryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := s.categories.remove(id); !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryCategoryStore) Count(ctx context.Context) (int64, error) {
	return s.categories.count(), nil
}

// MemoryProductStore keeps products in memory.
type MemoryProductStore struct {
	products *collection[models.Product]
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: newCollection[models.Product]()}
}

func (s *MemoryProductStore) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	out := s.products.filter(func(p models.Product) bool {
		if filter.FeaturedOnly && !p.IsFeatured {
			return false
		}
		return len(filter.CategoryIDs) == 0 || slices.Contains(filter.CategoryIDs, p.CategoryID)
	})
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, ok := s.products.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	return s.products.byIDs(ids), nil
}

func (s *MemoryProductStore) Insert(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	s.products.insert(product.ID, *product)
	return nil
}

func (s *MemoryProductStore) Replace(ctx context.Context, product *models.Product) error {
	if !s.products.replace(product.ID, *product) {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryProductStore) SetImages(ctx context.Context, id primitive.ObjectID, images []string) (*models.Product, error) {
	p, ok := s.products.update(id, func(p *models.Product) { p.Images = images })
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := s.products.remove(id); !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryProductStore) Count(ctx context.Context) (int64, error) {
	return s.products.count(), nil
}

// MemoryOrderStore keeps orders and line items in memory.
type MemoryOrderStore struct {
	orders *collection[models.Order]
	items  *collection[models.OrderItem]
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: newCollection[models.Order](),
		items:  newCollection[models.OrderItem](),
	}
}

func (s *MemoryOrderStore) InsertItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	s.items.insert(item.ID, *item)
	return nil
}

func (s *MemoryOrderStore) FindItem(ctx context.Context, id primitive.ObjectID) (*models.OrderItem, error) {
	item, ok := s.items.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s *MemoryOrderStore) FindItems(ctx context.Context, ids []primitive.ObjectID) ([]models.OrderItem, error) {
	return s.items.byIDs(ids), nil
}

func (s *MemoryOrderStore) DeleteItem(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := s.items.remove(id); !ok {
		return ErrNotFound
	}
	return nil
}

// ItemCount returns the number of stored line items.
func (s *MemoryOrderStore) ItemCount() int64 {
	return s.items.count()
}

func (s *MemoryOrderStore) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	out := s.orders.filter(func(o models.Order) bool {
		return filter.UserID == nil || o.UserID == *filter.UserID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateOrdered.After(out[j].DateOrdered) })
	return out, nil
}

func (s *MemoryOrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, ok := s.orders.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryOrderStore) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.orders.insert(order.ID, *order)
	return nil
}

func (s *MemoryOrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error) {
	o, ok := s.orders.update(id, func(o *models.Order) { o.Status = status })
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryOrderStore) Delete(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, ok := s.orders.remove(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryOrderStore) Count(ctx context.Context) (int64, error) {
	return s.orders.count(), nil
}

func (s *MemoryOrderStore) TotalSales(ctx context.Context) (float64, error) {
	var total float64
	for _, o := range s.orders.filter(nil) {
		total += o.TotalPrice
	}
	return total, nil
}
