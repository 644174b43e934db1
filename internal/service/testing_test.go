package service

import (
	"context"
	"sort"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/store"

	"github.com/lib/pq"
)

// errUniqueViolation mimics the Postgres unique_violation the real store
// surfaces.
var errUniqueViolation = &pq.Error{Code: "23505"}

// memStore is an in-memory store.Tx implementation for service tests. WithTx
// snapshots all state before running fn and restores it when fn fails, so
// tests can assert that failed operations leave no partial effects.
type memStore struct {
	seq int64

	// failInsertCart, when set, makes InsertCart fail to simulate losing the
	// lazy cart-creation race.
	failInsertCart error

	orders    map[int64]*models.Order
	lines     map[int64]*models.LineItem
	products  map[int64]*models.Product
	carts     map[int64]*models.ShoppingCart // keyed by cart id
	cartLines map[[2]int64]*models.ShoppingCartProduct
	users     map[int64]*models.User
	shifts    map[int64]*models.WorkShift
	affs      map[int64]*models.Affiliate
}

func newMemStore() *memStore {
	return &memStore{
		orders:    map[int64]*models.Order{},
		lines:     map[int64]*models.LineItem{},
		products:  map[int64]*models.Product{},
		carts:     map[int64]*models.ShoppingCart{},
		cartLines: map[[2]int64]*models.ShoppingCartProduct{},
		users:     map[int64]*models.User{},
		shifts:    map[int64]*models.WorkShift{},
		affs:      map[int64]*models.Affiliate{},
	}
}

func (m *memStore) nextID() int64 {
	m.seq++
	return m.seq
}

type memSnapshot struct {
	seq       int64
	orders    map[int64]*models.Order
	lines     map[int64]*models.LineItem
	products  map[int64]*models.Product
	carts     map[int64]*models.ShoppingCart
	cartLines map[[2]int64]*models.ShoppingCartProduct
	users     map[int64]*models.User
	shifts    map[int64]*models.WorkShift
	affs      map[int64]*models.Affiliate
}

func copyMap[K comparable, V any](src map[K]*V) map[K]*V {
	dst := make(map[K]*V, len(src))
	for k, v := range src {
		c := *v
		dst[k] = &c
	}
	return dst
}

func (m *memStore) snapshot() memSnapshot {
	return memSnapshot{
		seq:       m.seq,
		orders:    copyMap(m.orders),
		lines:     copyMap(m.lines),
		products:  copyMap(m.products),
		carts:     copyMap(m.carts),
		cartLines: copyMap(m.cartLines),
		users:     copyMap(m.users),
		shifts:    copyMap(m.shifts),
		affs:      copyMap(m.affs),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.seq = s.seq
	m.orders = s.orders
	m.lines = s.lines
	m.products = s.products
	m.carts = s.carts
	m.cartLines = s.cartLines
	m.users = s.users
	m.shifts = s.shifts
	m.affs = s.affs
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// test seeding helpers

func (m *memStore) seedProduct(value int64, stock int) *models.Product {
	p := &models.Product{ID: m.nextID(), CategoryID: 1, Name: "product", Value: value, StockQuantity: stock}
	m.products[p.ID] = p
	return p
}

func (m *memStore) seedUser() *models.User {
	u := &models.User{ID: m.nextID(), Name: "user", Email: "user@example.com"}
	m.users[u.ID] = u
	return u
}

func (m *memStore) seedOrder(status models.OrderStatus) *models.Order {
	o := models.NewOrder(nil, nil, "", "")
	o.ID = m.nextID()
	o.Status = status
	m.orders[o.ID] = o
	return o
}

// orders

func (m *memStore) InsertOrder(ctx context.Context, o *models.Order) error {
	o.ID = m.nextID()
	c := *o
	m.orders[o.ID] = &c
	return nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (m *memStore) UpdateOrder(ctx context.Context, o *models.Order) (int64, error) {
	if _, ok := m.orders[o.ID]; !ok {
		return 0, nil
	}
	c := *o
	m.orders[o.ID] = &c
	return 1, nil
}

func (m *memStore) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	if _, ok := m.orders[id]; !ok {
		return 0, nil
	}
	delete(m.orders, id)
	for lid, l := range m.lines {
		if l.OrderID == id {
			delete(m.lines, lid)
		}
	}
	return 1, nil
}

func (m *memStore) GetLine(ctx context.Context, orderID, productID int64) (*models.LineItem, error) {
	for _, l := range m.lines {
		if l.OrderID == orderID && l.ProductID == productID {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetLines(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	var out []models.LineItem
	for _, l := range m.lines {
		if l.OrderID == orderID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InsertLine(ctx context.Context, li *models.LineItem) error {
	li.ID = m.nextID()
	c := *li
	m.lines[li.ID] = &c
	return nil
}

func (m *memStore) UpdateLine(ctx context.Context, li *models.LineItem) (int64, error) {
	if _, ok := m.lines[li.ID]; !ok {
		return 0, nil
	}
	c := *li
	m.lines[li.ID] = &c
	return 1, nil
}

func (m *memStore) DeleteLine(ctx context.Context, id int64) (int64, error) {
	if _, ok := m.lines[id]; !ok {
		return 0, nil
	}
	delete(m.lines, id)
	return 1, nil
}

// products

func (m *memStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *memStore) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return m.GetProduct(ctx, id)
}

func (m *memStore) UpdateProductStock(ctx context.Context, p *models.Product) (int64, error) {
	if _, ok := m.products[p.ID]; !ok {
		return 0, nil
	}
	c := *p
	m.products[p.ID] = &c
	return 1, nil
}

// carts

func (m *memStore) cartByUser(userID int64) *models.ShoppingCart {
	for _, c := range m.carts {
		if c.UserID == userID {
			return c
		}
	}
	return nil
}

func (m *memStore) GetCartForUpdate(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	cart := m.cartByUser(userID)
	if cart == nil {
		return nil, nil
	}
	c := *cart
	return &c, nil
}

func (m *memStore) InsertCart(ctx context.Context, c *models.ShoppingCart) error {
	if m.failInsertCart != nil {
		return m.failInsertCart
	}
	c.ID = m.nextID()
	cp := *c
	m.carts[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateCart(ctx context.Context, c *models.ShoppingCart) (int64, error) {
	if _, ok := m.carts[c.ID]; !ok {
		return 0, nil
	}
	cp := *c
	m.carts[c.ID] = &cp
	return 1, nil
}

func (m *memStore) GetCartLine(ctx context.Context, cartID, productID int64) (*models.ShoppingCartProduct, error) {
	l, ok := m.cartLines[[2]int64{cartID, productID}]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (m *memStore) GetCartLines(ctx context.Context, cartID int64) ([]models.ShoppingCartProduct, error) {
	var out []models.ShoppingCartProduct
	for _, l := range m.cartLines {
		if l.ShoppingCartID == cartID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *memStore) InsertCartLine(ctx context.Context, l *models.ShoppingCartProduct) error {
	c := *l
	m.cartLines[[2]int64{l.ShoppingCartID, l.ProductID}] = &c
	return nil
}

func (m *memStore) UpdateCartLine(ctx context.Context, l *models.ShoppingCartProduct) (int64, error) {
	key := [2]int64{l.ShoppingCartID, l.ProductID}
	if _, ok := m.cartLines[key]; !ok {
		return 0, nil
	}
	c := *l
	m.cartLines[key] = &c
	return 1, nil
}

func (m *memStore) DeleteCartLine(ctx context.Context, cartID, productID int64) (int64, error) {
	key := [2]int64{cartID, productID}
	if _, ok := m.cartLines[key]; !ok {
		return 0, nil
	}
	delete(m.cartLines, key)
	return 1, nil
}

func (m *memStore) DeleteCartLines(ctx context.Context, cartID int64) (int64, error) {
	var n int64
	for key, l := range m.cartLines {
		if l.ShoppingCartID == cartID {
			delete(m.cartLines, key)
			n++
		}
	}
	return n, nil
}

// users and shifts

func (m *memStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memStore) GetOpenShiftForUpdate(ctx context.Context, employeeID int64) (*models.WorkShift, error) {
	for _, w := range m.shifts {
		if w.EmployeeID == employeeID && w.EndTime == nil {
			c := *w
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertShift(ctx context.Context, w *models.WorkShift) error {
	w.ID = m.nextID()
	c := *w
	m.shifts[w.ID] = &c
	return nil
}

func (m *memStore) UpdateShift(ctx context.Context, w *models.WorkShift) (int64, error) {
	if _, ok := m.shifts[w.ID]; !ok {
		return 0, nil
	}
	c := *w
	m.shifts[w.ID] = &c
	return 1, nil
}

// read-side contracts (orderStore, cartStore, accountStore)

func (m *memStore) GetOrderWithLines(ctx context.Context, id int64) (*models.Order, []models.LineItem, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil, nil
	}
	c := *o
	lines, _ := m.GetLines(ctx, id)
	return &c, lines, nil
}

func (m *memStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID.Valid && o.UserID.Int64 == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) OrderReport(ctx context.Context, start, end time.Time) (*models.OrderReport, error) {
	report := &models.OrderReport{Start: start, End: end}
	distinct := map[int64]bool{}
	for _, o := range m.orders {
		if o.OrderDate.Before(start) || o.OrderDate.After(end) {
			continue
		}
		report.OrdersCount++
		report.TotalValue += o.TotalValue
		for _, l := range m.lines {
			if l.OrderID == o.ID {
				distinct[l.ProductID] = true
			}
		}
		if o.Status == models.OrderStatusFinished && o.AffiliateID.Valid {
			if a, ok := m.affs[o.AffiliateID.Int64]; ok {
				report.CommissionOwed += o.TotalValue * int64(a.CommissionPercent) / 100
			}
		}
	}
	report.DistinctProducts = len(distinct)
	return report, nil
}

func (m *memStore) GetCartWithLines(ctx context.Context, userID int64) (*models.ShoppingCart, []models.ShoppingCartProduct, error) {
	cart := m.cartByUser(userID)
	if cart == nil {
		return nil, nil, nil
	}
	c := *cart
	lines, _ := m.GetCartLines(ctx, cart.ID)
	return &c, lines, nil
}

func (m *memStore) CreateUser(ctx context.Context, u *models.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return errUniqueViolation
		}
	}
	u.ID = m.nextID()
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return m.GetUser(ctx, id)
}

func (m *memStore) CreateAffiliate(ctx context.Context, a *models.Affiliate) error {
	a.ID = m.nextID()
	c := *a
	m.affs[a.ID] = &c
	return nil
}

func (m *memStore) GetAffiliateByID(ctx context.Context, id int64) (*models.Affiliate, error) {
	a, ok := m.affs[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *memStore) GetAffiliates(ctx context.Context) ([]models.Affiliate, error) {
	var out []models.Affiliate
	for _, a := range m.affs {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) GetShiftsByEmployee(ctx context.Context, employeeID int64) ([]models.WorkShift, error) {
	var out []models.WorkShift
	for _, w := range m.shifts {
		if w.EmployeeID == employeeID {
			out = append(out, *w)
		}
	}
	return out, nil
}

// catalog contract

func (m *memStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.ID = m.nextID()
	c := *p
	m.products[p.ID] = &c
	return nil
}

func (m *memStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return m.GetProduct(ctx, id)
}

func (m *memStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, p *models.Product) (int64, error) {
	existing, ok := m.products[p.ID]
	if !ok {
		return 0, nil
	}
	existing.CategoryID = p.CategoryID
	existing.Name = p.Name
	existing.Value = p.Value
	return 1, nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	if _, ok := m.products[id]; !ok {
		return 0, nil
	}
	delete(m.products, id)
	return 1, nil
}

func (m *memStore) CreateCategory(ctx context.Context, c *models.Category) error {
	c.ID = m.nextID()
	return nil
}

func (m *memStore) GetCategories(ctx context.Context) ([]models.Category, error) {
	return nil, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	sent     []*models.OrderSentEvent
	finished []*models.OrderFinishedEvent
	cleared  []*models.CartClearedEvent
}

func (p *fakePublisher) PublishOrderSent(ctx context.Context, e *models.OrderSentEvent) error {
	p.sent = append(p.sent, e)
	return nil
}

func (p *fakePublisher) PublishOrderFinished(ctx context.Context, e *models.OrderFinishedEvent) error {
	p.finished = append(p.finished, e)
	return nil
}

func (p *fakePublisher) PublishCartCleared(ctx context.Context, e *models.CartClearedEvent) error {
	p.cleared = append(p.cleared, e)
	return nil
}

// fakeCache records invalidations and serves nothing.
type fakeCache struct {
	invalidated []int64
}

func (c *fakeCache) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return nil, nil
}

func (c *fakeCache) SetProduct(ctx context.Context, p *models.Product) error { return nil }

func (c *fakeCache) InvalidateProduct(ctx context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	return nil
}
