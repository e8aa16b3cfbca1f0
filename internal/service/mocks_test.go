package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/payment"
	"github.com/flicky/go-storefront/internal/repository"
)

// fakeTx buffers writes staged by the mock repositories and applies them on
// Commit only, which is enough to observe all-or-nothing behaviour.
type fakeTx struct {
	pgx.Tx
	ops        []func()
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	for _, op := range t.ops {
		op()
	}
	t.ops = nil
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.ops = nil
	t.rolledBack = true
	return nil
}

func stage(tx pgx.Tx, op func()) {
	ft := tx.(*fakeTx)
	ft.ops = append(ft.ops, op)
}

// --- users ---

type mockUserRepo struct {
	users map[string]*model.User
	byID  map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User), byID: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.Email] = u
	m.byID[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) update(id uuid.UUID, fn func(*model.User)) error {
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(u)
	return nil
}

func (m *mockUserRepo) UpdateAddress(_ context.Context, id uuid.UUID, addr model.ShippingAddress) error {
	return m.update(id, func(u *model.User) { u.Address = &addr })
}

func (m *mockUserRepo) UpdatePaymentMethod(_ context.Context, id uuid.UUID, method model.PaymentMethod) error {
	return m.update(id, func(u *model.User) { u.PaymentMethod = method })
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id uuid.UUID, name string) error {
	return m.update(id, func(u *model.User) { u.Name = name })
}

func (m *mockUserRepo) UpdateByAdmin(_ context.Context, id uuid.UUID, name, role string) error {
	return m.update(id, func(u *model.User) {
		u.Name = name
		u.Role = role
	})
}

func (m *mockUserRepo) List(_ context.Context, _ string, limit, offset int) ([]model.User, int, error) {
	var out []model.User
	for _, u := range m.byID {
		out = append(out, *u)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(total, offset+limit)], total, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	delete(m.users, u.Email)
	return nil
}

// --- products ---

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
	// ordered products cannot be deleted.
	ordered map[uuid.UUID]bool
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) add(name, price string, stock int) *model.Product {
	p := &model.Product{
		ID: uuid.New(), Name: name, Slug: name, Category: "Shirts", Images: []string{"/images/" + name + ".jpg"},
		Price: decimal.RequireFromString(price), Stock: stock,
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) stock(id uuid.UUID) int { return m.products[id].Stock }

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if p, ok := m.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockProductRepo) GetBySlug(_ context.Context, slug string) (*model.Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	var out []model.Product
	for _, p := range m.products {
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProductRepo) Latest(_ context.Context, limit int) ([]model.Product, error) {
	out, _, _ := m.List(context.Background(), model.ProductFilter{})
	return out[:min(limit, len(out))], nil
}

func (m *mockProductRepo) Featured(context.Context, int) ([]model.Product, error) { return nil, nil }

func (m *mockProductRepo) Categories(context.Context) ([]model.CategoryCount, error) {
	counts := map[string]int{}
	for _, p := range m.products {
		counts[p.Category]++
	}
	var out []model.CategoryCount
	for c, n := range counts {
		out = append(out, model.CategoryCount{Category: c, Count: n})
	}
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.ordered[id] {
		return fmt.Errorf("delete product: %w", repository.ErrReferenced)
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, tx pgx.Tx, id uuid.UUID, qty int) error {
	p, ok := m.products[id]
	if !ok || p.Stock < qty {
		return fmt.Errorf("product %s: %w", id, repository.ErrInsufficientStock)
	}
	stage(tx, func() { p.Stock -= qty })
	return nil
}

func (m *mockProductRepo) UpdateRating(_ context.Context, tx pgx.Tx, id uuid.UUID, rating decimal.Decimal, n int) error {
	p, ok := m.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stage(tx, func() {
		p.Rating = rating
		p.NumReviews = n
	})
	return nil
}

// --- carts ---

type mockCartRepo struct {
	carts map[uuid.UUID]*model.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*model.Cart)}
}

func copyCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (m *mockCartRepo) BeginTx(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (m *mockCartRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	for _, c := range m.carts {
		if c.UserID != nil && *c.UserID == userID {
			return copyCart(c), nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) GetBySessionID(_ context.Context, sessionID string) (*model.Cart, error) {
	for _, c := range m.carts {
		if c.UserID == nil && c.SessionCartID == sessionID {
			return copyCart(c), nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) Create(_ context.Context, cart *model.Cart) error {
	cart.ID = uuid.New()
	m.carts[cart.ID] = copyCart(cart)
	return nil
}

func (m *mockCartRepo) Update(_ context.Context, cart *model.Cart) error {
	if _, ok := m.carts[cart.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.carts[cart.ID] = copyCart(cart)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	c, ok := m.carts[cartID]
	if !ok {
		return pgx.ErrNoRows
	}
	stage(tx, func() {
		c.Items = []model.CartItem{}
		c.ItemsPrice, c.ShippingPrice, c.TaxPrice, c.TotalPrice = decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	})
	return nil
}

func (m *mockCartRepo) DeleteByUserID(_ context.Context, tx pgx.Tx, userID uuid.UUID) error {
	stage(tx, func() {
		for id, c := range m.carts {
			if c.UserID != nil && *c.UserID == userID {
				delete(m.carts, id)
			}
		}
	})
	return nil
}

func (m *mockCartRepo) AssignToUser(_ context.Context, tx pgx.Tx, cartID, userID uuid.UUID) error {
	c, ok := m.carts[cartID]
	if !ok {
		return pgx.ErrNoRows
	}
	stage(tx, func() { c.UserID = &userID })
	return nil
}

// --- orders ---

type mockOrderRepo struct {
	orders     map[uuid.UUID]*model.Order
	items      map[uuid.UUID][]model.OrderItem
	failItemAt int
	itemCalls  int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order), items: make(map[uuid.UUID][]model.OrderItem)}
}

// add stores a committed order together with its items.
func (m *mockOrderRepo) add(o *model.Order) *model.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	m.items[o.ID] = slices.Clone(o.Items)
	cp := *o
	cp.Items = nil
	m.orders[o.ID] = &cp
	return o
}

func (m *mockOrderRepo) BeginTx(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (m *mockOrderRepo) Create(_ context.Context, tx pgx.Tx, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	cp := *order
	stage(tx, func() { m.orders[cp.ID] = &cp })
	return nil
}

func (m *mockOrderRepo) CreateItem(_ context.Context, tx pgx.Tx, item *model.OrderItem) error {
	m.itemCalls++
	if m.failItemAt > 0 && m.itemCalls == m.failItemAt {
		return errors.New("insert order item: connection reset")
	}
	cp := *item
	stage(tx, func() { m.items[cp.OrderID] = append(m.items[cp.OrderID], cp) })
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		cp.PaymentResult = &pr
	}
	cp.Items = slices.Clone(m.items[id])
	return &cp, nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, int, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(total, offset+limit)], total, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ string, limit, offset int) ([]model.Order, int, error) {
	var out []model.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(total, offset+limit)], total, nil
}

func (m *mockOrderRepo) SetPaymentResult(_ context.Context, id uuid.UUID, result model.PaymentResult) error {
	o, ok := m.orders[id]
	if !ok || o.IsPaid || (o.PaymentResult != nil && o.PaymentResult.Status == payment.StatusCompleted) {
		return pgx.ErrNoRows
	}
	o.PaymentResult = &result
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time, result *model.PaymentResult) error {
	o, ok := m.orders[id]
	if !ok || o.IsPaid {
		return pgx.ErrNoRows
	}
	stage(tx, func() {
		o.IsPaid = true
		o.PaidAt = &paidAt
		o.PaymentResult = result
	})
	return nil
}

func (m *mockOrderRepo) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || !o.IsPaid {
		return pgx.ErrNoRows
	}
	o.IsDelivered = true
	o.DeliveredAt = &at
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.orders, id)
	delete(m.items, id)
	return nil
}

func (m *mockOrderRepo) Summary(_ context.Context, _, _ int) (*model.SalesSummary, error) {
	s := &model.SalesSummary{OrdersCount: len(m.orders), TotalSales: decimal.Zero}
	for _, o := range m.orders {
		if o.IsPaid {
			s.TotalSales = s.TotalSales.Add(o.TotalPrice)
		}
	}
	return s, nil
}

// --- reviews ---

// mockReviewRepo writes through immediately; review tests only cover committed paths.
type mockReviewRepo struct {
	reviews map[[2]uuid.UUID]*model.Review
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: make(map[[2]uuid.UUID]*model.Review)}
}

func (m *mockReviewRepo) BeginTx(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (m *mockReviewRepo) Upsert(_ context.Context, _ pgx.Tx, r *model.Review) error {
	key := [2]uuid.UUID{r.UserID, r.ProductID}
	if existing, ok := m.reviews[key]; ok {
		r.ID = existing.ID
	} else {
		r.ID = uuid.New()
	}
	cp := *r
	m.reviews[key] = &cp
	return nil
}

func (m *mockReviewRepo) Stats(_ context.Context, _ pgx.Tx, productID uuid.UUID) (decimal.Decimal, int, error) {
	sum, n := 0, 0
	for _, r := range m.reviews {
		if r.ProductID == productID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, 0, nil
	}
	return decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(n)), 2), n, nil
}

func (m *mockReviewRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Review, error) {
	var out []model.Review
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) GetByUserAndProduct(_ context.Context, userID, productID uuid.UUID) (*model.Review, error) {
	if r, ok := m.reviews[[2]uuid.UUID{userID, productID}]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

// --- collaborators ---

type fakeProcessor struct {
	intentID   string
	capture    *payment.Capture
	createErr  error
	captureErr error
	captures   int
	onCapture  func()
}

func (f *fakeProcessor) CreateOrder(_ context.Context, _ string, _ decimal.Decimal) (*payment.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &payment.Intent{ID: f.intentID}, nil
}

func (f *fakeProcessor) Capture(_ context.Context, _ string) (*payment.Capture, error) {
	f.captures++
	if f.onCapture != nil {
		f.onCapture()
	}
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return f.capture, nil
}

type fakeReceipts struct {
	mu   sync.Mutex
	msgs []model.ReceiptMessage
	err  error
}

func (f *fakeReceipts) PublishReceipt(_ context.Context, msg model.ReceiptMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}
