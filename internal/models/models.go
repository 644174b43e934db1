package models

import "time"

// Product represents a catalog product. Value is the unit price in cents.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	CategoryID    int64     `db:"category_id" json:"category_id"`
	Name          string    `db:"name" json:"name"`
	Value         int64     `db:"value" json:"value"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// InStock reports whether the product passes the admission gate for orders
// and carts.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// DecrementStock consumes amount units. It never leaves a negative quantity;
// callers treat a false return as insufficient stock and abort the whole
// operation.
func (p *Product) DecrementStock(amount int) bool {
	if amount <= 0 || amount > p.StockQuantity {
		return false
	}
	p.StockQuantity -= amount
	return true
}

// AddStock replenishes stock by amount units.
func (p *Product) AddStock(amount int) bool {
	if amount <= 0 {
		return false
	}
	p.StockQuantity += amount
	return true
}

// Category groups products.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// User owns at most one shopping cart and any number of orders.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Affiliate refers customers and earns a percent commission on finished
// orders carrying its id.
type Affiliate struct {
	ID                int64     `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	CommissionPercent int       `db:"commission_percent" json:"commission_percent"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// WorkShift records one employee work period. EndTime is nil while the shift
// is open; at most one open shift per employee.
type WorkShift struct {
	ID         int64      `db:"id" json:"id"`
	EmployeeID int64      `db:"employee_id" json:"employee_id"`
	StartTime  time.Time  `db:"start_time" json:"start_time"`
	EndTime    *time.Time `db:"end_time" json:"end_time,omitempty"`
}

// Open reports whether the shift has not been closed yet.
func (w *WorkShift) Open() bool {
	return w.EndTime == nil
}

// Close stamps the shift end. Returns false when already closed or when end
// precedes start.
func (w *WorkShift) Close(end time.Time) bool {
	if w.EndTime != nil || end.Before(w.StartTime) {
		return false
	}
	w.EndTime = &end
	return true
}

// OrderReport is the read-side aggregation over a date window.
type OrderReport struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	OrdersCount      int       `db:"orders_count" json:"orders_count"`
	TotalValue       int64     `db:"total_value" json:"total_value"`
	DistinctProducts int       `db:"distinct_products" json:"distinct_products"`
	CommissionOwed   int64     `db:"commission_owed" json:"commission_owed"`
}
