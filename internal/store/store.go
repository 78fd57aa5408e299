// Package store provides the SQLite data provider for orders, products,
// and sales aggregates.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Order is a customer order with its line items.
type Order struct {
	OrderID       int64       `json:"order_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Total         float64     `json:"total"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	PaymentMethod string      `json:"payment_method"`
	Address       string      `json:"address"`
	Notified      bool        `json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductName string  `json:"product_name"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Product is a catalog entry.
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

// Availability buckets stock for display.
func (p Product) Availability() string {
	switch {
	case p.StockQuantity == 0:
		return "out_of_stock"
	case p.StockQuantity < 10:
		return "low_stock"
	default:
		return "in_stock"
	}
}

// PeriodStats aggregates orders over a time window.
type PeriodStats struct {
	OrderCount    int     `json:"order_count"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

// TopProduct is one row of the best-sellers ranking.
type TopProduct struct {
	ProductName string  `json:"product_name"`
	Revenue     float64 `json:"revenue"`
	OrderCount  int     `json:"order_count"`
	UnitsSold   int     `json:"units_sold"`
}

// InventoryTotals summarizes the catalog.
type InventoryTotals struct {
	TotalProducts int `json:"total_products"`
	TotalUnits    int `json:"total_units"`
	OutOfStock    int `json:"out_of_stock"`
	LowStock      int `json:"low_stock"`
	WellStocked   int `json:"well_stocked"`
}

// Store manages order and product persistence in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id       INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_name  TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			total          REAL NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			payment_method TEXT NOT NULL DEFAULT 'cod',
			address        TEXT NOT NULL DEFAULT '',
			notified       INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id     INTEGER NOT NULL,
			product_name TEXT NOT NULL,
			size         TEXT NOT NULL DEFAULT '',
			quantity     INTEGER NOT NULL DEFAULT 1,
			price        REAL NOT NULL DEFAULT 0,
			FOREIGN KEY (order_id) REFERENCES orders(order_id)
		);

		CREATE TABLE IF NOT EXISTS products (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL,
			category       TEXT NOT NULL DEFAULT '',
			price          REAL NOT NULL DEFAULT 0,
			stock_quantity INTEGER NOT NULL DEFAULT 0,
			is_active      INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_orders_phone
			ON orders(customer_phone);
		CREATE INDEX IF NOT EXISTS idx_orders_created
			ON orders(created_at);
		CREATE INDEX IF NOT EXISTS idx_items_order_id
			ON order_items(order_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Order lookups ---

const orderColumns = `order_id, customer_name, customer_phone, total,
	status, payment_status, payment_method, address, notified, created_at`

// OrderByID returns the order with the given ID, including its items.
func (s *Store) OrderByID(orderID int64) (*Order, error) {
	row := s.db.QueryRow(
		`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(order); err != nil {
		return nil, err
	}
	return order, nil
}

// OrderByPhone returns the latest order placed from a phone number.
// The number is normalized and matched on its last 10 digits so that
// "+8801711222333" and "01711222333" find the same rows.
func (s *Store) OrderByPhone(phone string) (*Order, error) {
	normalized := normalizePhone(phone)
	suffix := normalized
	if len(suffix) > 10 {
		suffix = suffix[len(suffix)-10:]
	}

	row := s.db.QueryRow(
		`SELECT `+orderColumns+` FROM orders
		 WHERE customer_phone LIKE ?
		 ORDER BY created_at DESC LIMIT 1`,
		"%"+suffix,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(order); err != nil {
		return nil, err
	}
	return order, nil
}

// RecentOrders returns the most recent orders, newest first.
func (s *Store) RecentOrders(limit int) ([]*Order, error) {
	rows, err := s.db.Query(
		`SELECT `+orderColumns+` FROM orders
		 ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// OrdersAfter returns orders with an ID greater than afterID, oldest
// first. Used by the new-order poller.
func (s *Store) OrdersAfter(afterID int64) ([]*Order, error) {
	rows, err := s.db.Query(
		`SELECT `+orderColumns+` FROM orders
		 WHERE order_id > ? ORDER BY order_id ASC`, afterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// LatestOrderID returns the highest order ID, or 0 for an empty table.
func (s *Store) LatestOrderID() (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(order_id) FROM orders`).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// MarkNotified records that an admin alert went out for an order.
// Single-row, last-writer-wins.
func (s *Store) MarkNotified(orderID int64) error {
	_, err := s.db.Exec(
		`UPDATE orders SET notified = 1 WHERE order_id = ?`, orderID,
	)
	return err
}

// OrderCountByStatus returns order counts grouped by status.
func (s *Store) OrderCountByStatus() (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT status, COUNT(*) FROM orders GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// --- Product lookups ---

// AvailableProducts returns active products ordered by name.
func (s *Store) AvailableProducts() ([]Product, error) {
	return s.queryProducts(
		`SELECT id, name, category, price, stock_quantity
		 FROM products WHERE is_active = 1 ORDER BY name`,
	)
}

// SearchProducts matches active, in-stock products by name or category.
func (s *Store) SearchProducts(term string) ([]Product, error) {
	pattern := "%" + term + "%"
	return s.queryProducts(
		`SELECT id, name, category, price, stock_quantity
		 FROM products
		 WHERE (name LIKE ? OR category LIKE ?)
		 AND is_active = 1 AND stock_quantity > 0
		 ORDER BY stock_quantity DESC`,
		pattern, pattern,
	)
}

// LowStock returns active products at or below the threshold, scarcest
// first. Zero-stock products are reported by OutOfStock instead.
func (s *Store) LowStock(threshold int) ([]Product, error) {
	return s.queryProducts(
		`SELECT id, name, category, price, stock_quantity
		 FROM products
		 WHERE stock_quantity > 0 AND stock_quantity <= ?
		 AND is_active = 1
		 ORDER BY stock_quantity ASC`,
		threshold,
	)
}

// OutOfStock returns active products with zero stock.
func (s *Store) OutOfStock() ([]Product, error) {
	return s.queryProducts(
		`SELECT id, name, category, price, stock_quantity
		 FROM products
		 WHERE stock_quantity = 0 AND is_active = 1
		 ORDER BY name`,
	)
}

// InventoryTotals summarizes the active catalog.
func (s *Store) InventoryTotals() (InventoryTotals, error) {
	var t InventoryTotals
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(stock_quantity), 0),
			COUNT(CASE WHEN stock_quantity = 0 THEN 1 END),
			COUNT(CASE WHEN stock_quantity > 0 AND stock_quantity <= 10 THEN 1 END),
			COUNT(CASE WHEN stock_quantity > 10 THEN 1 END)
		FROM products WHERE is_active = 1
	`).Scan(&t.TotalProducts, &t.TotalUnits, &t.OutOfStock, &t.LowStock, &t.WellStocked)
	return t, err
}

// --- Aggregates ---

// TodayStats aggregates orders placed today (UTC).
func (s *Store) TodayStats() (PeriodStats, error) {
	return s.periodStats(`DATE(created_at) = DATE('now')`)
}

// WeeklyStats aggregates orders from the last 7 days.
func (s *Store) WeeklyStats() (PeriodStats, error) {
	return s.periodStats(`created_at >= datetime('now', '-7 days')`)
}

// MonthlyStats aggregates orders from the start of the current month.
func (s *Store) MonthlyStats() (PeriodStats, error) {
	return s.periodStats(`created_at >= datetime('now', 'start of month')`)
}

func (s *Store) periodStats(where string) (PeriodStats, error) {
	var st PeriodStats
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(AVG(total), 0)
		FROM orders WHERE ` + where,
	).Scan(&st.OrderCount, &st.TotalRevenue, &st.AvgOrderValue)
	return st, err
}

// TopProducts ranks products by revenue over the last N days.
func (s *Store) TopProducts(days, limit int) ([]TopProduct, error) {
	rows, err := s.db.Query(`
		SELECT
			oi.product_name,
			COALESCE(SUM(oi.price * oi.quantity), 0) AS revenue,
			COUNT(DISTINCT o.order_id),
			COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.order_id
		WHERE o.created_at >= datetime('now', '-' || ? || ' days')
		GROUP BY oi.product_name
		ORDER BY revenue DESC
		LIMIT ?`,
		days, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []TopProduct
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductName, &p.Revenue, &p.OrderCount, &p.UnitsSold); err != nil {
			return nil, err
		}
		top = append(top, p)
	}
	return top, rows.Err()
}

// --- Writes (used by tests and the seed command) ---

// InsertOrder inserts an order with its items and returns the new ID.
func (s *Store) InsertOrder(o *Order) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO orders
			(customer_name, customer_phone, total, status,
			 payment_status, payment_method, address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.CustomerName, normalizePhone(o.CustomerPhone), o.Total, o.Status,
		o.PaymentStatus, o.PaymentMethod, o.Address, o.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, item := range o.Items {
		_, err := s.db.Exec(
			`INSERT INTO order_items (order_id, product_name, size, quantity, price)
			 VALUES (?, ?, ?, ?, ?)`,
			id, item.ProductName, item.Size, item.Quantity, item.Price,
		)
		if err != nil {
			return 0, err
		}
	}
	o.OrderID = id
	return id, nil
}

// InsertProduct inserts a catalog entry and returns the new ID.
func (s *Store) InsertProduct(p *Product) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO products (name, category, price, stock_quantity)
		 VALUES (?, ?, ?, ?)`,
		p.Name, p.Category, p.Price, p.StockQuantity,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

// --- Scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*Order, error) {
	o := &Order{}
	var notified int
	err := row.Scan(
		&o.OrderID, &o.CustomerName, &o.CustomerPhone, &o.Total,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.Address,
		&notified, &o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Notified = notified != 0
	return o, nil
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) loadItems(o *Order) error {
	rows, err := s.db.Query(
		`SELECT product_name, size, quantity, price
		 FROM order_items WHERE order_id = ? ORDER BY id`, o.OrderID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductName, &item.Size, &item.Quantity, &item.Price); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (s *Store) queryProducts(query string, args ...any) ([]Product, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.StockQuantity); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func normalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "+88", "").Replace(phone)
	if p != "" && !strings.HasPrefix(p, "0") {
		p = "0" + p
	}
	return p
}
