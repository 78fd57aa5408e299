package store

import "time"

// Seed loads a small demo dataset so the bot can be exercised without a
// production database. Idempotent per call only in the sense that it
// always appends; intended for fresh files.
func (s *Store) Seed() error {
	products := []Product{
		{Name: "Classic Black Tee", Category: "T-Shirts", Price: 650, StockQuantity: 42},
		{Name: "Heritage Hoodie", Category: "Hoodies", Price: 1850, StockQuantity: 8},
		{Name: "Monsoon Windbreaker", Category: "Jackets", Price: 2400, StockQuantity: 0},
		{Name: "Everyday Polo", Category: "Polos", Price: 950, StockQuantity: 27},
		{Name: "Deshi Graphic Tee", Category: "T-Shirts", Price: 750, StockQuantity: 5},
	}
	for i := range products {
		if _, err := s.InsertProduct(&products[i]); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	orders := []Order{
		{
			CustomerName: "Rahim Uddin", CustomerPhone: "01711222333",
			Total: 1300, Status: "shipped", PaymentStatus: "paid",
			PaymentMethod: "bkash", Address: "Mirpur 10, Dhaka",
			CreatedAt: now.Add(-48 * time.Hour),
			Items: []OrderItem{
				{ProductName: "Classic Black Tee", Size: "M", Quantity: 2, Price: 650},
			},
		},
		{
			CustomerName: "Farzana Akter", CustomerPhone: "01811444555",
			Total: 1850, Status: "processing", PaymentStatus: "pending",
			PaymentMethod: "cod", Address: "Agrabad, Chattogram",
			CreatedAt: now.Add(-20 * time.Hour),
			Items: []OrderItem{
				{ProductName: "Heritage Hoodie", Size: "L", Quantity: 1, Price: 1850},
			},
		},
		{
			CustomerName: "Sajid Hasan", CustomerPhone: "01911777888",
			Total: 950, Status: "pending", PaymentStatus: "pending",
			PaymentMethod: "cod", Address: "Uttara, Dhaka",
			CreatedAt: now.Add(-1 * time.Hour),
			Items: []OrderItem{
				{ProductName: "Everyday Polo", Size: "M", Quantity: 1, Price: 950},
			},
		},
	}
	for i := range orders {
		if _, err := s.InsertOrder(&orders[i]); err != nil {
			return err
		}
	}
	return nil
}
