package domain

import "time"

type Category string

const (
	CategoryMen    Category = "Men"
	CategoryWomen  Category = "Women"
	CategoryKids   Category = "Kids"
	CategoryUnisex Category = "Unisex"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryMen, CategoryWomen, CategoryKids, CategoryUnisex:
		return true
	}
	return false
}

type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

func ValidSize(s Size) bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	}
	return false
}

// Product prices are stored in minor currency units (cents/paise).
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Image       string    `json:"image"`
	Category    Category  `json:"category"`
	Sizes       []Size    `json:"sizes"`
	Stock       int       `json:"stock"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) HasSize(s Size) bool {
	for _, have := range p.Sizes {
		if have == s {
			return true
		}
	}
	return false
}

// CartLine is one (product, size, quantity) entry. A cart holds at most one
// line per (product_id, size) pair.
type CartLine struct {
	ProductID string `json:"product_id"`
	Size      Size   `json:"size"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus reports membership in the fixed status set. Transitions
// themselves are not restricted: an admin may move an order between any two
// valid statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderLine is a point-in-time copy of the purchased product. Later product
// edits never alter historical orders.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      Size   `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Image     string `json:"image"`
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Lines           []OrderLine `json:"items"`
	TotalPrice      int64       `json:"total_price"`
	ShippingAddress Address     `json:"shipping_address"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}
