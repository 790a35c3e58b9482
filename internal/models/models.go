package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderStatuses lists every recognized status, used in error messages.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{StatusNew, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
}

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string    `gorm:"uniqueIndex;not null"      json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null"      json:"slug"`
	Description string    `gorm:"type:text"                 json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Flower struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"                       json:"id"`
	Name          string          `gorm:"not null"                                       json:"name"`
	Description   string          `gorm:"type:text"                                      json:"description,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null"                    json:"price"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0"   json:"stock_quantity"`
	ImageURL      string          `json:"image_url,omitempty"`
	Popularity    int             `gorm:"not null;default:0"                             json:"popularity"`
	IsAvailable   bool            `gorm:"not null;default:true"                          json:"is_available"`
	CategoryID    *uint           `gorm:"index"                                          json:"category_id"`
	Category      *Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"  json:"category,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	Number          string          `gorm:"uniqueIndex;not null"          json:"number"`
	UserID          *uint           `gorm:"index"                         json:"user_id"`
	User            *User           `gorm:"constraint:OnDelete:SET NULL"  json:"user,omitempty"`
	Status          OrderStatus     `gorm:"type:varchar(16);not null"     json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"total_amount"`
	CustomerName    string          `gorm:"not null"                      json:"customer_name"`
	CustomerPhone   string          `gorm:"not null"                      json:"customer_phone"`
	CustomerAddress string          `gorm:"type:text;not null"            json:"customer_address"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Notes           string          `gorm:"type:text"                     json:"notes,omitempty"`
	Items           []OrderItem     `gorm:"constraint:OnDelete:CASCADE"   json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem snapshots the flower price at order time; UnitPrice is
// decoupled from the flower's current price from then on.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	OrderID   uint            `gorm:"index;not null"                json:"order_id"`
	FlowerID  uint            `gorm:"not null"                      json:"flower_id"`
	Flower    *Flower         `gorm:"constraint:OnDelete:RESTRICT"  json:"flower,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0"   json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

// User rows come from two signup paths: email+password and Telegram.
// Both identifiers are nullable so either path can stand alone.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        *string   `gorm:"uniqueIndex"              json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	TelegramID   *string   `gorm:"uniqueIndex"              json:"telegram_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	IsAdmin      bool      `gorm:"not null;default:false"   json:"is_admin"`
	IsActive     bool      `gorm:"not null;default:true"    json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    *uint     `gorm:"index"                                      json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:SET NULL"               json:"user,omitempty"`
	FlowerID  uint      `gorm:"index;not null"                             json:"flower_id"`
	Flower    *Flower   `gorm:"constraint:OnDelete:CASCADE"                json:"-"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text"                                  json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
