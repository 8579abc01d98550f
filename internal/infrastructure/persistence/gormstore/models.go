package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
)

type categoryModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null;uniqueIndex"`
	Slug string `gorm:"size:50;not null;uniqueIndex"`
}

func (categoryModel) TableName() string { return "categories" }

type productModel struct {
	ID             uint            `gorm:"primaryKey"`
	CategoryID     uint            `gorm:"not null;index"`
	Category       categoryModel   `gorm:"constraint:OnDelete:CASCADE"`
	Name           string          `gorm:"size:255;not null"`
	Description    string          `gorm:"type:text;not null"`
	Price          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock          int             `gorm:"not null"`
	Image          string          `gorm:"size:255"`
	ExecutableFile string          `gorm:"size:255"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time
}

func (productModel) TableName() string { return "products" }

type userModel struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"size:150;not null;uniqueIndex"`
	Email        string    `gorm:"size:254"`
	PasswordHash string    `gorm:"column:password;size:128;not null"`
	IsStaff      bool      `gorm:"not null"`
	IsActive     bool      `gorm:"not null"`
	DateJoined   time.Time `gorm:"autoCreateTime"`
}

func (userModel) TableName() string { return "users" }

type orderModel struct {
	ID         uint             `gorm:"primaryKey"`
	UserID     uint             `gorm:"not null;index"`
	User       userModel        `gorm:"constraint:OnDelete:CASCADE"`
	TotalPrice decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	CreatedAt  time.Time        `gorm:"index"`
	Items      []orderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"not null;index"`
	ProductID uint            `gorm:"not null;index"`
	Product   productModel    `gorm:"constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (orderItemModel) TableName() string { return "order_items" }

type paymentModel struct {
	ID                uint        `gorm:"primaryKey"`
	UserID            uint        `gorm:"not null;index"`
	User              userModel   `gorm:"constraint:OnDelete:CASCADE"`
	OrderID           *uint       `gorm:"index"`
	Order             *orderModel `gorm:"constraint:OnDelete:SET NULL"`
	PhoneNumber       string      `gorm:"size:15;not null"`
	Amount            int64       `gorm:"not null"`
	MerchantRequestID string      `gorm:"size:100"`
	CheckoutRequestID string      `gorm:"size:100;not null;uniqueIndex"`
	Status            string      `gorm:"size:20;not null;index"`
	ResultCode        *int        `gorm:"default:null"`
	ResultDesc        string      `gorm:"size:255"`
	ReceiptNumber     string      `gorm:"column:mpesa_receipt_number;size:50"`
	CreatedAt         time.Time   `gorm:"index"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime"`
}

func (paymentModel) TableName() string { return "payments" }

func models() []any {
	return []any{
		&categoryModel{},
		&productModel{},
		&userModel{},
		&orderModel{},
		&orderItemModel{},
		&paymentModel{},
	}
}
