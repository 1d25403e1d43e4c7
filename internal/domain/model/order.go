package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// 注文。user_id（会員）か guest_email（ゲスト）のどちらか一方が必ず入る。
// total_amount は作成時に確定し、その後は再計算しない。
// 作成後に変わるのは status / payment_status / tracking_number / payment_ref だけ。
type Order struct {
	ID              string        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          *string       `gorm:"type:uuid;index" json:"user_id,omitempty"`
	GuestEmail      *string       `gorm:"type:varchar(255)" json:"guest_email,omitempty"`
	TotalAmount     int64         `gorm:"not null" json:"total_amount"`
	Status          OrderStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod   string        `gorm:"type:varchar(50);not null" json:"payment_method"`
	PaymentRef      *string       `gorm:"type:varchar(255)" json:"payment_ref,omitempty"`
	ShippingAddress string        `gorm:"type:text;not null" json:"shipping_address"`
	BillingAddress  string        `gorm:"type:text;not null" json:"billing_address"`
	TrackingNumber  *string       `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// statusとして受け付ける値か
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// payment_statusとして受け付ける値か
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}
