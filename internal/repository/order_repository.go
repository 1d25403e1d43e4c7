package repository

import (
	"context"

	"app/internal/domain/model"
)

// 管理者用の注文一覧フィルタ
type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
}

// 管理ダッシュボード用の集計値
type OrderStats struct {
	TotalOrders    int64
	TotalRevenue   int64 // payment_status=completed の売上合計
	CountsByStatus map[string]int64
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (model.Order, error)
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Order, error)
	ListAdmin(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	// tracking_number が nil のときは既存値を保持する（COALESCE更新）
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, trackingNumber *string) (model.Order, error)

	// payment_ref が nil のときは既存値を保持する（COALESCE更新）
	UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus, paymentRef *string) (model.Order, error)

	GetStats(ctx context.Context) (OrderStats, error)
}
