package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// OrderUsecase は注文の作成・参照・ステータス更新を担う。
// 注文作成だけが複数テーブルにまたがるトランザクション。
type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	auditRepo  repo.AuditLogRepository
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	auditRepo repo.AuditLogRepository,
) *OrderUsecase {
	return &OrderUsecase{
		tx:         tx,
		orders:     orders,
		orderItems: orderItems,
		auditRepo:  auditRepo,
	}
}

type OrderLineInput struct {
	ProductID string
	Quantity  int64
}

type CreateOrderInput struct {
	UserID          string // 会員ならセット
	GuestEmail      string // 会員でなければ必須
	Items           []OrderLineInput
	ShippingAddress string // JSON文字列（この層では中身を見ない）
	BillingAddress  string
	PaymentMethod   string
}

type OrderItemOutput struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID              string            `json:"id"`
	UserID          *string           `json:"user_id,omitempty"`
	GuestEmail      *string           `json:"guest_email,omitempty"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentMethod   string            `json:"payment_method"`
	TotalAmount     int64             `json:"total_amount"`
	ShippingAddress json.RawMessage   `json:"shipping_address"`
	BillingAddress  json.RawMessage   `json:"billing_address"`
	TrackingNumber  *string           `json:"tracking_number,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemOutput `json:"items"`
}

// CreateOrder は注文を原子的に作る。
// 在庫チェック→注文作成→明細作成→在庫減算→会員カートのクリアまでを
// 1つのトランザクションで行い、途中で失敗したら全て巻き戻す。
// 価格はクライアントの値ではなく、このトランザクション内で読んだDBの値を使う。
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (OrderOutput, error) {
	if len(in.Items) == 0 {
		return OrderOutput{}, errValidation("at least one item is required")
	}
	if in.UserID == "" && in.GuestEmail == "" {
		return OrderOutput{}, errValidation("guest email is required")
	}
	if in.PaymentMethod == "" {
		return OrderOutput{}, errValidation("payment method is required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var total int64 = 0

		for _, item := range in.Items {
			if item.Quantity < 1 {
				return errValidation("invalid quantity")
			}

			//商品の再読込（公開チェック）
			p, err := r.Products().FindByID(ctx, item.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound(fmt.Sprintf("product %s not found", item.ProductID))
			}
			if err != nil {
				return err
			}
			if !p.IsActive {
				return errNotFound(fmt.Sprintf("product %s not found", item.ProductID))
			}

			//在庫減算（足りないなら false）。条件付きUPDATEの行ロックが
			//コミットまで残るので、同じ商品への同時注文はここで直列化される
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return errInsufficientStock(p.Name)
			}

			//価格スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           item.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPrice:           p.Price,
				Quantity:            item.Quantity,
			})

			total += p.Price * item.Quantity
		}

		// 注文作成
		order := model.Order{
			TotalAmount:     total,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			PaymentMethod:   in.PaymentMethod,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  in.BillingAddress,
		}
		if in.UserID != "" {
			order.UserID = &in.UserID
		} else {
			order.GuestEmail = &in.GuestEmail
		}

		created, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}

		//注文明細一括作成
		items, err := r.OrderItems().CreateBulk(ctx, created.ID, orderItems)
		if err != nil {
			return err
		}

		//会員ならカートをクリア（ゲストのセッション明細には触らない）
		if in.UserID != "" {
			if err := r.Carts().ClearByIdentity(ctx, model.UserIdentity(in.UserID)); err != nil {
				return err
			}
		}

		out = toOrderOutput(created, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, mapOrderTxError(err)
	}
	return out, nil
}

// GetOrder はIDで注文を取得（明細込み）。
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID string) (OrderOutput, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, errNotFound("order not found")
	}
	if err != nil {
		return OrderOutput{}, errInternal()
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, errInternal()
	}

	return toOrderOutput(o, items), nil
}

// GetOrderForUser は本人（または管理者）だけに注文詳細を返す。
func (u *OrderUsecase) GetOrderForUser(ctx context.Context, orderID string, userID string, isAdmin bool) (OrderOutput, error) {
	out, err := u.GetOrder(ctx, orderID)
	if err != nil {
		return OrderOutput{}, err
	}

	if !isAdmin {
		if out.UserID == nil || *out.UserID != userID {
			return OrderOutput{}, NewHTTPError(http.StatusForbidden, KindForbidden, "access denied")
		}
	}

	return out, nil
}

// ListOrdersByUser は注文履歴（新しい順、明細込み）。
func (u *OrderUsecase) ListOrdersByUser(ctx context.Context, userID string) ([]OrderOutput, error) {
	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return []OrderOutput{}, errInternal()
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, errInternal()
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

// 追跡用に返す絞った情報
type TrackingOutput struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	TrackingNumber *string   `json:"tracking_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TrackOrder は認証なしの注文追跡。ゲスト注文はメールアドレスの一致を確認する。
func (u *OrderUsecase) TrackOrder(ctx context.Context, orderID string, email string) (TrackingOutput, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return TrackingOutput{}, errNotFound("order not found")
	}
	if err != nil {
		return TrackingOutput{}, errInternal()
	}

	if o.UserID == nil && o.GuestEmail != nil && *o.GuestEmail != email {
		return TrackingOutput{}, NewHTTPError(http.StatusForbidden, KindForbidden, "access denied")
	}

	return TrackingOutput{
		ID:             o.ID,
		Status:         string(o.Status),
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
	}, nil
}

type DashboardStatsOutput struct {
	TotalOrders    int64            `json:"total_orders"`
	TotalRevenue   int64            `json:"total_revenue"`
	CountsByStatus map[string]int64 `json:"counts_by_status"`
}

// GetDashboardStats は管理ダッシュボード用の集計。
func (u *OrderUsecase) GetDashboardStats(ctx context.Context) (DashboardStatsOutput, error) {
	stats, err := u.orders.GetStats(ctx)
	if err != nil {
		return DashboardStatsOutput{}, errInternal()
	}

	return DashboardStatsOutput{
		TotalOrders:    stats.TotalOrders,
		TotalRevenue:   stats.TotalRevenue,
		CountsByStatus: stats.CountsByStatus,
	}, nil
}

// ListAdmin は管理者用の注文一覧。
func (u *OrderUsecase) ListAdmin(ctx context.Context, f repo.OrderListFilter) ([]OrderOutput, int64, error) {
	if f.Status != "" && !model.ValidOrderStatus(f.Status) {
		return nil, 0, errValidation("invalid status")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return nil, 0, errInternal()
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, 0, errInternal()
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, total, nil
}

// UpdateOrderStatus は配送ステータスの更新。
// tracking_numberが無ければ既存値を保持する（COALESCE更新）。
// ステータスの遷移順序は強制しない。値の妥当性だけ見る。
// cancelledへの変更は明細分の在庫を戻す。戻しと更新は同一トランザクション。
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, actorUserID string, orderID string, status string, trackingNumber *string) (OrderOutput, error) {
	if !model.ValidOrderStatus(status) {
		return OrderOutput{}, errValidation("invalid status")
	}

	before, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, errNotFound("order not found")
	}
	if err != nil {
		return OrderOutput{}, errInternal()
	}

	var updated model.Order
	if model.OrderStatus(status) == model.OrderStatusCancelled && before.Status != model.OrderStatusCancelled {
		updated, err = u.cancelWithRestock(ctx, orderID, trackingNumber)
	} else {
		updated, err = u.orders.UpdateStatus(ctx, orderID, model.OrderStatus(status), trackingNumber)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, errNotFound("order not found")
	}
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		return OrderOutput{}, errInternal()
	}

	//監査ログ（失敗しても更新自体は成立している）
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   fmt.Sprintf(`{"status":%q}`, before.Status),
		AfterJSON:    fmt.Sprintf(`{"status":%q}`, updated.Status),
	})

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, errInternal()
	}
	return toOrderOutput(updated, items), nil
}

// キャンセル処理。注文明細の数量を在庫へ戻してからステータスを更新する。
// 途中で失敗したら在庫も戻らない（部分的な戻しは残さない）。
func (u *OrderUsecase) cancelWithRestock(ctx context.Context, orderID string, trackingNumber *string) (model.Order, error) {
	var updated model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		updated, err = r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled, trackingNumber)
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, mapOrderTxError(err)
	}

	return updated, nil
}

// UpdatePaymentStatus は外部ゲートウェイの結果を記録する。
// 検証自体は呼び出し側が済ませている前提。
// payment_refが無ければ既存値を保持する（COALESCE更新）。
// 同じステータスで何度呼んでも結果は変わらない。
func (u *OrderUsecase) UpdatePaymentStatus(ctx context.Context, orderID string, status string, paymentRef *string) (OrderOutput, error) {
	if !model.ValidPaymentStatus(status) {
		return OrderOutput{}, errValidation("invalid payment_status")
	}

	updated, err := u.orders.UpdatePaymentStatus(ctx, orderID, model.PaymentStatus(status), paymentRef)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, errNotFound("order not found")
	}
	if err != nil {
		return OrderOutput{}, errInternal()
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, errInternal()
	}
	return toOrderOutput(updated, items), nil
}

// トランザクション内のエラーを呼び出し側向けに変換する。
// 直列化失敗だけがリトライ安全（部分コミットは残らない）。
func mapOrderTxError(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if isSerializationConflict(err) {
		return errConflict("transaction conflict, retry the order")
	}
	return errInternal()
}

func isSerializationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001: serialization_failure / 40P01: deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		GuestEmail:      o.GuestEmail,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentMethod:   o.PaymentMethod,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: json.RawMessage(o.ShippingAddress),
		BillingAddress:  json.RawMessage(o.BillingAddress),
		TrackingNumber:  o.TrackingNumber,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
