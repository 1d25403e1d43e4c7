package usecase

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// 外部決済ゲートウェイ。実装はinfra側（本物のSDK連携はスコープ外）。
type PaymentIntent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (PaymentIntent, error)
	// 決済ハンドルが支払い済みかどうか
	Verify(ctx context.Context, paymentRef string) (bool, error)
}

// 注文確定イベントの発行先（未設定ならno-op実装を渡す）
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order OrderOutput) error
}

// CheckoutUsecase は決済ゲートウェイと注文作成の橋渡し。
// 決済の検証→注文作成→支払いステータス反映、の順で進める。
type CheckoutUsecase struct {
	gateway     PaymentGateway
	orderUC     *OrderUsecase
	productRepo repo.ProductRepository
	publisher   OrderEventPublisher
	logger      *zap.Logger
}

func NewCheckoutUsecase(
	gateway PaymentGateway,
	orderUC *OrderUsecase,
	productRepo repo.ProductRepository,
	publisher OrderEventPublisher,
	logger *zap.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		gateway:     gateway,
		orderUC:     orderUC,
		productRepo: productRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

type ShippingRate struct {
	Method        string `json:"method"`
	Cost          int64  `json:"cost"`
	EstimatedDays string `json:"estimated_days"`
	Carrier       string `json:"carrier"`
}

// 配送方法は固定メニュー。先頭が既定（スタンダード）。
func shippingRates() []ShippingRate {
	return []ShippingRate{
		{Method: "standard", Cost: baseShippingCost, EstimatedDays: "5-7", Carrier: "USPS"},
		{Method: "express", Cost: 1999, EstimatedDays: "2-3", Carrier: "FedEx"},
		{Method: "overnight", Cost: 3999, EstimatedDays: "1", Carrier: "FedEx"},
	}
}

type PreviewInput struct {
	Items []OrderLineInput
}

type PreviewOutput struct {
	Subtotal         int64          `json:"subtotal"`
	Shipping         int64          `json:"shipping"`
	Tax              int64          `json:"tax"`
	Total            int64          `json:"total"`
	ShippingRates    []ShippingRate `json:"shipping_rates"`
	SelectedShipping ShippingRate   `json:"selected_shipping"`
}

// 税率8%（固定。地域別の正確な税計算はスコープ外）
const taxRateBP = 800 // basis points

// 送料の基準額（セント）
const baseShippingCost = 999

// Preview は小計・送料・税の見積もり。価格はDBの現在値を使う。
func (u *CheckoutUsecase) Preview(ctx context.Context, in PreviewInput) (PreviewOutput, error) {
	if len(in.Items) == 0 {
		return PreviewOutput{}, errValidation("at least one item is required")
	}

	var subtotal int64 = 0
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return PreviewOutput{}, errValidation("invalid quantity")
		}
		p, err := u.productRepo.FindByID(ctx, item.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return PreviewOutput{}, errNotFound("product not found")
		}
		if err != nil {
			return PreviewOutput{}, errInternal()
		}
		if !p.IsActive {
			return PreviewOutput{}, errNotFound("product not found")
		}
		subtotal += p.Price * item.Quantity
	}

	rates := shippingRates()
	selected := rates[0]
	tax := subtotal * taxRateBP / 10000

	return PreviewOutput{
		Subtotal:         subtotal,
		Shipping:         selected.Cost,
		Tax:              tax,
		Total:            subtotal + selected.Cost + tax,
		ShippingRates:    rates,
		SelectedShipping: selected,
	}, nil
}

// CreatePaymentIntent は決済ハンドルの発行。最低50セント。
func (u *CheckoutUsecase) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (PaymentIntent, error) {
	if amount < 50 {
		return PaymentIntent{}, errValidation("amount must be at least 50")
	}
	switch currency {
	case "", "usd", "eur", "gbp":
	default:
		return PaymentIntent{}, errValidation("invalid currency")
	}
	if currency == "" {
		currency = "usd"
	}

	intent, err := u.gateway.CreateIntent(ctx, amount, currency)
	if err != nil {
		return PaymentIntent{}, errInternal()
	}
	return intent, nil
}

type ProcessInput struct {
	Order      CreateOrderInput
	PaymentRef string // 決済ハンドル。空なら支払いは後続で反映する
}

// Process はチェックアウト本体。
// 決済ハンドルがあれば先にゲートウェイで検証し、注文作成後に完了を記録する。
func (u *CheckoutUsecase) Process(ctx context.Context, in ProcessInput) (OrderOutput, error) {
	if in.PaymentRef != "" {
		ok, err := u.gateway.Verify(ctx, in.PaymentRef)
		if err != nil {
			return OrderOutput{}, errInternal()
		}
		if !ok {
			return OrderOutput{}, errValidation("payment verification failed")
		}
	}

	order, err := u.orderUC.CreateOrder(ctx, in.Order)
	if err != nil {
		return OrderOutput{}, err
	}

	if in.PaymentRef != "" {
		ref := in.PaymentRef
		order, err = u.orderUC.UpdatePaymentStatus(ctx, order.ID, string(model.PaymentStatusCompleted), &ref)
		if err != nil {
			return OrderOutput{}, err
		}
	}

	//イベント発行は注文の成否に影響させない
	if err := u.publisher.PublishOrderPlaced(ctx, order); err != nil {
		u.logger.Warn("order event publish failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	u.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int64("total_amount", order.TotalAmount),
		zap.String("payment_status", order.PaymentStatus))

	return order, nil
}
