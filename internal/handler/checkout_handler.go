package handler

import (
	"encoding/json"
	"net/http"
	"net/mail"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP。ゲストでも使えるのでOptionalAuth。
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.OptionalAuthJWT(cfg))

	g.POST("/preview", h.preview)
	g.POST("/process", h.process)
	g.POST("/create-payment-intent", h.createPaymentIntent)
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type PreviewRequest struct {
	Items           []checkoutItemRequest `json:"items"`
	ShippingAddress json.RawMessage       `json:"shipping_address"`
}

func (h *CheckoutHandler) preview(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "at least one item is required", Kind: usecase.KindValidation})
	}
	if len(req.ShippingAddress) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "shipping address is required", Kind: usecase.KindValidation})
	}

	out, err := h.uc.Preview(c.Request().Context(), usecase.PreviewInput{
		Items: toOrderLines(req.Items),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type ProcessRequest struct {
	Items           []checkoutItemRequest `json:"items"`
	ShippingAddress json.RawMessage       `json:"shipping_address"`
	BillingAddress  json.RawMessage       `json:"billing_address"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentRef      string                `json:"payment_ref"`
	GuestEmail      string                `json:"guest_email"`
}

func (h *CheckoutHandler) process(c echo.Context) error {
	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "at least one item is required", Kind: usecase.KindValidation})
	}
	if len(req.ShippingAddress) == 0 || len(req.BillingAddress) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "shipping and billing address are required", Kind: usecase.KindValidation})
	}

	switch req.PaymentMethod {
	case "stripe", "paypal", "square":
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "valid payment method required", Kind: usecase.KindValidation})
	}

	userID, _ := getUserIDFromContext(c)

	//ゲストはメールアドレス必須
	if userID == "" {
		if req.GuestEmail == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "guest email is required", Kind: usecase.KindValidation})
		}
		if _, err := mail.ParseAddress(req.GuestEmail); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "valid guest email required", Kind: usecase.KindValidation})
		}
	}

	out, err := h.uc.Process(c.Request().Context(), usecase.ProcessInput{
		Order: usecase.CreateOrderInput{
			UserID:          userID,
			GuestEmail:      req.GuestEmail,
			Items:           toOrderLines(req.Items),
			ShippingAddress: string(req.ShippingAddress),
			BillingAddress:  string(req.BillingAddress),
			PaymentMethod:   req.PaymentMethod,
		},
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (h *CheckoutHandler) createPaymentIntent(c echo.Context) error {
	var req PaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), req.Amount, req.Currency)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func toOrderLines(items []checkoutItemRequest) []usecase.OrderLineInput {
	lines := make([]usecase.OrderLineInput, 0, len(items))
	for _, it := range items {
		lines = append(lines, usecase.OrderLineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}
	return lines
}
