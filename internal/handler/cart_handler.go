package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ゲストカートのセッショントークンを運ぶヘッダ
const sessionHeader = "X-Session-ID"

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type UpdateCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type MergeCartRequest struct {
	SessionID string `json:"session_id"`
}

// /cart 以下を登録。never-authな操作もあるのでOptionalAuthを使う。
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.OptionalAuthJWT(cfg))

	g.GET("", h.getCart)
	g.GET("/count", h.getCount)
	g.POST("/add", h.addItem)
	g.PUT("/update", h.updateItem)
	g.DELETE("/remove/:productId", h.removeItem)
	g.DELETE("/clear", h.clearCart)
	g.POST("/merge", h.mergeCart)
}

// JWTがあればユーザー、無ければX-Session-IDヘッダでゲスト、
// どちらも無ければ匿名のCartIdentityを返す。
// 解決した持ち主は以後、引数で明示的に引き回す。
func resolveCartIdentity(c echo.Context) model.CartIdentity {
	if userID, ok := getUserIDFromContext(c); ok {
		return model.UserIdentity(userID)
	}
	if sid := c.Request().Header.Get(sessionHeader); sid != "" {
		return model.GuestIdentity(sid)
	}
	return model.CartIdentity{}
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), resolveCartIdentity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) getCount(c echo.Context) error {
	count, err := h.uc.CartCount(c.Request().Context(), resolveCartIdentity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": count})
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity must be between 1 and 99", Kind: usecase.KindValidation})
	}

	out, err := h.uc.AddItem(c.Request().Context(), resolveCartIdentity(c), usecase.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	var req UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	// 0は削除扱いなので許可する
	if req.Quantity < 0 || req.Quantity > 99 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity must be between 0 and 99", Kind: usecase.KindValidation})
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), resolveCartIdentity(c), req.ProductID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	productID := c.Param("productId")
	if productID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), resolveCartIdentity(c), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	out, err := h.uc.ClearCart(c.Request().Context(), resolveCartIdentity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ログイン直後に一度だけ呼ぶ。ログイン済みユーザー必須。
func (h *CartHandler) mergeCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: usecase.KindUnauthorized})
	}

	var req MergeCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session id required", Kind: usecase.KindValidation})
	}

	if err := h.uc.MergeGuestCart(c.Request().Context(), req.SessionID, userID); err != nil {
		return writeError(c, err)
	}

	//マージ後のユーザーカートを返す
	out, err := h.uc.GetCart(c.Request().Context(), model.UserIdentity(userID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
