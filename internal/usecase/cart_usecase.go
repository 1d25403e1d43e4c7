package usecase

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// CartUsecase はカートの業務ロジックです。
// 持ち主は model.CartIdentity（ユーザー or ゲストセッション）で受け取る。
type CartUsecase struct {
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// price は商品の「現在価格」を返す（カートには価格を保存しない）。
type CartItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

// GetCart はカート取得。匿名なら空のカートを返す（エラーではない）。
// 非公開・在庫0の商品の明細は表示からも合計からも外す。
// 明細自体は消さないので、在庫が戻れば再び見える。
func (u *CartUsecase) GetCart(ctx context.Context, id model.CartIdentity) (CartResponse, error) {
	if id.IsAnonymous() {
		return CartResponse{Items: []CartItemResponse{}, Total: 0}, nil
	}

	lines, err := u.cartRepo.ListByIdentity(ctx, id)
	if err != nil {
		return CartResponse{}, errInternal()
	}

	return u.buildCartResponse(ctx, lines)
}

type AddItemInput struct {
	ProductID string
	Quantity  int64
}

// AddItem はカートに追加（同一商品は数量加算）。
// 数量の上限（1〜99）はハンドラの入力バリデーションが担う。
func (u *CartUsecase) AddItem(ctx context.Context, id model.CartIdentity, in AddItemInput) (CartResponse, error) {
	if id.IsAnonymous() {
		return CartResponse{}, errInvalidIdentity()
	}
	if in.ProductID == "" {
		return CartResponse{}, errValidation("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, errValidation("invalid quantity")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, errNotFound("product not found")
	}
	if err != nil {
		return CartResponse{}, errInternal()
	}
	if !p.IsActive {
		return CartResponse{}, errNotFound("product not found")
	}

	// 既存数量を調べて、加算後の数量で在庫チェック
	var existingQty int64 = 0
	line, err := u.cartRepo.FindByIdentityAndProduct(ctx, id, in.ProductID)
	if err == nil {
		existingQty = line.Quantity
	} else if !errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, errInternal()
	}

	if existingQty+in.Quantity > p.StockQuantity {
		return CartResponse{}, errInsufficientStock(p.Name)
	}

	// Upsert（同一商品は加算）
	if err := u.cartRepo.UpsertByIdentityAndProduct(ctx, id, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, errInternal()
	}

	return u.GetCart(ctx, id)
}

// UpdateItem は数量の絶対値上書き。0以下は削除扱い。
// 在庫チェックは「指定された数量そのもの」で行う（加算ではない）。
func (u *CartUsecase) UpdateItem(ctx context.Context, id model.CartIdentity, productID string, quantity int64) (CartResponse, error) {
	if id.IsAnonymous() {
		return CartResponse{}, errInvalidIdentity()
	}
	if productID == "" {
		return CartResponse{}, errValidation("invalid product_id")
	}

	if quantity <= 0 {
		return u.RemoveItem(ctx, id, productID)
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, errNotFound("product not found")
	}
	if err != nil {
		return CartResponse{}, errInternal()
	}
	if !p.IsActive {
		return CartResponse{}, errNotFound("product not found")
	}
	if quantity > p.StockQuantity {
		return CartResponse{}, errInsufficientStock(p.Name)
	}

	if err := u.cartRepo.SetQuantity(ctx, id, productID, quantity); err != nil {
		//行が無ければ上書き対象なし。何もしないでカートを返す
		if !errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, errInternal()
		}
	}

	return u.GetCart(ctx, id)
}

// RemoveItem は冪等な削除。明細が無くてもエラーにしない。
func (u *CartUsecase) RemoveItem(ctx context.Context, id model.CartIdentity, productID string) (CartResponse, error) {
	if id.IsAnonymous() {
		return CartResponse{}, errInvalidIdentity()
	}

	if err := u.cartRepo.DeleteByIdentityAndProduct(ctx, id, productID); err != nil {
		return CartResponse{}, errInternal()
	}

	return u.GetCart(ctx, id)
}

// ClearCart は持ち主の明細を全削除して空のカートを返す。
func (u *CartUsecase) ClearCart(ctx context.Context, id model.CartIdentity) (CartResponse, error) {
	if id.IsAnonymous() {
		return CartResponse{}, errInvalidIdentity()
	}

	if err := u.cartRepo.ClearByIdentity(ctx, id); err != nil {
		return CartResponse{}, errInternal()
	}

	return CartResponse{Items: []CartItemResponse{}, Total: 0}, nil
}

// CartCount は数量の合計。在庫・公開状態で絞らない生の値。匿名は0。
func (u *CartUsecase) CartCount(ctx context.Context, id model.CartIdentity) (int64, error) {
	if id.IsAnonymous() {
		return 0, nil
	}

	count, err := u.cartRepo.SumQuantities(ctx, id)
	if err != nil {
		return 0, errInternal()
	}
	return count, nil
}

// MergeGuestCart はログイン直後に一度だけ呼ぶ。
// ユーザーが同じ商品を持っていれば数量を加算してゲスト明細を消し、
// 持っていなければゲスト明細の持ち主をユーザーへ付け替える。
// 在庫の再チェックはしない（購入ではなくデータ移行）。
// 冪等ではない：同じセッションで二度呼ぶと二重加算になる。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, sessionID string, userID string) error {
	if sessionID == "" {
		return errValidation("session id required")
	}
	if userID == "" {
		return errValidation("user id required")
	}

	guest := model.GuestIdentity(sessionID)
	user := model.UserIdentity(userID)

	lines, err := u.cartRepo.ListByIdentity(ctx, guest)
	if err != nil {
		return errInternal()
	}
	if len(lines) == 0 {
		return nil
	}

	for _, line := range lines {
		_, err := u.cartRepo.FindByIdentityAndProduct(ctx, user, line.ProductID)
		if err == nil {
			//ユーザー側に加算して、ゲスト明細を消す
			if err := u.cartRepo.UpsertByIdentityAndProduct(ctx, user, line.ProductID, line.Quantity); err != nil {
				return errInternal()
			}
			if err := u.cartRepo.DeleteByID(ctx, line.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return errInternal()
			}
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return errInternal()
		}

		//持ち主の付け替え（1行UPDATE）
		if err := u.cartRepo.ReassignToUser(ctx, line.ID, userID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return errInternal()
		}
	}

	return nil
}

// 明細をまとめてCartResponseを作る。
// 商品が消えている明細だけ読み飛ばす。DBエラーはそのまま失敗にする
// （明細が黙って欠けた合計を返さない）。
func (u *CartUsecase) buildCartResponse(ctx context.Context, lines []model.CartLine) (CartResponse, error) {
	respItems := make([]CartItemResponse, 0, len(lines))
	var total int64 = 0

	for _, line := range lines {
		p, err := u.productRepo.FindByID(ctx, line.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return CartResponse{}, errInternal()
		}
		if !p.IsActive || p.StockQuantity <= 0 {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})

		total += p.Price * line.Quantity
	}

	return CartResponse{Items: respItems, Total: total}, nil
}
