package repository

import (
	"context"

	"app/internal/domain/model"
)

// カート明細の永続化。明細は CartIdentity（ユーザー or セッション）単位。
type CartRepository interface {
	ListByIdentity(ctx context.Context, id model.CartIdentity) ([]model.CartLine, error)
	FindByIdentityAndProduct(ctx context.Context, id model.CartIdentity, productID string) (model.CartLine, error)

	// 同一商品は数量加算、無ければ新規作成
	UpsertByIdentityAndProduct(ctx context.Context, id model.CartIdentity, productID string, addQty int64) error

	// 数量を絶対値で上書き。行が無ければ ErrNotFound
	SetQuantity(ctx context.Context, id model.CartIdentity, productID string, qty int64) error

	// 冪等な削除（行が無くてもエラーにしない）
	DeleteByIdentityAndProduct(ctx context.Context, id model.CartIdentity, productID string) error

	ClearByIdentity(ctx context.Context, id model.CartIdentity) error

	// 数量の合計（在庫・公開状態では絞らない生の値）
	SumQuantities(ctx context.Context, id model.CartIdentity) (int64, error)

	// マージ用：ゲスト明細の持ち主をユーザーへ付け替える（1行UPDATE）
	ReassignToUser(ctx context.Context, lineID string, userID string) error
	DeleteByID(ctx context.Context, lineID string) error
}
