package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// GetCart / CartCount
// =====================

func TestCartUsecase_GetCart_Anonymous(t *testing.T) {
	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	out, err := uc.GetCart(context.Background(), model.CartIdentity{})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))
	assert.Equal(t, int64(0), out.Total)

	cartRepo.AssertNotCalled(t, "ListByIdentity", mock.Anything, mock.Anything)
}

// 非公開・在庫0の明細は表示からも合計からも外れる。明細自体は消えない。
func TestCartUsecase_GetCart_HidesInactiveAndOutOfStock(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{
		{ID: "l1", ProductID: "pA", Quantity: 2},
		{ID: "l2", ProductID: "pB", Quantity: 1},
		{ID: "l3", ProductID: "pC", Quantity: 3},
	}, nil)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Visible", Price: 1000, StockQuantity: 10, IsActive: true,
	}, nil)
	productRepo.On("FindByID", mock.Anything, "pB").Return(model.Product{
		ID: "pB", Name: "Hidden", Price: 500, StockQuantity: 10, IsActive: false,
	}, nil)
	productRepo.On("FindByID", mock.Anything, "pC").Return(model.Product{
		ID: "pC", Name: "SoldOut", Price: 700, StockQuantity: 0, IsActive: true,
	}, nil)

	out, err := uc.GetCart(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, "pA", out.Items[0].ProductID)
	assert.Equal(t, int64(2000), out.Total)
}

// 商品が消えている明細は黙って読み飛ばす
func TestCartUsecase_GetCart_SkipsMissingProduct(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{
		{ID: "l1", ProductID: "pA", Quantity: 1},
		{ID: "l2", ProductID: "pGone", Quantity: 2},
	}, nil)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", Price: 1000, StockQuantity: 10, IsActive: true,
	}, nil)
	productRepo.On("FindByID", mock.Anything, "pGone").Return(model.Product{}, repo.ErrNotFound)

	out, err := uc.GetCart(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, int64(1000), out.Total)
}

// 商品参照のDBエラーは失敗にする。明細が欠けた合計を正常応答として返さない
func TestCartUsecase_GetCart_ProductLookupError(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{
		{ID: "l1", ProductID: "pA", Quantity: 1},
	}, nil)
	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{}, assert.AnError)

	_, err := uc.GetCart(ctx, user)
	assertKind(t, err, usecase.KindInternal)
}

// カートのバッジ数は絞り込まない生の合計
func TestCartUsecase_CartCount_RawSum(t *testing.T) {
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	cartRepo.On("SumQuantities", mock.Anything, user).Return(int64(7), nil)

	count, err := uc.CartCount(context.Background(), user)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestCartUsecase_CartCount_Anonymous(t *testing.T) {
	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	count, err := uc.CartCount(context.Background(), model.CartIdentity{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	cartRepo.AssertNotCalled(t, "SumQuantities", mock.Anything, mock.Anything)
}

// =====================
// AddItem
// =====================

func TestCartUsecase_AddItem_Anonymous(t *testing.T) {
	uc := usecase.NewCartUsecase(new(CartRepoMock), new(ProductRepoMock))

	_, err := uc.AddItem(context.Background(), model.CartIdentity{}, usecase.AddItemInput{ProductID: "pA", Quantity: 1})
	assertKind(t, err, usecase.KindInvalidIdentity)
}

func TestCartUsecase_AddItem_NewLine(t *testing.T) {
	ctx := context.Background()
	guest := model.GuestIdentity("sess-1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", Price: 1000, StockQuantity: 10, IsActive: true,
	}, nil)
	cartRepo.On("FindByIdentityAndProduct", mock.Anything, guest, "pA").Return(model.CartLine{}, repo.ErrNotFound)
	cartRepo.On("UpsertByIdentityAndProduct", mock.Anything, guest, "pA", int64(2)).Return(nil)
	cartRepo.On("ListByIdentity", mock.Anything, guest).Return([]model.CartLine{
		{ID: "l1", ProductID: "pA", Quantity: 2},
	}, nil)

	out, err := uc.AddItem(ctx, guest, usecase.AddItemInput{ProductID: "pA", Quantity: 2})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, int64(2), out.Items[0].Quantity)
	assert.Equal(t, int64(2000), out.Total)

	cartRepo.AssertExpectations(t)
}

// 同一商品の再追加は新しい行を作らず数量加算
func TestCartUsecase_AddItem_SameProductAccumulates(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", Price: 1000, StockQuantity: 10, IsActive: true,
	}, nil)
	cartRepo.On("FindByIdentityAndProduct", mock.Anything, user, "pA").Return(model.CartLine{
		ID: "l1", ProductID: "pA", Quantity: 2,
	}, nil)
	cartRepo.On("UpsertByIdentityAndProduct", mock.Anything, user, "pA", int64(3)).Return(nil)
	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{
		{ID: "l1", ProductID: "pA", Quantity: 5},
	}, nil)

	out, err := uc.AddItem(ctx, user, usecase.AddItemInput{ProductID: "pA", Quantity: 3})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, int64(5), out.Items[0].Quantity)

	cartRepo.AssertExpectations(t)
}

// 在庫チェックは「既存数量＋追加数量」で行う
func TestCartUsecase_AddItem_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", Price: 1000, StockQuantity: 4, IsActive: true,
	}, nil)
	cartRepo.On("FindByIdentityAndProduct", mock.Anything, user, "pA").Return(model.CartLine{
		ID: "l1", ProductID: "pA", Quantity: 2,
	}, nil)

	_, err := uc.AddItem(ctx, user, usecase.AddItemInput{ProductID: "pA", Quantity: 3})
	assertKind(t, err, usecase.KindInsufficientStock)
	assertErrContains(t, err, "Coffee")

	cartRepo.AssertNotCalled(t, "UpsertByIdentityAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_AddItem_InactiveProduct(t *testing.T) {
	user := model.UserIdentity("u1")

	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(new(CartRepoMock), productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", IsActive: false,
	}, nil)

	_, err := uc.AddItem(context.Background(), user, usecase.AddItemInput{ProductID: "pA", Quantity: 1})
	assertKind(t, err, usecase.KindNotFound)
}

// =====================
// UpdateItem / RemoveItem
// =====================

// 数量0は削除扱い。商品の存在チェックもしない
func TestCartUsecase_UpdateItem_ZeroQuantityRemoves(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	cartRepo.On("DeleteByIdentityAndProduct", mock.Anything, user, "pA").Return(nil)
	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{}, nil)

	out, err := uc.UpdateItem(ctx, user, "pA", 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))

	productRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	cartRepo.AssertExpectations(t)
}

// 上書きの在庫チェックは指定数量そのもの（既存数量への加算ではない）
func TestCartUsecase_UpdateItem_AbsoluteStockCheck(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", Price: 1000, StockQuantity: 5, IsActive: true,
	}, nil)
	cartRepo.On("SetQuantity", mock.Anything, user, "pA", int64(5)).Return(nil)
	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{
		{ID: "l1", ProductID: "pA", Quantity: 5},
	}, nil)

	out, err := uc.UpdateItem(ctx, user, "pA", 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.Items[0].Quantity)

	cartRepo.AssertExpectations(t)
}

func TestCartUsecase_UpdateItem_OverStock(t *testing.T) {
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", StockQuantity: 5, IsActive: true,
	}, nil)

	_, err := uc.UpdateItem(context.Background(), user, "pA", 6)
	assertKind(t, err, usecase.KindInsufficientStock)

	cartRepo.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 対象行が無ければ何もせずカートを返す
func TestCartUsecase_UpdateItem_MissingLineIsNoop(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, productRepo)

	productRepo.On("FindByID", mock.Anything, "pA").Return(model.Product{
		ID: "pA", Name: "Coffee", StockQuantity: 5, IsActive: true,
	}, nil)
	cartRepo.On("SetQuantity", mock.Anything, user, "pA", int64(3)).Return(repo.ErrNotFound)
	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{}, nil)

	out, err := uc.UpdateItem(ctx, user, "pA", 3)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))
}

// 削除は冪等。行が無くてもエラーにしない
func TestCartUsecase_RemoveItem_Idempotent(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	cartRepo.On("DeleteByIdentityAndProduct", mock.Anything, user, "missing").Return(nil)
	cartRepo.On("ListByIdentity", mock.Anything, user).Return([]model.CartLine{}, nil)

	_, err := uc.RemoveItem(ctx, user, "missing")
	assert.NoError(t, err)
}

func TestCartUsecase_ClearCart(t *testing.T) {
	ctx := context.Background()
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	cartRepo.On("ClearByIdentity", mock.Anything, user).Return(nil)

	out, err := uc.ClearCart(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out.Items))
	assert.Equal(t, int64(0), out.Total)

	cartRepo.AssertExpectations(t)
}

// =====================
// MergeGuestCart
// =====================

// ユーザーが持っていない商品はUPDATE1本で持ち主を付け替える
func TestCartUsecase_MergeGuestCart_ReassignsNewLines(t *testing.T) {
	ctx := context.Background()
	guest := model.GuestIdentity("sess-1")
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	cartRepo.On("ListByIdentity", mock.Anything, guest).Return([]model.CartLine{
		{ID: "g1", ProductID: "pA", Quantity: 2},
	}, nil)
	cartRepo.On("FindByIdentityAndProduct", mock.Anything, user, "pA").Return(model.CartLine{}, repo.ErrNotFound)
	cartRepo.On("ReassignToUser", mock.Anything, "g1", "u1").Return(nil)

	err := uc.MergeGuestCart(ctx, "sess-1", "u1")
	assert.NoError(t, err)

	cartRepo.AssertNotCalled(t, "UpsertByIdentityAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
	cartRepo.AssertExpectations(t)
}

// 両方が持つ商品は数量加算し、ゲスト明細を必ず消す
func TestCartUsecase_MergeGuestCart_AddsAndDeletesDuplicates(t *testing.T) {
	ctx := context.Background()
	guest := model.GuestIdentity("sess-1")
	user := model.UserIdentity("u1")

	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	cartRepo.On("ListByIdentity", mock.Anything, guest).Return([]model.CartLine{
		{ID: "g1", ProductID: "pA", Quantity: 2},
	}, nil)
	cartRepo.On("FindByIdentityAndProduct", mock.Anything, user, "pA").Return(model.CartLine{
		ID: "m1", ProductID: "pA", Quantity: 1,
	}, nil)
	cartRepo.On("UpsertByIdentityAndProduct", mock.Anything, user, "pA", int64(2)).Return(nil)
	cartRepo.On("DeleteByID", mock.Anything, "g1").Return(nil)

	err := uc.MergeGuestCart(ctx, "sess-1", "u1")
	assert.NoError(t, err)

	cartRepo.AssertNotCalled(t, "ReassignToUser", mock.Anything, mock.Anything, mock.Anything)
	cartRepo.AssertExpectations(t)
}

func TestCartUsecase_MergeGuestCart_EmptyGuestCart(t *testing.T) {
	guest := model.GuestIdentity("sess-1")

	cartRepo := new(CartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(ProductRepoMock))

	cartRepo.On("ListByIdentity", mock.Anything, guest).Return([]model.CartLine{}, nil)

	err := uc.MergeGuestCart(context.Background(), "sess-1", "u1")
	assert.NoError(t, err)

	cartRepo.AssertNotCalled(t, "ReassignToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_MergeGuestCart_MissingSession(t *testing.T) {
	uc := usecase.NewCartUsecase(new(CartRepoMock), new(ProductRepoMock))

	err := uc.MergeGuestCart(context.Background(), "", "u1")
	assertKind(t, err, usecase.KindValidation)
}
