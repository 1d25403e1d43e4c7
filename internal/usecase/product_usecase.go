package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ListProductsOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// 公開商品の一覧
func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ListProductsOutput, error) {
	if in.Page < 1 {
		return ListProductsOutput{}, errValidation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ListProductsOutput{}, errValidation("invalid limit")
	}

	q := repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	}

	items, total, err := u.productRepo.ListPublic(ctx, q)
	if err != nil {
		return ListProductsOutput{}, errInternal()
	}

	return ListProductsOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 管理者向けの一覧。非公開商品も返すので、再公開の対象を探せる。
func (u *ProductUsecase) ListAdminProducts(ctx context.Context, in ListProductsInput) (ListProductsOutput, error) {
	if in.Page < 1 {
		return ListProductsOutput{}, errValidation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ListProductsOutput{}, errValidation("invalid limit")
	}

	q := repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	}

	items, total, err := u.productRepo.ListAdmin(ctx, q)
	if err != nil {
		return ListProductsOutput{}, errInternal()
	}

	return ListProductsOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 在庫がthreshold以下の公開商品
func (u *ProductUsecase) ListLowStockProducts(ctx context.Context, threshold int64) ([]model.Product, error) {
	if threshold < 0 {
		return nil, errValidation("invalid threshold")
	}

	items, err := u.productRepo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, errInternal()
	}
	return items, nil
}

// 公開商品の詳細。非公開は存在しない扱い。
func (u *ProductUsecase) GetPublicProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := u.productRepo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound("product not found")
	}
	if err != nil {
		return model.Product{}, errInternal()
	}
	if !p.IsActive {
		return model.Product{}, errNotFound("product not found")
	}
	return p, nil
}

type CreateProductInput struct {
	Name          string
	Description   string
	Price         int64
	StockQuantity int64
	ImageURL      string
	IsActive      bool
}

// 管理者：商品作成
func (u *ProductUsecase) CreateProduct(ctx context.Context, adminUserID string, in CreateProductInput) (model.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Product{}, errValidation("name is required")
	}
	if in.Price < 0 {
		return model.Product{}, errValidation("invalid price")
	}
	if in.StockQuantity < 0 {
		return model.Product{}, errValidation("invalid stock_quantity")
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
		IsActive:      in.IsActive,
	})
	if err != nil {
		return model.Product{}, errInternal()
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionCreateProduct, created.ID, nil, &created)
	return created, nil
}

type UpdateProductInput struct {
	Name          string
	Description   string
	Price         int64
	StockQuantity int64
	ImageURL      string
	IsActive      bool
}

// 管理者：商品更新
func (u *ProductUsecase) UpdateProduct(ctx context.Context, adminUserID string, productID string, in UpdateProductInput) (model.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Product{}, errValidation("name is required")
	}
	if in.Price < 0 {
		return model.Product{}, errValidation("invalid price")
	}
	if in.StockQuantity < 0 {
		return model.Product{}, errValidation("invalid stock_quantity")
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound("product not found")
	}
	if err != nil {
		return model.Product{}, errInternal()
	}

	p := model.Product{
		ID:            productID,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
		IsActive:      in.IsActive,
	}
	if err := u.productRepo.Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Product{}, errNotFound("product not found")
		}
		return model.Product{}, errInternal()
	}

	//在庫を管理画面から直接変えた場合は調整履歴も残す
	if before.StockQuantity != in.StockQuantity {
		_ = u.inventoryRepo.CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: adminUserID,
			Delta:       in.StockQuantity - before.StockQuantity,
			Reason:      "admin update",
		})
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionUpdateProduct, productID, &before, &p)
	return p, nil
}

// 管理者：論理削除（is_active=false）。注文履歴からの参照は残る。
func (u *ProductUsecase) DeactivateProduct(ctx context.Context, adminUserID string, productID string) error {
	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("product not found")
	}
	if err != nil {
		return errInternal()
	}

	if err := u.productRepo.SetActive(ctx, productID, false); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("product not found")
		}
		return errInternal()
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionDeleteProduct, productID, &before, nil)
	return nil
}

// 管理者：在庫の現在値を設定（調整履歴つき）
func (u *ProductUsecase) SetStock(ctx context.Context, adminUserID string, productID string, newStock int64, reason string) error {
	if newStock < 0 {
		return errValidation("invalid stock_quantity")
	}
	if strings.TrimSpace(reason) == "" {
		return errValidation("reason is required")
	}

	err := u.inventoryRepo.SetStockWithAdjustment(ctx, adminUserID, productID, newStock, reason)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("product not found")
	}
	if err != nil {
		return errInternal()
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionUpdateStock, productID, nil, nil)
	return nil
}

// 監査ログ追記。失敗しても操作自体は成立している。
func (u *ProductUsecase) writeAudit(ctx context.Context, actorUserID string, action model.AuditAction, resourceID string, before, after *model.Product) {
	log := model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   resourceID,
	}
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			log.BeforeJSON = string(b)
		}
	}
	if after != nil {
		if a, err := json.Marshal(after); err == nil {
			log.AfterJSON = string(a)
		}
	}
	_ = u.auditRepo.Create(ctx, log)
}
