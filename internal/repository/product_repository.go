package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)

	// 管理者用の一覧。is_activeで絞らない（非公開商品も再発見できる）
	ListAdmin(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)

	// 在庫がthreshold以下の公開商品
	ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error)

	FindByID(ctx context.Context, id string) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	// is_active=false にする論理削除
	SetActive(ctx context.Context, id string, isActive bool) error
}
