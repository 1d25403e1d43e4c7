package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// CartIdentityをWHERE句に変換する。
// 匿名のときはどの行にもマッチさせない。
func identityWhere(tx *gorm.DB, id model.CartIdentity) *gorm.DB {
	if uid, ok := id.UserID(); ok {
		return tx.Where("user_id = ?", uid)
	}
	if sid, ok := id.SessionID(); ok {
		return tx.Where("session_id = ?", sid)
	}
	return tx.Where("1 = 0")
}

// 持ち主の明細を一覧取得
func (r *CartGormRepository) ListByIdentity(ctx context.Context, id model.CartIdentity) ([]model.CartLine, error) {
	var lines []model.CartLine

	tx := identityWhere(r.db.WithContext(ctx), id)
	if err := tx.Order("created_at asc").Find(&lines).Error; err != nil {
		return []model.CartLine{}, err
	}

	return lines, nil
}

// (持ち主, 商品) の明細を取得
func (r *CartGormRepository) FindByIdentityAndProduct(ctx context.Context, id model.CartIdentity, productID string) (model.CartLine, error) {
	var line model.CartLine

	tx := identityWhere(r.db.WithContext(ctx), id).Where("product_id = ?", productID)
	err := tx.First(&line).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartLine{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartLine{}, err
	}
	return line, nil
}

// 同一商品は数量加算、無ければ新規作成
func (r *CartGormRepository) UpsertByIdentityAndProduct(ctx context.Context, id model.CartIdentity, productID string, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	if id.IsAnonymous() {
		return errors.New("identity required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line model.CartLine

		err := identityWhere(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id).
			Where("product_id = ?", productID).
			First(&line).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			res := tx.Model(&model.CartLine{}).
				Where("id = ?", line.ID).
				Update("quantity", line.Quantity+addQty)

			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		now := time.Now()
		newLine := model.CartLine{
			ID:        uuid.NewString(),
			ProductID: productID,
			Quantity:  addQty,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if uid, ok := id.UserID(); ok {
			newLine.UserID = &uid
		} else if sid, ok := id.SessionID(); ok {
			newLine.SessionID = &sid
		}

		if err := tx.Create(&newLine).Error; err != nil {
			return err
		}

		return nil
	})
}

// 数量を絶対値で上書き
func (r *CartGormRepository) SetQuantity(ctx context.Context, id model.CartIdentity, productID string, qty int64) error {
	res := identityWhere(r.db.WithContext(ctx).Model(&model.CartLine{}), id).
		Where("product_id = ?", productID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除（無くてもエラーにしない）
func (r *CartGormRepository) DeleteByIdentityAndProduct(ctx context.Context, id model.CartIdentity, productID string) error {
	res := identityWhere(r.db.WithContext(ctx), id).
		Where("product_id = ?", productID).
		Delete(&model.CartLine{})

	return res.Error
}

// 持ち主の明細を全削除
func (r *CartGormRepository) ClearByIdentity(ctx context.Context, id model.CartIdentity) error {
	res := identityWhere(r.db.WithContext(ctx), id).Delete(&model.CartLine{})
	return res.Error
}

// 数量の合計（絞り込みなしの生の値）
func (r *CartGormRepository) SumQuantities(ctx context.Context, id model.CartIdentity) (int64, error) {
	var sum *int64

	tx := identityWhere(r.db.WithContext(ctx).Model(&model.CartLine{}), id)
	if err := tx.Select("SUM(quantity)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// ゲスト明細の持ち主をユーザーへ付け替える（delete+insertではなく1行UPDATE）
func (r *CartGormRepository) ReassignToUser(ctx context.Context, lineID string, userID string) error {
	res := r.db.WithContext(ctx).Model(&model.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"session_id": nil,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// IDで明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, lineID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&model.CartLine{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
