package model

import "time"

// 商品。価格は最小通貨単位（セント）のint64。
// is_active=false は論理削除扱いで、カート/カタログからは見えない。
// 注文履歴からの参照は残る。
type Product struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         int64     `gorm:"not null" json:"price"`
	StockQuantity int64     `gorm:"not null;default:0" json:"stock_quantity"`
	ImageURL      string    `gorm:"type:varchar(500)" json:"image_url"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
