package model

import "time"

// カート明細。user_id か session_id のどちらか一方にだけ紐づく。
// 同じ (持ち主, 商品) の行は常に1本（再追加は数量加算）。
// 価格は保存せず、表示時に商品の現在価格で計算する。
type CartLine struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID *string   `gorm:"type:varchar(255);index" json:"session_id,omitempty"`
	ProductID string    `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
