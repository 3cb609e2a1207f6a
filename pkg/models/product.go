package models

import "time"

type ProductAnalytics struct {
	Views     int64 `json:"views" db:"views"`
	Likes     int64 `json:"likes" db:"likes"`
	Purchases int64 `json:"purchases" db:"purchases"`
}

// Product is a read-only catalog snapshot. The catalog service owns its lifecycle.
type Product struct {
	ID            int64            `json:"product_id" db:"product_id"`
	Name          string           `json:"product_name" db:"product_name"`
	Description   string           `json:"description" db:"description"`
	Category      string           `json:"category" db:"category"`
	Subcategory   string           `json:"subcategory" db:"subcategory"`
	Manufacturer  string           `json:"manufacturer" db:"manufacturer"`
	Price         float64          `json:"price" db:"price"`
	Rating        float64          `json:"rating" db:"rating"`
	StockQuantity int              `json:"quantity_in_stock" db:"quantity_in_stock"`
	Analytics     ProductAnalytics `json:"analytics"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
