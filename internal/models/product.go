package models

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the catalog.
type Product struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Name            string          `json:"name" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Description     string          `json:"description" gorm:"type:text"`
	Price           Price           `json:"price" gorm:"not null" validate:"gte=0"`
	PictureURL      string          `json:"pictureUrl" gorm:"column:picture_url;type:varchar(500)" validate:"omitempty,max=500"`
	Type            string          `json:"type" gorm:"type:varchar(100);not null;index" validate:"required,max=100"`
	Brand           string          `json:"brand" gorm:"type:varchar(100);not null;index" validate:"required,max=100"`
	QuantityInStock int             `json:"quantityInStock" gorm:"not null;default:0" validate:"gte=0"`
}
