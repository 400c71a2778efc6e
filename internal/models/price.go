package models

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Price is an exact amount with two decimal places.
//
// Postgres keeps it in a decimal(18,2) column. SQLite has no exact decimal
// storage, so there it is written as an integer number of cents.
type Price struct {
	decimal.Decimal
}

// RequirePrice parses s and panics when it is not a number.
func RequirePrice(s string) Price {
	return Price{Decimal: decimal.RequireFromString(s)}
}

func usesCents(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "sqlite"
}

// Cents returns the price as a whole number of cents.
func (p Price) Cents() int64 {
	return p.Shift(2).Round(0).IntPart()
}

func (Price) GormDataType() string {
	return "decimal"
}

// GormDBDataType picks the column type for the connected dialect.
func (Price) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if usesCents(db) {
		return "integer"
	}
	return "decimal(18,2)"
}

// GormValue binds the price in the representation of the connected dialect.
func (p Price) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	if usesCents(db) {
		return clause.Expr{SQL: "?", Vars: []any{p.Cents()}}
	}
	return clause.Expr{SQL: "?", Vars: []any{p.StringFixed(2)}}
}

// Scan reads an integer as cents and anything else as a decimal amount.
func (p *Price) Scan(value any) error {
	switch v := value.(type) {
	case int64:
		p.Decimal = decimal.New(v, -2)
		return nil
	case nil:
		return fmt.Errorf("price cannot be NULL")
	}
	return p.Decimal.Scan(value)
}
