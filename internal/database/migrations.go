package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration is one reversible schema change.
type Migration struct {
	Version string
	Up      func(tx *gorm.DB) error
	Down    func(tx *gorm.DB) error
}

type schemaMigration struct {
	Version   string `gorm:"primaryKey;type:varchar(100)"`
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// productsV1 is the products table as first shipped, including the
// misspelled description column.
type productsV1 struct {
	ID              uint            `gorm:"primaryKey"`
	Name            string          `gorm:"type:varchar(100);not null"`
	Desciption      string          `gorm:"type:text"`
	Price           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PictureURL      string          `gorm:"column:picture_url;type:varchar(500)"`
	Type            string          `gorm:"type:varchar(100);not null;index:idx_products_type"`
	Brand           string          `gorm:"type:varchar(100);not null;index:idx_products_brand"`
	QuantityInStock int             `gorm:"not null;default:0"`
}

func (productsV1) TableName() string { return "products" }

// priceToCents rescales stored prices on SQLite, where models.Price is kept
// as integer cents. Other dialects store the decimal itself.
func priceToCents(tx *gorm.DB, up bool) error {
	if tx.Dialector.Name() != "sqlite" {
		return nil
	}
	if up {
		return tx.Exec("UPDATE products SET price = CAST(ROUND(price * 100) AS INTEGER)").Error
	}
	return tx.Exec("UPDATE products SET price = price / 100.0").Error
}

func renameColumn(tx *gorm.DB, table, from, to string) error {
	return tx.Exec("ALTER TABLE ? RENAME COLUMN ? TO ?",
		clause.Table{Name: table}, clause.Column{Name: from}, clause.Column{Name: to}).Error
}

// Migrations lists every schema change in the order it is applied.
var Migrations = []Migration{
	{
		Version: "0001_create_products",
		Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&productsV1{})
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("products")
		},
	},
	{
		Version: "0002_rename_desciption_to_description",
		Up: func(tx *gorm.DB) error {
			return renameColumn(tx, "products", "desciption", "description")
		},
		Down: func(tx *gorm.DB) error {
			return renameColumn(tx, "products", "description", "desciption")
		},
	},
	{
		Version: "0003_store_sqlite_prices_as_cents",
		Up: func(tx *gorm.DB) error {
			return priceToCents(tx, true)
		},
		Down: func(tx *gorm.DB) error {
			return priceToCents(tx, false)
		},
	},
}

func appliedVersions(db *gorm.DB) (map[string]bool, error) {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return nil, fmt.Errorf("failed to prepare schema_migrations: %w", err)
	}
	var rows []schemaMigration
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(rows))
	for _, row := range rows {
		applied[row.Version] = true
	}
	return applied, nil
}

// Migrate applies every pending migration, each in its own transaction.
func Migrate(db *gorm.DB) error {
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		if applied[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: m.Version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
		logrus.WithField("version", m.Version).Info("Applied migration")
	}
	return nil
}

// Rollback reverts the last steps applied migrations, newest first.
func Rollback(db *gorm.DB, steps int) error {
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for i := len(Migrations) - 1; i >= 0 && steps > 0; i-- {
		m := Migrations[i]
		if !applied[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&schemaMigration{}, "version = ?", m.Version).Error
		})
		if err != nil {
			return fmt.Errorf("rollback of %s failed: %w", m.Version, err)
		}
		logrus.WithField("version", m.Version).Info("Reverted migration")
		steps--
	}
	return nil
}
