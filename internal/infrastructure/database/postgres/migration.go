// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/domain/inventory"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},

		&catalog.Product{},
		&catalog.Variant{},

		&inventory.ActivationCode{},
		&inventory.StockAlert{},

		&order.Order{},
		&order.Item{},
		&order.ItemCode{},
		&order.Transaction{},
		&order.StatusHistory{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// Indexes returns the statements CreateIndexes executes
func Indexes() []string {
	return []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_variants_product_active ON variants(product_id, is_active)",

		// Inventory: allocation scans UNUSED codes of a variant oldest first
		"CREATE INDEX IF NOT EXISTS idx_activation_codes_unused_fifo ON activation_codes(variant_id, id) WHERE status = 'UNUSED'",
		"CREATE INDEX IF NOT EXISTS idx_stock_alerts_open ON stock_alerts(variant_id, alert_type) WHERE is_resolved = false",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_payment_code ON transactions(payment_code)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",
	}
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	successCount := 0
	failCount := 0

	for _, indexSQL := range Indexes() {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{"created": successCount, "failed": failCount}).Info("Database indexes ensured")
	if failCount > 0 {
		return fmt.Errorf("%d index statements failed", failCount)
	}
	return nil
}

// SeedInitialData inserts demo products with a few codes. Development only.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("Seeding initial data")

	seeds := []struct {
		product catalog.Product
		values  []int64
	}{
		{catalog.Product{Name: "Steam Wallet", Brand: "Valve", Description: "Steam store credit", IsActive: true}, []int64{20, 50}},
		{catalog.Product{Name: "PlayStation Store", Brand: "Sony", Description: "PlayStation Network credit", IsActive: true}, []int64{25, 100}},
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range seeds {
			var existing catalog.Product
			err := tx.Where("name = ?", seed.product.Name).First(&existing).Error
			if err == nil {
				m.logger.WithField("product", seed.product.Name).Debug("Product already seeded")
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up product %s: %w", seed.product.Name, err)
			}

			p := seed.product
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
			}
			for _, value := range seed.values {
				v := catalog.Variant{
					ProductID: p.ID,
					Value:     decimal.NewFromInt(value),
					Price:     decimal.NewFromInt(value),
					Currency:  "USD",
					IsActive:  true,
				}
				if err := tx.Create(&v).Error; err != nil {
					return fmt.Errorf("failed to seed variant: %w", err)
				}

				codes := make([]inventory.ActivationCode, 0, 5)
				for i := 1; i <= 5; i++ {
					codes = append(codes, inventory.ActivationCode{
						VariantID: v.ID,
						Code:      fmt.Sprintf("DEMO-%d-%04d", v.ID, i),
						Status:    inventory.CodeStatusUnused,
					})
				}
				if err := tx.Create(&codes).Error; err != nil {
					return fmt.Errorf("failed to seed codes: %w", err)
				}
			}
			m.logger.WithField("product", p.Name).Info("Seeded product")
		}
		return nil
	})
}

// DropAllTables drops every table managed here, dependents first
func (m *Migration) DropAllTables() error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i], err)
		}
	}
	m.logger.Warn("All tables dropped")
	return nil
}
