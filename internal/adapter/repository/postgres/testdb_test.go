package postgres

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"purchase-order-backend/internal/domain/approval"
	"purchase-order-backend/internal/domain/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// openTestDB creates a private in-memory sqlite DB with every service table.
// A named shared-cache DSN keeps all pooled connections on the same database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:potest%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeOrder(number string, status order.Status) *order.Order {
	o := &order.Order{
		ID:              uuid.NewString(),
		Number:          number,
		Status:          status,
		SupplierName:    "Ferreteria Central",
		RequestedBy:     "Maria",
		Currency:        "CLP",
		StatusUpdatedAt: time.Now().UTC(),
	}
	_ = o.SetItems([]order.LineItem{
		{Description: "Cement", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("1500.25")},
		{Description: "Sand", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("999.50")},
	})
	return o
}

func makeToken(tok, orderID string, issued time.Time, window time.Duration) *approval.Token {
	return &approval.Token{
		Token:     tok,
		OrderID:   orderID,
		IssuedAt:  issued.UTC(),
		ExpiresAt: issued.UTC().Add(window),
	}
}
