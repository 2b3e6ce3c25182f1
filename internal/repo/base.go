package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the gorm repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn prefers tx when the caller is inside a transaction.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return b.DB(ctx)
	}
	if ctx == nil {
		return tx
	}
	return tx.WithContext(ctx)
}
