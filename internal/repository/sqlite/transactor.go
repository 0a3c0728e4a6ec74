package sqlite

import (
	"context"
	"fmt"

	"github.com/NordCoder/Tubely/internal/domain/relation"

	"gorm.io/gorm"
)

var _ relation.Transactor = (*Transactor)(nil)

type Transactor struct{ db *DB }

func NewTransactor(db *DB) *Transactor { return &Transactor{db: db} }

// WithTx runs fn in a gorm transaction carried by ctx. Nested calls join it.
func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	err := t.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		return fmt.Errorf("in tx: %w", err)
	}
	return nil
}
