package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NordCoder/Tubely/internal/apperr"

	"gorm.io/gorm"
)

func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(err.Error(), "database is locked"):
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
