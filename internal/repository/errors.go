package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tiretrack/internal/models"
)

// uniqueViolation postgres 唯一约束冲突码
const uniqueViolation = "23505"

// wrapWriteError 唯一约束冲突映射为 ErrConflict，其余驱动错误原样包装
func wrapWriteError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", models.ErrConflict, action)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
