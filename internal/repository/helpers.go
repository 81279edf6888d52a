package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// paginate applies page/limit; a non-positive limit returns every row
func paginate(query *gorm.DB, page, limit int) *gorm.DB {
	if limit <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(limit).Offset((page - 1) * limit)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}
