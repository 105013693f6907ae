// Package option provides composable gorm query options.
package option

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ringbill/ringbill/pkg/db/pagination"
)

// Option mutates a gorm query.
type Option interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination applies limit/offset derived from the page token.
func ApplyPagination(p pagination.Pagination) Option {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Limit(p.Limit()).Offset(p.Offset())
	})
}

// Where adds a condition.
func Where(query string, args ...any) Option {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// Order adds an ordering clause.
func Order(expr string) Option {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	})
}

// LockForUpdate adds SELECT ... FOR UPDATE on dialects that support row
// locks. SQLite serializes writers on its own, so the clause is skipped
// there.
func LockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
