package comparer

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// IgnoreFieldsFor ignora campos de T, ex.: IgnoreFieldsFor[entities.Branch]("CreatedAt", "UpdatedAt").
func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var zero T
	return cmpopts.IgnoreFields(zero, fields...)
}
