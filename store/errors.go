package store

import (
	"errors"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
)

// pgCode returns the SQLSTATE of a Postgres error, or "" for anything else.
func pgCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
