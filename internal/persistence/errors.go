package persistence

import "errors"

// Sentinel errors returned by repositories. Callers branch with errors.Is.
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("duplicate record")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
