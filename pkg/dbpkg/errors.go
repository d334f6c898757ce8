package dbpkg

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// PostgreSQL error codes the repositories react to.
const (
	CodeSerializationFailure = pq.ErrorCode("40001")
	CodeDeadlockDetected     = pq.ErrorCode("40P01")
	CodeLockNotAvailable     = pq.ErrorCode("55P03")
	CodeCheckViolation       = pq.ErrorCode("23514")
	CodeUniqueViolation      = pq.ErrorCode("23505")
	CodeForeignKeyViolation  = pq.ErrorCode("23503")
	CodeQueryCanceled        = pq.ErrorCode("57014")
)

// PQError returns the underlying *pq.Error of err, if any.
func PQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}

	return nil, false
}

// IsRetryable reports whether err is a transient lock or serialization conflict.
func IsRetryable(err error) bool {
	pqErr, ok := PQError(err)
	if !ok {
		return false
	}

	switch pqErr.Code {
	case CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable:
		return true
	}

	return false
}

// IsUnavailable reports whether err means the database cannot be reached.
func IsUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	pqErr, ok := PQError(err)
	if !ok {
		return false
	}

	// Class 08 is connection exception, 57P0x are shutdown states.
	if pqErr.Code.Class() == "08" {
		return true
	}

	switch pqErr.Code {
	case "57P01", "57P02", "57P03":
		return true
	}

	return false
}

// IsQueryCanceled reports whether the statement was cancelled, which is how the
// driver reports a context that ended while the query was running.
func IsQueryCanceled(err error) bool {
	pqErr, ok := PQError(err)
	return ok && pqErr.Code == CodeQueryCanceled
}

// IsConstraint reports whether err is a violation of the named constraint.
func IsConstraint(err error, constraint string) bool {
	pqErr, ok := PQError(err)
	return ok && pqErr.Constraint == constraint
}
