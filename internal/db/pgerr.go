package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PgErrCode extracts the Postgres SQLSTATE code from err, or "" if err is
// not a *pgconn.PgError.
func PgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505) — the race guard every claim/enqueue invariant in this
// system relies on (§3, §5(iii)).
func IsUniqueViolation(err error) bool {
	return PgErrCode(err) == "23505"
}
