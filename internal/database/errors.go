package database

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	return hasPgCode(err, pgerrcode.UniqueViolation)
}

// IsValueRejected matches values the schema cannot hold: integer columns out
// of range, varchar overflow, check-constraint violations. These surface to
// clients as input errors.
func IsValueRejected(err error) bool {
	return hasPgCode(err, pgerrcode.NumericValueOutOfRange) ||
		hasPgCode(err, pgerrcode.StringDataRightTruncationDataException) ||
		hasPgCode(err, pgerrcode.CheckViolation)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
