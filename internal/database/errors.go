package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// MySQL server error numbers raised when a foreign key cannot be added.
var mysqlConstraintErrors = map[uint16]bool{
	1215: true, // cannot add foreign key constraint
	1216: true, // cannot add or update a child row
	1452: true, // cannot add or update a child row: a foreign key constraint fails
	1822: true, // missing index for constraint
	1826: true, // duplicate foreign key constraint name
	3780: true, // referencing and referenced columns are incompatible
}

// PostgreSQL SQLSTATE codes raised when a foreign key cannot be added.
var postgresConstraintErrors = map[string]bool{
	"42710": true, // duplicate_object
	"23503": true, // foreign_key_violation
	"42830": true, // invalid_foreign_key
	"42804": true, // datatype_mismatch
}

// IsConstraintConflict reports whether err is a driver error caused by a
// foreign key that conflicts with existing constraints or data.
func IsConstraintConflict(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlConstraintErrors[myErr.Number]
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return postgresConstraintErrors[string(pqErr.Code)]
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgresConstraintErrors[pgErr.Code]
	}

	return false
}
