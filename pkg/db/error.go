package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type violation int

const (
	noViolation violation = iota
	uniqueViolation
	checkViolation
	// txConflict means the database aborted the transaction to break a
	// deadlock or a serialization conflict. Rerunning it is safe.
	txConflict
)

// SQLSTATE codes on Postgres, server error numbers on MySQL.
var (
	pgViolations = map[string]violation{
		"23505": uniqueViolation,
		"23514": checkViolation,
		"40001": txConflict,
		"40P01": txConflict,
	}
	mysqlViolations = map[uint16]violation{
		1062: uniqueViolation,
		3819: checkViolation,
		1213: txConflict,
	}
)

// classify maps driver errors to a constraint violation. SQLite only exposes
// the message text, and wrapped driver errors that lost their type are
// matched the same way.
func classify(err error) violation {
	if err == nil {
		return noViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return uniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgViolations[pgErr.Code]
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlViolations[myErr.Number]
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "duplicate key value violates unique constraint"),
		strings.Contains(msg, "Error 1062"):
		return uniqueViolation
	case strings.Contains(msg, "CHECK constraint failed"):
		return checkViolation
	case strings.Contains(msg, "Error 1213"),
		strings.Contains(msg, "deadlock detected"),
		strings.Contains(msg, "could not serialize access"):
		return txConflict
	}
	return noViolation
}

// IsDuplicateKeyErr reports a unique or primary key conflict.
func IsDuplicateKeyErr(err error) bool {
	return classify(err) == uniqueViolation
}

// IsCheckViolationErr reports a CHECK constraint failure, e.g. a stock count
// driven below zero by a statement that bypassed validation.
func IsCheckViolationErr(err error) bool {
	return classify(err) == checkViolation
}

// IsTxConflictErr reports a transaction the database rolled back as a
// deadlock or serialization victim. Two first-time writers of the same key
// on MySQL hit this through gap locks taken by SELECT ... FOR UPDATE.
func IsTxConflictErr(err error) bool {
	return classify(err) == txConflict
}
