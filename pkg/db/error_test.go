package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection reset")))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert row: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: inventory_rows.product_id, inventory_rows.variant_id")))
}

func TestIsCheckViolationErr(t *testing.T) {
	assert.False(t, IsCheckViolationErr(nil))
	assert.True(t, IsCheckViolationErr(&pgconn.PgError{Code: "23514"}))
	assert.True(t, IsCheckViolationErr(&mysql.MySQLError{Number: 3819}))
	assert.True(t, IsCheckViolationErr(errors.New("CHECK constraint failed: on_hand >= 0")))
	assert.False(t, IsCheckViolationErr(&pgconn.PgError{Code: "23505"}))
}

func TestWrappedSQLiteMessages(t *testing.T) {
	err := fmt.Errorf("record sale: %w", errors.New("constraint failed: CHECK constraint failed: on_hand >= 0 (275)"))
	assert.True(t, IsCheckViolationErr(err))
	assert.False(t, IsDuplicateKeyErr(err))

	assert.False(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
}

func TestIsTxConflictErr(t *testing.T) {
	assert.True(t, IsTxConflictErr(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}))
	assert.True(t, IsTxConflictErr(fmt.Errorf("lock row: %w", &pgconn.PgError{Code: "40P01"})))
	assert.True(t, IsTxConflictErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsTxConflictErr(errors.New("Error 1213 (40001): Deadlock found when trying to get lock")))

	assert.False(t, IsTxConflictErr(nil))
	assert.False(t, IsTxConflictErr(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1213}))
}
