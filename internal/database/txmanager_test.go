package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestNewTxManager(t *testing.T) {
	db, _ := newMockDB(t)

	txManager := NewTxManager(db)
	assert.NotNil(t, txManager)
	assert.IsType(t, &sqlTxManager{}, txManager)
}

func TestWithTx(t *testing.T) {
	t.Run("Success_Commits", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			tx := ctx.Value(txKey{})
			assert.NotNil(t, tx)
			assert.IsType(t, &sql.Tx{}, tx)
			return nil
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_RollsBackOnFnError", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			return assert.AnError
		})

		assert.Equal(t, assert.AnError, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_BeginFails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

		called := false
		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			called = true
			return nil
		})

		assert.EqualError(t, err, "begin failed")
		assert.False(t, called)
	})

	t.Run("Error_CommitFails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			return nil
		})

		assert.EqualError(t, err, "commit failed")
	})

	t.Run("Error_RollbackFails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "rollback failed")
	})

	t.Run("Success_NestedCallJoinsOuterTransaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE master_keys").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txManager := NewTxManager(db)
		err := txManager.WithTx(context.Background(), func(outer context.Context) error {
			outerTx := GetTx(outer, db)
			return txManager.WithTx(outer, func(inner context.Context) error {
				assert.Same(t, outerTx, GetTx(inner, db))
				_, err := GetTx(inner, db).ExecContext(inner, "UPDATE master_keys SET status = 'RETIRED'")
				return err
			})
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NestedFailureRollsBackOnce", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		txManager := NewTxManager(db)
		err := txManager.WithTx(context.Background(), func(outer context.Context) error {
			return txManager.WithTx(outer, func(context.Context) error {
				return assert.AnError
			})
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInTx(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assert.False(t, InTx(context.Background()))
	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		return nil
	})
	assert.NoError(t, err)
}

func TestGetTx(t *testing.T) {
	t.Run("Success_WithTransaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			querier := GetTx(ctx, db)
			assert.IsType(t, &sql.Tx{}, querier)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("Success_WithoutTransaction", func(t *testing.T) {
		db, _ := newMockDB(t)
		querier := GetTx(context.Background(), db)
		assert.Equal(t, db, querier)
	})
}
