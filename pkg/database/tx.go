package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

// TxOptions selects the isolation level and timeout for one transaction.
// Cross-request consistency is delegated entirely to these; no in-process
// locks are taken anywhere.
type TxOptions struct {
	Isolation sql.IsolationLevel
	Timeout   time.Duration
}

// Per-operation presets. Strict isolation for row edits accepts abort risk to
// rule out lost updates; deletes need their cascade reads to stay stable.
var (
	TxTopicCreate  = TxOptions{Isolation: sql.LevelReadCommitted, Timeout: 10 * time.Second}
	TxTopicEdit    = TxOptions{Isolation: sql.LevelSerializable, Timeout: 10 * time.Second}
	TxTopicDelete  = TxOptions{Isolation: sql.LevelRepeatableRead, Timeout: 10 * time.Second}
	TxReportCreate = TxOptions{Isolation: sql.LevelRepeatableRead, Timeout: 10 * time.Second}
	TxReportEdit   = TxOptions{Isolation: sql.LevelSerializable, Timeout: 5 * time.Second}
	TxReportDelete = TxOptions{Isolation: sql.LevelRepeatableRead, Timeout: 5 * time.Second}
	TxReadOnly     = TxOptions{Isolation: sql.LevelReadCommitted}
)

// Postgres SQLSTATEs surfaced when concurrent transactions collide.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// RunInTx executes fn inside one transaction at the requested isolation level.
// The context handed to fn carries the transaction timeout; hitting it, or a
// serialization/deadlock abort, is translated to apperror.ErrTxTimeout so the
// caller can distinguish contention from a business-rule failure.
func RunInTx(ctx context.Context, db *gorm.DB, opts TxOptions, fn func(ctx context.Context, tx *gorm.DB) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	}, &sql.TxOptions{Isolation: opts.Isolation})

	return translateTxError(err)
}

func translateTxError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("transaction exceeded its timeout: %w", apperror.ErrTxTimeout)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected {
			return fmt.Errorf("concurrent update conflict: %w", apperror.ErrTxTimeout)
		}
	}

	return err
}
