package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

func TestTranslateTxError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantTx  bool
		wantNil bool
	}{
		{name: "nil passes through", err: nil, wantNil: true},
		{name: "deadline becomes tx timeout", err: context.DeadlineExceeded, wantTx: true},
		{name: "serialization failure becomes tx timeout", err: &pgconn.PgError{Code: "40001"}, wantTx: true},
		{name: "deadlock becomes tx timeout", err: &pgconn.PgError{Code: "40P01"}, wantTx: true},
		{name: "wrapped deadline becomes tx timeout", err: errors.Join(errors.New("ctx"), context.DeadlineExceeded), wantTx: true},
		{name: "other pg error passes through", err: &pgconn.PgError{Code: "23505"}, wantTx: false},
		{name: "plain error passes through", err: errors.New("boom"), wantTx: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateTxError(tt.err)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			if tt.wantTx {
				assert.ErrorIs(t, got, apperror.ErrTxTimeout)
			} else {
				assert.NotErrorIs(t, got, apperror.ErrTxTimeout)
				assert.Error(t, got)
			}
		})
	}
}
