package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: ErrNotFound},
		{name: "wrapped no rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505"}, want: ErrDuplicate},
		{name: "other pg error", in: &pgconn.PgError{Code: "23503"}, want: nil},
		{name: "passthrough", in: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			if tt.want == nil {
				if tt.in == nil {
					assert.NoError(t, got)
					return
				}
				assert.NotErrorIs(t, got, ErrDuplicate)
				assert.NotErrorIs(t, got, ErrNotFound)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
