package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/walletledger/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadlock", &pgconn.PgError{Code: pgErrDeadlock}, domain.ErrWriteConflict},
		{"serialization failure", &pgconn.PgError{Code: pgErrSerializationFailure}, domain.ErrWriteConflict},
		{"unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgErrUniqueViolation}), domain.ErrWriteConflict},
		{"connection failure", &pgconn.PgError{Code: "08006"}, domain.ErrStorageUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}

			var pgErr *pgconn.PgError
			if !errors.As(got, &pgErr) {
				t.Fatalf("driver error lost from chain: %v", got)
			}
		})
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	if classify(nil) != nil {
		t.Fatal("expected nil")
	}

	if got := classify(context.DeadlineExceeded); got != context.DeadlineExceeded {
		t.Fatalf("expected deadline to pass through unchanged, got %v", got)
	}

	other := &pgconn.PgError{Code: "23503"}
	got := classify(other)
	if errors.Is(got, domain.ErrWriteConflict) || errors.Is(got, domain.ErrStorageUnavailable) {
		t.Fatalf("foreign key violation must not be classified, got %v", got)
	}

	plain := errors.New("boom")
	if classify(plain) != plain {
		t.Fatal("expected unrelated error unchanged")
	}
}
