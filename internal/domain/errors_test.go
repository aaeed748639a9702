package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: domain.ErrFirstNameRequired, want: domain.CodeValidation},
		{err: domain.ErrEmailInvalid, want: domain.CodeValidation},
		{err: domain.ErrFieldTooLong, want: domain.CodeValidation},
		{err: domain.ErrInvalidPrice, want: domain.CodeInvalidPrice},
		{err: domain.ErrInvalidQuantity, want: domain.CodeInvalidQuantity},
		{err: domain.ErrDuplicateEmail, want: domain.CodeDuplicateEmail},
		{err: domain.ErrCustomerNotFound, want: domain.CodeCustomerNotFound},
		{err: domain.ErrProductNotFound, want: domain.CodeProductNotFound},
		{err: domain.ErrOrderNotFound, want: domain.CodeOrderNotFound},
		{err: domain.ErrInsufficientStock, want: domain.CodeInsufficientStock},
		{err: domain.ErrCustomerHasOrders, want: domain.CodeCustomerHasOrders},
		{err: domain.ErrConflict, want: domain.CodeConflict},
		{err: domain.ErrIdempotencyHashMismatch, want: domain.CodeIdempotency},
		{err: errors.New("connection refused"), want: domain.CodeStore},
	}

	for _, tc := range cases {
		if got := domain.Code(tc.err); got != tc.want {
			t.Fatalf("Code(%v): expected %q, got %q", tc.err, tc.want, got)
		}
	}
}

func TestCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("place order: %w", domain.ErrInsufficientStock)
	if got := domain.Code(wrapped); got != domain.CodeInsufficientStock {
		t.Fatalf("expected %q for wrapped error, got %q", domain.CodeInsufficientStock, got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !domain.IsRetryable(domain.ErrConflict) {
		t.Fatal("conflict must be retryable")
	}
	if !domain.IsRetryable(errors.New("dial tcp: connection refused")) {
		t.Fatal("store errors must be retryable")
	}
	for _, err := range []error{
		domain.ErrDuplicateEmail,
		domain.ErrInsufficientStock,
		domain.ErrCustomerNotFound,
		domain.ErrInvalidPrice,
		nil,
	} {
		if domain.IsRetryable(err) {
			t.Fatalf("error %v must not be retryable", err)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !domain.IsNotFound(domain.ErrCustomerNotFound) || !domain.IsNotFound(domain.ErrProductNotFound) {
		t.Fatal("not-found variants must be reported")
	}
	if domain.IsNotFound(domain.ErrConflict) {
		t.Fatal("conflict is not a not-found error")
	}
}
