package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/market/internal/domain"
)

// helper для создания валидного клиента.
func makeCustomer() domain.Customer {
	now := time.Now().UTC()
	return domain.Customer{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Phone:     "+1-202-555-0101",
		Address:   "1 Main St, Springfield",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCustomerValidate_Ok(t *testing.T) {
	customer := makeCustomer()
	if err := customer.Validate(); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestCustomerValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(c *domain.Customer)
		want error
	}{
		{
			name: "no first name",
			mut:  func(c *domain.Customer) { c.FirstName = "" },
			want: domain.ErrFirstNameRequired,
		},
		{
			name: "no last name",
			mut:  func(c *domain.Customer) { c.LastName = "" },
			want: domain.ErrLastNameRequired,
		},
		{
			name: "no email",
			mut:  func(c *domain.Customer) { c.Email = "" },
			want: domain.ErrEmailRequired,
		},
		{
			name: "email without domain",
			mut:  func(c *domain.Customer) { c.Email = "jane@" },
			want: domain.ErrEmailInvalid,
		},
		{
			name: "email without tld",
			mut:  func(c *domain.Customer) { c.Email = "jane@host" },
			want: domain.ErrEmailInvalid,
		},
		{
			name: "email with spaces",
			mut:  func(c *domain.Customer) { c.Email = "ja ne@x.com" },
			want: domain.ErrEmailInvalid,
		},
		{
			name: "no phone",
			mut:  func(c *domain.Customer) { c.Phone = "" },
			want: domain.ErrPhoneRequired,
		},
		{
			name: "no address",
			mut:  func(c *domain.Customer) { c.Address = "" },
			want: domain.ErrAddressRequired,
		},
		{
			name: "first name too long",
			mut:  func(c *domain.Customer) { c.FirstName = strings.Repeat("a", domain.MaxNameLen+1) },
			want: domain.ErrFieldTooLong,
		},
		{
			name: "address too long",
			mut:  func(c *domain.Customer) { c.Address = strings.Repeat("a", domain.MaxAddressLen+1) },
			want: domain.ErrFieldTooLong,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			customer := makeCustomer()
			tc.mut(&customer)

			err := customer.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
