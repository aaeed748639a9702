package domain

import (
	"regexp"
	"time"
)

// Границы длины полей клиента; проверяются до обращения к хранилищу.
const (
	MaxNameLen    = 100
	MaxEmailLen   = 255
	MaxPhoneLen   = 32
	MaxAddressLen = 500
)

// emailPattern проверяет базовую форму local@domain.tld без попытки полной валидации RFC.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Customer представляет покупателя маркетплейса.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательность, формат и длину полей.
// Возвращает первую нарушенную проверку; при ошибке мутация не выполняется.
func (c *Customer) Validate() error {
	if c.FirstName == "" {
		return ErrFirstNameRequired
	}
	if c.LastName == "" {
		return ErrLastNameRequired
	}
	if c.Email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(c.Email) {
		return ErrEmailInvalid
	}
	if c.Phone == "" {
		return ErrPhoneRequired
	}
	if c.Address == "" {
		return ErrAddressRequired
	}
	if len(c.FirstName) > MaxNameLen || len(c.LastName) > MaxNameLen ||
		len(c.Email) > MaxEmailLen || len(c.Phone) > MaxPhoneLen ||
		len(c.Address) > MaxAddressLen {
		return ErrFieldTooLong
	}
	return nil
}
