package domain

import "time"

// Границы длины полей товара.
const (
	MaxProductNameLen        = 200
	MaxProductDescriptionLen = 2000
)

// LowStockThreshold — остаток, ниже которого товар считается заканчивающимся.
const LowStockThreshold = 10

// StockLevel классифицирует остаток товара для отчётных проекций.
type StockLevel string

const (
	StockLevelOut StockLevel = "out_of_stock"
	StockLevelLow StockLevel = "low_stock"
	StockLevelIn  StockLevel = "in_stock"
)

// Product представляет позицию каталога с остатком на складе.
type Product struct {
	ID          int64
	Name        string
	Description string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, копейки).
	PriceMinor int64
	// Stock — текущий остаток; инвариант хранилища: никогда не уходит в минус.
	Stock int32
	// Version используется для optimistic locking при обновлениях.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет инварианты товара до записи в хранилище.
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrProductNameRequired
	}
	if p.Description == "" {
		return ErrProductDescriptionRequired
	}
	if len(p.Name) > MaxProductNameLen || len(p.Description) > MaxProductDescriptionLen {
		return ErrFieldTooLong
	}
	if p.PriceMinor <= 0 {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// StockLevel возвращает классификацию текущего остатка.
func (p *Product) StockLevel() StockLevel {
	switch {
	case p.Stock <= 0:
		return StockLevelOut
	case p.Stock < LowStockThreshold:
		return StockLevelLow
	default:
		return StockLevelIn
	}
}
