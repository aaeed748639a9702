package app

import "github.com/vladislavdragonenkov/market/internal/domain"

func testCustomer() domain.Customer {
	return domain.Customer{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane.doe@example.com",
		Phone:     "+1-202-555-0101",
		Address:   "1 Main St",
	}
}
