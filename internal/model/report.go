package model

import (
	"time"

	"github.com/google/uuid"
)

type ProfessionEarnings struct {
	Profession string  `json:"profession"`
	Earned     float64 `json:"earned"`
}

type ClientPayments struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Paid     float64   `json:"paid"`
}

type BestClientsReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Clients     []ClientPayments
}
