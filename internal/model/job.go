package model

import (
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID          uuid.UUID  `json:"id"`
	ContractID  uuid.UUID  `json:"contract_id"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Paid        bool       `json:"paid"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Receipt carries everything needed to render a payment receipt
// for a settled job.
type Receipt struct {
	Job        Job
	Contract   Contract
	Client     Profile
	Contractor Profile
}
