package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusNew        ContractStatus = "new"
	ContractStatusInProgress ContractStatus = "in_progress"
	ContractStatusTerminated ContractStatus = "terminated"
)

type Contract struct {
	ID           uuid.UUID      `json:"id"`
	ClientID     uuid.UUID      `json:"client_id"`
	ContractorID uuid.UUID      `json:"contractor_id"`
	Terms        string         `json:"terms"`
	Status       ContractStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// IsParty reports whether the profile is the client or the contractor side.
func (c Contract) IsParty(profileID uuid.UUID) bool {
	return c.ClientID == profileID || c.ContractorID == profileID
}
