package model

import "github.com/google/uuid"

// Principal is the resolved caller identity attached to each request.
type Principal struct {
	ProfileID uuid.UUID
	Type      ProfileType
}

func (p Principal) IsClient() bool {
	return p.Type == ProfileTypeClient
}

func (p Principal) IsContractor() bool {
	return p.Type == ProfileTypeContractor
}
