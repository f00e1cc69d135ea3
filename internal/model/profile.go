package model

import (
	"time"

	"github.com/google/uuid"
)

type ProfileType string

const (
	ProfileTypeClient     ProfileType = "client"
	ProfileTypeContractor ProfileType = "contractor"
)

type Profile struct {
	ID         uuid.UUID   `json:"id"`
	Type       ProfileType `json:"type"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Profession string      `json:"profession"`
	Balance    float64     `json:"balance"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (p Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}

func (p Profile) IsClient() bool {
	return p.Type == ProfileTypeClient
}

func (p Profile) IsContractor() bool {
	return p.Type == ProfileTypeContractor
}
