package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/gigpay/internal/model"
)

// Store is the durable-store surface the services depend on. Not-found
// lookups return gorm.ErrRecordNotFound.
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListContractsForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Contract, error)
	GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error)
	ListUnpaidJobsForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Job, error)
	SumOutstanding(ctx context.Context, clientID uuid.UUID) (float64, error)

	// InTransaction runs fn inside one serializable transaction and rolls
	// back on any returned error or panic.
	InTransaction(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the transaction-scoped store handed to InTransaction callbacks.
// The ForUpdate reads hold row locks until the transaction ends.
type TxStore interface {
	GetProfileForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetJobForUpdate(ctx context.Context, id uuid.UUID) (*model.Job, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	SumOutstanding(ctx context.Context, clientID uuid.UUID) (float64, error)
	MarkJobPaid(ctx context.Context, jobID uuid.UUID, paidAt time.Time) error
	AdjustBalance(ctx context.Context, profileID uuid.UUID, delta float64) error
}
