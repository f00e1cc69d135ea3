package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/config"
	"github.com/nurpe/gigpay/internal/model"
)

// ReceiptGenerator renders a payment receipt for a settled job.
type ReceiptGenerator interface {
	Generate(receipt model.Receipt) ([]byte, error)
}

type BillingService struct {
	store    Store
	receipts ReceiptGenerator
	cfg      *config.Config
	now      func() time.Time
}

func NewBillingService(store Store, receipts ReceiptGenerator, cfg *config.Config) *BillingService {
	return &BillingService{
		store:    store,
		receipts: receipts,
		cfg:      cfg,
		now:      time.Now,
	}
}

type PayJobInput struct {
	Principal model.Principal
	JobID     uuid.UUID
}

type PayJobResult struct {
	Job        model.Job
	NewBalance float64
	// AlreadyPaid marks the idempotent path: the job was settled before this
	// call and nothing was debited.
	AlreadyPaid bool
}

// PayJob settles a job: it marks the job paid and debits the client's
// balance by the job price, both inside one serializable transaction with
// the profile and job rows locked. Re-submitting a settled job succeeds
// without a second debit.
func (s *BillingService) PayJob(ctx context.Context, input PayJobInput) (*PayJobResult, error) {
	if input.JobID == uuid.Nil {
		return nil, fmt.Errorf("%w: job id is required", ErrInvalidInput)
	}

	var result PayJobResult
	err := s.store.InTransaction(ctx, func(tx TxStore) error {
		client, err := tx.GetProfileForUpdate(ctx, input.Principal.ProfileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !client.IsClient() {
			return ErrNotClient
		}

		job, err := tx.GetJobForUpdate(ctx, input.JobID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		contract, err := tx.GetContract(ctx, job.ContractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if contract.ClientID != client.ID {
			return ErrNotParty
		}

		if job.Paid {
			result = PayJobResult{Job: *job, NewBalance: client.Balance, AlreadyPaid: true}
			return nil
		}

		if job.Price > client.Balance {
			return fmt.Errorf("%w: price %.2f, balance %.2f", ErrInsufficientBalance, job.Price, client.Balance)
		}

		paidAt := s.now().UTC()
		if err := tx.MarkJobPaid(ctx, job.ID, paidAt); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, client.ID, -job.Price); err != nil {
			return err
		}

		job.Paid = true
		job.PaymentDate = &paidAt
		job.UpdatedAt = paidAt
		result = PayJobResult{Job: *job, NewBalance: client.Balance - job.Price}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type DepositInput struct {
	Principal model.Principal
	TargetID  uuid.UUID
	Amount    float64
}

type DepositResult struct {
	NewBalance float64
}

// Deposit credits the target client's balance. The amount may not exceed
// the configured share (default 25%) of the client's outstanding unpaid job
// total; with nothing outstanding the cap is zero and every deposit is
// rejected.
func (s *BillingService) Deposit(ctx context.Context, input DepositInput) (*DepositResult, error) {
	if input.Amount <= 0 {
		return nil, ErrAmountRequired
	}
	if input.TargetID == uuid.Nil {
		return nil, fmt.Errorf("%w: target profile id is required", ErrInvalidInput)
	}

	var result DepositResult
	err := s.store.InTransaction(ctx, func(tx TxStore) error {
		target, err := tx.GetProfileForUpdate(ctx, input.TargetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !target.IsClient() {
			return ErrTargetNotClient
		}

		totalDue, err := tx.SumOutstanding(ctx, target.ID)
		if err != nil {
			return err
		}

		maxDeposit := totalDue * s.cfg.Billing.DepositCapRatio
		if input.Amount > maxDeposit {
			return fmt.Errorf("%w: amount %.2f, cap %.2f", ErrDepositCapExceeded, input.Amount, maxDeposit)
		}

		if err := tx.AdjustBalance(ctx, target.ID, input.Amount); err != nil {
			return err
		}
		result = DepositResult{NewBalance: target.Balance + input.Amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetContract returns the contract if the caller is one of its parties.
func (s *BillingService) GetContract(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !contract.IsParty(principal.ProfileID) {
		return nil, ErrNotParty
	}
	return contract, nil
}

// ListContracts returns the caller's non-terminated contracts.
func (s *BillingService) ListContracts(ctx context.Context, principal model.Principal) ([]model.Contract, error) {
	return s.store.ListContractsForProfile(ctx, principal.ProfileID)
}

// ListUnpaidJobs returns the caller's unpaid jobs on active contracts.
func (s *BillingService) ListUnpaidJobs(ctx context.Context, principal model.Principal) ([]model.Job, error) {
	return s.store.ListUnpaidJobsForProfile(ctx, principal.ProfileID)
}

type FileResult struct {
	FileName string
	Content  []byte
}

// JobReceipt renders a PDF receipt for a paid job the caller is party to.
func (s *BillingService) JobReceipt(ctx context.Context, principal model.Principal, jobID uuid.UUID) (*FileResult, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	contract, err := s.store.GetContract(ctx, job.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !contract.IsParty(principal.ProfileID) {
		return nil, ErrNotParty
	}
	if !job.Paid {
		return nil, ErrJobNotPaid
	}

	client, err := s.store.GetProfile(ctx, contract.ClientID)
	if err != nil {
		return nil, err
	}
	contractor, err := s.store.GetProfile(ctx, contract.ContractorID)
	if err != nil {
		return nil, err
	}

	content, err := s.receipts.Generate(model.Receipt{
		Job:        *job,
		Contract:   *contract,
		Client:     *client,
		Contractor: *contractor,
	})
	if err != nil {
		return nil, err
	}

	return &FileResult{
		FileName: fmt.Sprintf("receipt-%s.pdf", job.ID),
		Content:  content,
	}, nil
}
