package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/service"
)

type BillingRepository struct {
	db *gorm.DB
}

var (
	_ service.Store   = (*BillingRepository)(nil)
	_ service.TxStore = (*BillingRepository)(nil)
)

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// InTransaction runs fn against a SERIALIZABLE transaction. Any error
// returned by fn rolls the whole transaction back.
func (r *BillingRepository) InTransaction(ctx context.Context, fn func(tx service.TxStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BillingRepository{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (r *BillingRepository) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.getProfile(ctx, id, "")
}

// GetProfileForUpdate locks the profile row for the duration of the
// surrounding transaction. Concurrent settlements and deposits against the
// same profile serialize on this lock.
func (r *BillingRepository) GetProfileForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.getProfile(ctx, id, " FOR UPDATE")
}

func (r *BillingRepository) getProfile(ctx context.Context, id uuid.UUID, suffix string) (*model.Profile, error) {
	var profile model.Profile
	query := `
		SELECT id, type, first_name, last_name, profession, balance, created_at
		FROM profiles
		WHERE id = ?
	` + suffix
	if err := r.db.WithContext(ctx).Raw(query, id).Scan(&profile).Error; err != nil {
		return nil, err
	}
	if profile.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}

func (r *BillingRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, contractor_id, terms, status, created_at
		FROM contracts
		WHERE id = ?
	`, id).Scan(&contract).Error; err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

func (r *BillingRepository) ListContractsForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, contractor_id, terms, status, created_at
		FROM contracts
		WHERE (client_id = ? OR contractor_id = ?)
			AND status <> 'terminated'
		ORDER BY created_at ASC
	`, profileID, profileID).Scan(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *BillingRepository) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return r.getJob(ctx, id, "")
}

// GetJobForUpdate locks the job row so two settlements of the same job
// cannot both observe paid = false.
func (r *BillingRepository) GetJobForUpdate(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return r.getJob(ctx, id, " FOR UPDATE")
}

func (r *BillingRepository) getJob(ctx context.Context, id uuid.UUID, suffix string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT id, contract_id, description, price, paid, payment_date, updated_at
		FROM jobs
		WHERE id = ?
	` + suffix
	if err := r.db.WithContext(ctx).Raw(query, id).Scan(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &job, nil
}

func (r *BillingRepository) ListUnpaidJobsForProfile(ctx context.Context, profileID uuid.UUID) ([]model.Job, error) {
	var jobs []model.Job
	if err := r.db.WithContext(ctx).Raw(`
		SELECT j.id, j.contract_id, j.description, j.price, j.paid, j.payment_date, j.updated_at
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE (c.client_id = ? OR c.contractor_id = ?)
			AND c.status <> 'terminated'
			AND j.paid = FALSE
		ORDER BY j.updated_at ASC
	`, profileID, profileID).Scan(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// SumOutstanding returns the total price of the client's unpaid jobs on
// non-terminated contracts. This is the base for the deposit cap.
func (r *BillingRepository) SumOutstanding(ctx context.Context, clientID uuid.UUID) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(j.price), 0)
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE c.client_id = ?
			AND c.status <> 'terminated'
			AND j.paid = FALSE
	`, clientID).Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *BillingRepository) MarkJobPaid(ctx context.Context, jobID uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE jobs
		SET paid = TRUE, payment_date = ?, updated_at = ?
		WHERE id = ?
	`, paidAt, paidAt, jobID).Error
}

// AdjustBalance applies a signed delta to the profile balance. The CHECK
// constraint on the column backstops the in-transaction balance guard.
func (r *BillingRepository) AdjustBalance(ctx context.Context, profileID uuid.UUID, delta float64) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE profiles
		SET balance = balance + ?
		WHERE id = ?
	`, delta, profileID).Error
}
