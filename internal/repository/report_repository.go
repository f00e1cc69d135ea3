package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/service"
)

type ReportRepository struct {
	db *gorm.DB
}

var _ service.ReportStore = (*ReportRepository)(nil)

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// BestProfession returns the profession whose contractors earned the most
// from jobs paid inside the window. Ties resolve to the smallest profession
// name so the result is deterministic.
func (r *ReportRepository) BestProfession(ctx context.Context, start, end time.Time) (*model.ProfessionEarnings, error) {
	var rows []model.ProfessionEarnings
	if err := r.db.WithContext(ctx).Raw(`
		SELECT p.profession, SUM(j.price) AS earned
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles p ON p.id = c.contractor_id
		WHERE j.paid = TRUE
			AND j.payment_date >= ?
			AND j.payment_date <= ?
		GROUP BY p.profession
		ORDER BY earned DESC, p.profession ASC
		LIMIT 1
	`, start, end).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// BestClients returns the clients that paid the most inside the window,
// descending, truncated to limit.
func (r *ReportRepository) BestClients(ctx context.Context, start, end time.Time, limit int) ([]model.ClientPayments, error) {
	var rows []model.ClientPayments
	if err := r.db.WithContext(ctx).Raw(`
		SELECT p.id, p.first_name || ' ' || p.last_name AS full_name, SUM(j.price) AS paid
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles p ON p.id = c.client_id
		WHERE j.paid = TRUE
			AND j.payment_date >= ?
			AND j.payment_date <= ?
		GROUP BY p.id, p.first_name, p.last_name
		ORDER BY SUM(j.price) DESC, full_name ASC
		LIMIT ?
	`, start, end, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
