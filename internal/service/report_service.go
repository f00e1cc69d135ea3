package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/config"
	"github.com/nurpe/gigpay/internal/model"
)

type ReportStore interface {
	BestProfession(ctx context.Context, start, end time.Time) (*model.ProfessionEarnings, error)
	BestClients(ctx context.Context, start, end time.Time, limit int) ([]model.ClientPayments, error)
}

// ExcelGenerator renders the best-clients report as a workbook.
type ExcelGenerator interface {
	Generate(report model.BestClientsReport) ([]byte, error)
}

type ReportService struct {
	store ReportStore
	excel ExcelGenerator
	cfg   *config.Config
}

func NewReportService(store ReportStore, excel ExcelGenerator, cfg *config.Config) *ReportService {
	return &ReportService{store: store, excel: excel, cfg: cfg}
}

func (s *ReportService) BestProfession(ctx context.Context, start, end time.Time) (*model.ProfessionEarnings, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	row, err := s.store.BestProfession(ctx, start, end)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row, nil
}

func (s *ReportService) BestClients(ctx context.Context, start, end time.Time, limit int) ([]model.ClientPayments, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.Billing.DefaultReportLimit
	}
	return s.store.BestClients(ctx, start, end, limit)
}

// ExportBestClients renders the best-clients rows as an xlsx attachment.
func (s *ReportService) ExportBestClients(ctx context.Context, start, end time.Time, limit int) (*FileResult, error) {
	clients, err := s.BestClients(ctx, start, end, limit)
	if err != nil {
		return nil, err
	}

	content, err := s.excel.Generate(model.BestClientsReport{
		PeriodStart: start,
		PeriodEnd:   end,
		Clients:     clients,
	})
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("best-clients-%s-%s.xlsx", start.Format("20060102"), end.Format("20060102"))
	return &FileResult{FileName: fileName, Content: content}, nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}
	if start.After(end) {
		return fmt.Errorf("%w: start must be before or equal to end", ErrInvalidInput)
	}
	return nil
}
