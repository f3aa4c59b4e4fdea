package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/store"
	"github.com/kshitij/safepay/backend/internal/upi"
)

// Validation errors surfaced to the API layer as 400s.
var (
	ErrInvalidVPA    = errors.New("invalid UPI ID format")
	ErrInvalidPhone  = errors.New("invalid phone number format")
	ErrInvalidStatus = errors.New("invalid report status")
)

var validStatuses = map[string]struct{}{
	domain.ReportStatusOpen:      {},
	domain.ReportStatusReviewing: {},
	domain.ReportStatusConfirmed: {},
	domain.ReportStatusDismissed: {},
}

// ReportService handles scam report submission, listing, triage, and scan
// feedback collection.
type ReportService struct {
	logger *slog.Logger
	store  *store.Store
}

// NewReportService constructs a ReportService.
func NewReportService(logger *slog.Logger, st *store.Store) *ReportService {
	return &ReportService{
		logger: logger,
		store:  st,
	}
}

// Submit validates and persists a scam report.
func (s *ReportService) Submit(ctx context.Context, report domain.ScamReport) (domain.ScamReport, error) {
	report.VPA = strings.TrimSpace(report.VPA)
	if !upi.IsValidVPA(report.VPA) {
		return domain.ScamReport{}, ErrInvalidVPA
	}
	if report.ReporterPhone != "" && !upi.IsValidPhone(report.ReporterPhone) {
		return domain.ScamReport{}, ErrInvalidPhone
	}

	created, err := s.store.CreateReport(ctx, report)
	if err != nil {
		return domain.ScamReport{}, err
	}
	s.logger.Info("scam report created", "id", created.ID, "vpa", created.VPA)
	return created, nil
}

// List returns a page of scam reports.
func (s *ReportService) List(ctx context.Context, opts store.ReportListOptions) (domain.ReportListResult, error) {
	return s.store.ListReports(ctx, opts)
}

// UpdateStatus transitions a report through its triage lifecycle.
func (s *ReportService) UpdateStatus(ctx context.Context, id, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := validStatuses[status]; !ok {
		return ErrInvalidStatus
	}
	return s.store.UpdateReportStatus(ctx, id, status)
}

// CountForVPA returns how many reports have been filed against a VPA.
func (s *ReportService) CountForVPA(ctx context.Context, vpa string) (int64, error) {
	return s.store.ReportCountForVPA(ctx, vpa)
}

// SubmitFeedback persists a labelled scan payload for future model training.
func (s *ReportService) SubmitFeedback(ctx context.Context, sample domain.FeedbackSample) (domain.FeedbackSample, error) {
	if strings.TrimSpace(sample.QRText) == "" {
		return domain.FeedbackSample{}, errors.New("qrText is required")
	}
	return s.store.SaveFeedback(ctx, sample)
}
