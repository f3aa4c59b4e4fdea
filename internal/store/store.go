// Package store provides relational persistence for scam reports, chat
// history, and scan feedback using GORM over SQLite or Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kshitij/safepay/backend/internal/domain"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Options configures the database connection.
type Options struct {
	Driver string
	DSN    string
}

// scamReportRecord is the GORM model behind domain.ScamReport.
type scamReportRecord struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	ReporterPhone string    `gorm:"type:varchar(20);index:idx_scam_reports_reporter"`
	VPA           string    `gorm:"type:varchar(320);not null;index:idx_scam_reports_vpa"`
	Category      string    `gorm:"type:varchar(50)"`
	Description   string    `gorm:"type:text"`
	Amount        float64   `gorm:"not null;default:0"`
	Status        string    `gorm:"type:varchar(20);not null;index:idx_scam_reports_status"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (scamReportRecord) TableName() string { return "scam_reports" }

// chatTurnRecord persists one question/answer pair of a conversation.
type chatTurnRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"type:varchar(36);not null;index:idx_chat_turns_conversation"`
	Question       string    `gorm:"type:text;not null"`
	Answer         string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (chatTurnRecord) TableName() string { return "chat_turns" }

// feedbackRecord persists one labelled scan payload.
type feedbackRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	QRText    string    `gorm:"type:text;not null"`
	IsScam    bool      `gorm:"not null"`
	Reason    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (feedbackRecord) TableName() string { return "feedback_samples" }

// Store wraps the GORM handle with the operations the services need.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and runs migrations.
func Open(opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite, "":
		dsn := opts.DSN
		if dsn == "" {
			dsn = "safepay.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if err := db.AutoMigrate(&scamReportRecord{}, &chatTurnRecord{}, &feedbackRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping verifies database connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.WithContext(ctx).DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateReport persists a new scam report, assigning ID, status, and timestamps.
func (s *Store) CreateReport(ctx context.Context, report domain.ScamReport) (domain.ScamReport, error) {
	now := time.Now().UTC()
	rec := scamReportRecord{
		ID:            uuid.NewString(),
		ReporterPhone: report.ReporterPhone,
		VPA:           report.VPA,
		Category:      report.Category,
		Description:   report.Description,
		Amount:        report.Amount,
		Status:        domain.ReportStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.ScamReport{}, fmt.Errorf("store: create report: %w", err)
	}
	return reportFromRecord(rec), nil
}

// ReportListOptions filters and paginates report listings.
type ReportListOptions struct {
	Offset int
	Limit  int
	VPA    string
	Status string
}

// ListReports returns a page of scam reports plus the backing total.
func (s *Store) ListReports(ctx context.Context, opts ReportListOptions) (domain.ReportListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&scamReportRecord{})
	if opts.VPA != "" {
		query = query.Where("vpa = ?", opts.VPA)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.ReportListResult{}, fmt.Errorf("store: count reports: %w", err)
	}

	var records []scamReportRecord
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return domain.ReportListResult{}, fmt.Errorf("store: list reports: %w", err)
	}

	items := make([]domain.ScamReport, 0, len(records))
	for _, rec := range records {
		items = append(items, reportFromRecord(rec))
	}
	return domain.ReportListResult{Items: items, Total: total}, nil
}

// UpdateReportStatus transitions a report to a new lifecycle state.
func (s *Store) UpdateReportStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&scamReportRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("store: update report status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportCountForVPA returns how many reports exist for a VPA.
func (s *Store) ReportCountForVPA(ctx context.Context, vpa string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&scamReportRecord{}).Where("vpa = ?", vpa).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("store: count reports for vpa: %w", err)
	}
	return count, nil
}

// SaveChatTurn appends a completed question/answer pair to a conversation.
func (s *Store) SaveChatTurn(ctx context.Context, turn domain.ChatTurn) error {
	rec := chatTurnRecord{
		ConversationID: turn.ConversationID,
		Question:       turn.Question,
		Answer:         turn.Answer,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("store: save chat turn: %w", err)
	}
	return nil
}

// ChatHistory returns up to limit turns of a conversation, oldest first.
func (s *Store) ChatHistory(ctx context.Context, conversationID string, limit int) ([]domain.ChatTurn, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []chatTurnRecord
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("store: fetch chat history: %w", err)
	}

	// Reverse to chronological order for prompt replay.
	turns := make([]domain.ChatTurn, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		turns = append(turns, domain.ChatTurn{
			ConversationID: rec.ConversationID,
			Question:       rec.Question,
			Answer:         rec.Answer,
			CreatedAt:      rec.CreatedAt,
		})
	}
	return turns, nil
}

// SaveFeedback persists a labelled scan payload.
func (s *Store) SaveFeedback(ctx context.Context, sample domain.FeedbackSample) (domain.FeedbackSample, error) {
	rec := feedbackRecord{
		ID:        uuid.NewString(),
		QRText:    sample.QRText,
		IsScam:    sample.IsScam,
		Reason:    sample.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.FeedbackSample{}, fmt.Errorf("store: save feedback: %w", err)
	}
	sample.ID = rec.ID
	sample.CreatedAt = rec.CreatedAt
	return sample, nil
}

// FeedbackCount returns the number of stored feedback samples.
func (s *Store) FeedbackCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&feedbackRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count feedback: %w", err)
	}
	return count, nil
}

func reportFromRecord(rec scamReportRecord) domain.ScamReport {
	return domain.ScamReport{
		ID:            rec.ID,
		ReporterPhone: rec.ReporterPhone,
		VPA:           rec.VPA,
		Category:      rec.Category,
		Description:   rec.Description,
		Amount:        rec.Amount,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
