package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kshitij/safepay/backend/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Options{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return st
}

func TestCreateAndListReports(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	created, err := st.CreateReport(ctx, domain.ScamReport{
		ReporterPhone: "9876543210",
		VPA:           "win4u@freepay",
		Category:      "lottery",
		Description:   "Asked me to pay a claim fee",
		Amount:        99,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}
	if created.Status != domain.ReportStatusOpen {
		t.Fatalf("expected OPEN status, got %s", created.Status)
	}

	result, err := st.ListReports(ctx, ReportListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected total 1, got %d", result.Total)
	}
	if result.Items[0].VPA != "win4u@freepay" {
		t.Fatalf("unexpected VPA: %s", result.Items[0].VPA)
	}
}

func TestListReportsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, vpa := range []string{"a.one@okaxis", "b.two@ybl", "a.one@okaxis"} {
		if _, err := st.CreateReport(ctx, domain.ScamReport{VPA: vpa}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	result, err := st.ListReports(ctx, ReportListOptions{VPA: "a.one@okaxis"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 filtered reports, got %d", result.Total)
	}

	count, err := st.ReportCountForVPA(ctx, "b.two@ybl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 report for VPA, got %d", count)
	}
}

func TestUpdateReportStatus(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	created, err := st.CreateReport(ctx, domain.ScamReport{VPA: "win4u@freepay"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := st.UpdateReportStatus(ctx, created.ID, domain.ReportStatusConfirmed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := st.ListReports(ctx, ReportListOptions{Status: domain.ReportStatusConfirmed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected confirmed report, got total %d", result.Total)
	}

	if err := st.UpdateReportStatus(ctx, "missing-id", domain.ReportStatusDismissed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChatHistoryChronologicalOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	turns := []domain.ChatTurn{
		{ConversationID: "conv-1", Question: "What is a VPA?", Answer: "A UPI payment address."},
		{ConversationID: "conv-1", Question: "Is OTP sharing safe?", Answer: "Never share your OTP."},
		{ConversationID: "conv-2", Question: "Unrelated?", Answer: "Yes."},
	}
	for _, turn := range turns {
		if err := st.SaveChatTurn(ctx, turn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := st.ChatHistory(ctx, "conv-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Question != "What is a VPA?" {
		t.Fatalf("expected oldest turn first, got %q", history[0].Question)
	}
}

func TestSaveFeedback(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	saved, err := st.SaveFeedback(ctx, domain.FeedbackSample{
		QRText: "upi://pay?pa=win4u@freepay",
		IsScam: true,
		Reason: "Lost money after scanning",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated ID")
	}

	count, err := st.FeedbackCount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 sample, got %d", count)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
