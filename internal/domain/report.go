package domain

import "time"

// Scam report lifecycle states.
const (
	ReportStatusOpen      = "OPEN"
	ReportStatusReviewing = "REVIEWING"
	ReportStatusConfirmed = "CONFIRMED"
	ReportStatusDismissed = "DISMISSED"
)

// ScamReport is a user-submitted report about a suspicious VPA or message.
type ScamReport struct {
	ID            string    `json:"id"`
	ReporterPhone string    `json:"reporterPhone"`
	VPA           string    `json:"vpa"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FeedbackSample is a labelled scan payload submitted by a user after a scan.
type FeedbackSample struct {
	ID        string    `json:"id"`
	QRText    string    `json:"qrText"`
	IsScam    bool      `json:"isScam"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReportListResult is a page of scam reports with the backing total.
type ReportListResult struct {
	Items []ScamReport
	Total int64
}

// EntityProfile summarizes the intel graph's view of a device, IP, or VPA.
type EntityProfile struct {
	Kind             string  `json:"kind"`
	ID               string  `json:"id"`
	TransactionCount int64   `json:"transactionCount"`
	DistinctAccounts int64   `json:"distinctAccounts"`
	DistinctPeers    int64   `json:"distinctPeers"`
	FraudCount       int64   `json:"fraudCount"`
	FraudRate        float64 `json:"fraudRate"`
}
