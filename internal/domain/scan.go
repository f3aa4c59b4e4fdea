package domain

import "time"

// ScanVerdictSource identifies which layer of the fallback chain produced a scan result.
type ScanVerdictSource string

const (
	VerdictSourceLLM       ScanVerdictSource = "llm"
	VerdictSourceIntel     ScanVerdictSource = "intel"
	VerdictSourceHeuristic ScanVerdictSource = "heuristic"
	VerdictSourceDefault   ScanVerdictSource = "default"
)

// QRPayload is the parsed content of a UPI payment QR code.
type QRPayload struct {
	Raw         string
	IsUPI       bool
	IsURL       bool
	PayeeVPA    string
	PayeeName   string
	Amount      float64
	Note        string
	Currency    string
	ParamCount  int
	SyntaxValid bool
}

// ScanResult is the outcome of analyzing a scanned QR payload. Scores use a 0-100 scale.
type ScanResult struct {
	RiskScore int               `json:"risk_score"`
	RiskLevel RiskLevel         `json:"risk_level"`
	Label     string            `json:"label"`
	Reasons   []string          `json:"reasons"`
	Source    ScanVerdictSource `json:"source"`
	Features  ScanFeatures      `json:"features"`
	LatencyMS int64             `json:"latency_ms"`
	Cached    bool              `json:"cached"`
}

// ScanFeatures is the flat feature vector extracted from the raw QR text.
type ScanFeatures struct {
	Length     int `json:"length"`
	HasUPI     int `json:"has_upi"`
	NumParams  int `json:"num_params"`
	Urgent     int `json:"urgent"`
	Payment    int `json:"payment"`
	Currency   int `json:"currency"`
	HasURL     int `json:"has_url"`
	HTTPScheme int `json:"http_scheme"`
}

// MessageAnalysis is the outcome of scam analysis for a free-text message.
type MessageAnalysis struct {
	ScamProbability float64   `json:"scam_probability"`
	IsScam          bool      `json:"is_scam"`
	RiskLevel       RiskLevel `json:"risk_level"`
	WarningFlags    []string  `json:"warning_flags"`
	Explanation     string    `json:"explanation"`
}

// UPICheckResult combines transaction risk and VPA pattern analysis for a UPI ID.
type UPICheckResult struct {
	UPIID           string             `json:"upi_id"`
	RiskScore       float64            `json:"risk_score"`
	RiskLevel       RiskLevel          `json:"risk_level"`
	PatternRisk     float64            `json:"pattern_risk"`
	ReportCount     int64              `json:"report_count"`
	Components      map[string]float64 `json:"risk_components"`
	MessageAnalysis *MessageAnalysis   `json:"message_analysis,omitempty"`
}

// TransactionRisk is the scored outcome for a single transaction. Scores use a 0-10 scale.
type TransactionRisk struct {
	RiskScore  float64            `json:"risk_score"`
	RiskLevel  RiskLevel          `json:"risk_level"`
	Components map[string]float64 `json:"components"`
}

// ScanOutcome records a completed scan so the intel graph can learn from it.
type ScanOutcome struct {
	VPA       string
	DeviceID  string
	IPAddress string
	RiskScore int
	Verdict   string
	ScannedAt time.Time
}
