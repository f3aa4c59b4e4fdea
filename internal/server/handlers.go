package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/risk"
	"github.com/kshitij/safepay/backend/internal/service"
	"github.com/kshitij/safepay/backend/internal/store"
)

// maxVoiceUploadBytes bounds multipart voice note uploads.
const maxVoiceUploadBytes = 10 << 20

// maxReportPageSize caps report listing pages. Must match the store's limit so
// offsets computed from pageSize line up with the rows actually returned.
const maxReportPageSize = 200

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger         *slog.Logger
	scans          *service.ScanService
	checks         *service.CheckService
	messages       *service.MessageService
	chat           *service.ChatService
	reports        *service.ReportService
	intel          service.IntelRepository
	flaggedMinRate float64
}

// APIDependencies collects the services the handlers dispatch to.
type APIDependencies struct {
	Scans          *service.ScanService
	Checks         *service.CheckService
	Messages       *service.MessageService
	Chat           *service.ChatService
	Reports        *service.ReportService
	Intel          service.IntelRepository
	FlaggedMinRate float64
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, deps APIDependencies) *APIHandlers {
	return &APIHandlers{
		logger:         logger,
		scans:          deps.Scans,
		checks:         deps.Checks,
		messages:       deps.Messages,
		chat:           deps.Chat,
		reports:        deps.Reports,
		intel:          deps.Intel,
		flaggedMinRate: deps.FlaggedMinRate,
	}
}

func (h *APIHandlers) handleScanQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload scanQRRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.QRText) == "" {
		writeError(w, http.StatusBadRequest, "qrText is required")
		return
	}

	result := h.scans.Scan(r.Context(), service.ScanInput{
		QRText:    payload.QRText,
		DeviceID:  payload.DeviceID,
		IPAddress: payload.IPAddress,
	})
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handleUPICheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload upiCheckRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.UPIID) == "" {
		writeError(w, http.StatusBadRequest, "upiId is required")
		return
	}

	result := h.checks.CheckUPI(r.Context(), service.CheckInput{
		UPIID:     strings.TrimSpace(payload.UPIID),
		Amount:    payload.Amount,
		DeviceID:  payload.DeviceID,
		IPAddress: payload.IPAddress,
		Message:   payload.Message,
	})
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handleAnalyzeMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload analyzeMessageRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	analysis := h.messages.AnalyzeText(r.Context(), payload.Message)
	respondJSON(w, http.StatusOK, analysis)
}

func (h *APIHandlers) handleScoreTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload scoreTransactionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := risk.TransactionInput{
		Amount:         payload.Amount,
		PayerVPA:       payload.PayerVPA,
		BeneficiaryVPA: payload.BeneficiaryVPA,
		DeviceID:       payload.DeviceID,
		IPAddress:      payload.IPAddress,
		Status:         payload.Status,
	}
	if payload.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, payload.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid timestamp")
			return
		}
		input.Timestamp = ts
	}

	modelScore := -1.0
	if payload.ModelScore != nil {
		modelScore = *payload.ModelScore
	}

	result := h.checks.ScoreTransaction(r.Context(), input, modelScore)
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload chatMessageRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	turn, err := h.chat.Ask(r.Context(), payload.ConversationID, payload.Message)
	if err != nil {
		if errors.Is(err, service.ErrLLMUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "assistant is not available")
			return
		}
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusBadGateway, "assistant request failed")
		return
	}

	respondJSON(w, http.StatusOK, chatMessageResponse{
		ConversationID: turn.ConversationID,
		Answer:         turn.Answer,
	})
}

func (h *APIHandlers) handleVoiceCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxVoiceUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	transcript, analysis, err := h.messages.AnalyzeVoice(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, service.ErrLLMUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "voice analysis is not available")
			return
		}
		h.logger.Error("voice analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "voice analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, voiceCheckResponse{
		Transcript: transcript,
		Analysis:   analysis,
	})
}

func (h *APIHandlers) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload analyzeImageRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.ImageData == "" {
		writeError(w, http.StatusBadRequest, "imageData is required")
		return
	}

	extracted, analysis, err := h.messages.AnalyzeImage(r.Context(), payload.ImageData)
	if err != nil {
		if errors.Is(err, service.ErrLLMUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "image analysis is not available")
			return
		}
		h.logger.Error("image analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "image analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, analyzeImageResponse{
		ExtractedText: extracted,
		Analysis:      analysis,
	})
}

func (h *APIHandlers) handleReportScam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload reportScamRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.reports.Submit(r.Context(), domain.ScamReport{
		ReporterPhone: payload.ReporterPhone,
		VPA:           payload.VPA,
		Category:      payload.Category,
		Description:   payload.Description,
		Amount:        payload.Amount,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidVPA) || errors.Is(err, service.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create scam report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *APIHandlers) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	pageSize := parseInt(query.Get("pageSize"), 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > maxReportPageSize {
		pageSize = maxReportPageSize
	}

	result, err := h.reports.List(r.Context(), store.ReportListOptions{
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
		VPA:    query.Get("vpa"),
		Status: strings.ToUpper(query.Get("status")),
	})
	if err != nil {
		h.logger.Error("failed to list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	totalPages := int(result.Total) / pageSize
	if int(result.Total)%pageSize != 0 {
		totalPages++
	}

	items := result.Items
	if items == nil {
		items = []domain.ScamReport{}
	}
	respondJSON(w, http.StatusOK, listReportsResponse{
		Items: items,
		Pagination: paginationResponse{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: result.Total,
			TotalPages: totalPages,
		},
	})
}

func (h *APIHandlers) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, http.MethodPatch)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	reportID := strings.TrimSuffix(rest, "/status")
	reportID = strings.Trim(reportID, "/")
	if reportID == "" || !strings.HasSuffix(rest, "/status") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var payload reportStatusRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reports.UpdateStatus(r.Context(), reportID, payload.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "report not found")
		default:
			h.logger.Error("failed to update report status", "error", err, "reportId", reportID)
			writeError(w, http.StatusInternalServerError, "failed to update report")
		}
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: reportID})
}

func (h *APIHandlers) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload feedbackRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.QRText) == "" {
		writeError(w, http.StatusBadRequest, "qrText is required")
		return
	}

	saved, err := h.reports.SubmitFeedback(r.Context(), domain.FeedbackSample{
		QRText: payload.QRText,
		IsScam: payload.IsScam,
		Reason: payload.Reason,
	})
	if err != nil {
		h.logger.Error("failed to save feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (h *APIHandlers) handleFlaggedVPAs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if h.intel == nil {
		writeError(w, http.StatusServiceUnavailable, "intel graph is not configured")
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	vpas, err := h.intel.FlaggedVPAs(r.Context(), h.flaggedMinRate, limit)
	if err != nil {
		h.logger.Error("failed to list flagged VPAs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flagged VPAs")
		return
	}
	if vpas == nil {
		vpas = []string{}
	}

	respondJSON(w, http.StatusOK, flaggedVPAsResponse{Items: vpas})
}

// --- Request & Response DTOs ---

type scanQRRequest struct {
	QRText    string `json:"qrText"`
	DeviceID  string `json:"deviceId"`
	IPAddress string `json:"ipAddress"`
}

type upiCheckRequest struct {
	UPIID     string  `json:"upiId"`
	Amount    float64 `json:"amount"`
	DeviceID  string  `json:"deviceId"`
	IPAddress string  `json:"ipAddress"`
	Message   string  `json:"message"`
}

type analyzeMessageRequest struct {
	Message string `json:"message"`
}

type scoreTransactionRequest struct {
	Amount         float64  `json:"amount"`
	PayerVPA       string   `json:"payerVpa"`
	BeneficiaryVPA string   `json:"beneficiaryVpa"`
	DeviceID       string   `json:"deviceId"`
	IPAddress      string   `json:"ipAddress"`
	Timestamp      string   `json:"timestamp"`
	Status         string   `json:"status"`
	ModelScore     *float64 `json:"modelScore"`
}

type chatMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type chatMessageResponse struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
}

type voiceCheckResponse struct {
	Transcript string                 `json:"transcript"`
	Analysis   domain.MessageAnalysis `json:"analysis"`
}

type analyzeImageRequest struct {
	ImageData string `json:"imageData"`
}

type analyzeImageResponse struct {
	ExtractedText string                 `json:"extractedText"`
	Analysis      domain.MessageAnalysis `json:"analysis"`
}

type reportScamRequest struct {
	ReporterPhone string  `json:"reporterPhone"`
	VPA           string  `json:"vpa"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
}

type reportStatusRequest struct {
	Status string `json:"status"`
}

type feedbackRequest struct {
	QRText string `json:"qrText"`
	IsScam bool   `json:"isScam"`
	Reason string `json:"reason"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type listReportsResponse struct {
	Items      []domain.ScamReport `json:"items"`
	Pagination paginationResponse  `json:"pagination"`
}

type flaggedVPAsResponse struct {
	Items []string `json:"items"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// --- Helpers ---

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
