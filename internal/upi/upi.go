// Package upi provides parsing and validation primitives for UPI payment
// identifiers (VPAs) and upi:// QR payloads.
package upi

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kshitij/safepay/backend/internal/domain"
)

var (
	// vpaRegex accepts UPI-like identifiers of the form handle@provider.
	vpaRegex = regexp.MustCompile(`^[a-zA-Z0-9.\-]{3,256}@[a-zA-Z]{3,64}$`)

	// bareVPARegex finds a VPA embedded in free text.
	bareVPARegex = regexp.MustCompile(`([a-zA-Z0-9.\-_]+@[a-zA-Z0-9]+)`)

	phoneRegex = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

// knownProviders are the bank handles recognised as established UPI PSPs.
var knownProviders = map[string]struct{}{
	"okaxis":     {},
	"okicici":    {},
	"okhdfcbank": {},
	"oksbi":      {},
	"ybl":        {},
	"axl":        {},
	"pytm":       {},
	"paytm":      {},
	"fbpay":      {},
	"gpay":       {},
	"ibl":        {},
}

// IsValidVPA reports whether the value matches the UPI VPA syntax.
func IsValidVPA(vpa string) bool {
	return vpaRegex.MatchString(strings.TrimSpace(vpa))
}

// IsValidPhone reports whether the value is a 10-digit Indian mobile number.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(phone))
}

// IsKnownProvider reports whether the provider part of a VPA belongs to an
// established PSP handle.
func IsKnownProvider(provider string) bool {
	_, ok := knownProviders[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}

// SplitVPA separates a VPA into its handle and provider parts. ok is false when
// the value does not contain exactly one '@'.
func SplitVPA(vpa string) (handle, provider string, ok bool) {
	parts := strings.Split(strings.TrimSpace(vpa), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ParseQR extracts payment fields from a scanned QR payload. upi:// URIs are
// parsed as query strings; anything else falls back to locating a bare VPA in
// the text. Amount parse failures yield 0 rather than an error.
func ParseQR(raw string) domain.QRPayload {
	payload := domain.QRPayload{
		Raw:        raw,
		ParamCount: strings.Count(raw, "&"),
	}

	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "upi://"):
		payload.IsUPI = true
		parseUPIParams(trimmed, &payload)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		payload.IsURL = true
	default:
		if match := bareVPARegex.FindString(trimmed); match != "" {
			payload.PayeeVPA = match
		}
	}

	payload.SyntaxValid = payload.PayeeVPA != "" && IsValidVPA(payload.PayeeVPA)
	return payload
}

func parseUPIParams(raw string, payload *domain.QRPayload) {
	idx := strings.Index(raw, "?")
	if idx < 0 || idx == len(raw)-1 {
		return
	}

	values, err := url.ParseQuery(raw[idx+1:])
	if err != nil {
		// Malformed query strings still get a best-effort VPA extraction.
		if match := bareVPARegex.FindString(raw); match != "" {
			payload.PayeeVPA = match
		}
		return
	}

	payload.PayeeVPA = values.Get("pa")
	payload.PayeeName = values.Get("pn")
	payload.Note = values.Get("tn")
	payload.Currency = values.Get("cu")

	if am := values.Get("am"); am != "" {
		if amount, err := strconv.ParseFloat(am, 64); err == nil {
			payload.Amount = amount
		}
	}
}
