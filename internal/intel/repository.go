package intel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
)

// Entity kinds tracked in the intel graph.
const (
	EntityKindVPA    = "VPA"
	EntityKindDevice = "DEVICE"
	EntityKindIP     = "IP"
)

// unknownEntityRisk is assumed for entities the graph has never observed.
const unknownEntityRisk = 0.3

const recordScanCypher = `
MERGE (v:VPA {id: $vpa})
ON CREATE SET v.firstSeen = $scannedAt
SET v.lastSeen = $scannedAt
MERGE (s:Scan {id: $scanId})
SET s.riskScore = $riskScore,
    s.verdict = $verdict,
    s.scannedAt = $scannedAt
MERGE (s)-[:TARGETED]->(v)
FOREACH (d IN CASE WHEN $deviceId <> '' THEN [$deviceId] ELSE [] END |
  MERGE (dev:Device {id: d})
  MERGE (s)-[:FROM_DEVICE]->(dev)
  MERGE (dev)-[:TOUCHED]->(v)
)
FOREACH (ip IN CASE WHEN $ipAddress <> '' THEN [$ipAddress] ELSE [] END |
  MERGE (addr:IP {id: ip})
  MERGE (s)-[:FROM_IP]->(addr)
  MERGE (addr)-[:TOUCHED]->(v)
)
`

const vpaProfileCypher = `
MATCH (v:VPA {id: $id})
OPTIONAL MATCH (s:Scan)-[:TARGETED]->(v)
OPTIONAL MATCH (peer)-[:TOUCHED]->(v)
RETURN count(DISTINCT s) AS scanCount,
       count(DISTINCT peer) AS peerCount,
       count(DISTINCT CASE WHEN s.verdict = 'Scam' THEN s END) AS fraudCount
`

const deviceProfileCypher = `
MATCH (d:Device {id: $id})
OPTIONAL MATCH (s:Scan)-[:FROM_DEVICE]->(d)
OPTIONAL MATCH (d)-[:TOUCHED]->(v:VPA)
RETURN count(DISTINCT s) AS scanCount,
       count(DISTINCT v) AS peerCount,
       count(DISTINCT CASE WHEN s.verdict = 'Scam' THEN s END) AS fraudCount
`

const ipProfileCypher = `
MATCH (a:IP {id: $id})
OPTIONAL MATCH (s:Scan)-[:FROM_IP]->(a)
OPTIONAL MATCH (a)-[:TOUCHED]->(v:VPA)
RETURN count(DISTINCT s) AS scanCount,
       count(DISTINCT v) AS peerCount,
       count(DISTINCT CASE WHEN s.verdict = 'Scam' THEN s END) AS fraudCount
`

const flaggedVPAsCypher = `
MATCH (s:Scan)-[:TARGETED]->(v:VPA)
WITH v, count(s) AS scans,
     count(CASE WHEN s.verdict = 'Scam' THEN s END) AS frauds
WHERE scans > 0 AND toFloat(frauds) / scans >= $threshold
RETURN v.id AS vpa, scans, frauds
ORDER BY frauds DESC
LIMIT $limit
`

// Repository exposes entity risk lookups and scan recording over the graph client.
type Repository struct {
	client Client
}

// NewRepository instantiates a Repository backed by the supplied graph client.
func NewRepository(client Client) *Repository {
	return &Repository{client: client}
}

// RecordScan persists a completed scan and links the involved entities so
// repeated scans enrich the fraud-rate profiles.
func (r *Repository) RecordScan(ctx context.Context, outcome domain.ScanOutcome) error {
	if outcome.VPA == "" {
		return errors.New("scan outcome requires a VPA")
	}

	scannedAt := outcome.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	params := map[string]any{
		"vpa":       outcome.VPA,
		"deviceId":  outcome.DeviceID,
		"ipAddress": outcome.IPAddress,
		"riskScore": outcome.RiskScore,
		"verdict":   outcome.Verdict,
		"scannedAt": scannedAt.UTC().Format(time.RFC3339),
		"scanId":    fmt.Sprintf("%s|%d", outcome.VPA, scannedAt.UnixNano()),
	}

	if _, err := r.client.ExecuteWrite(ctx, recordScanCypher, params); err != nil {
		return fmt.Errorf("record scan for %s: %w", outcome.VPA, err)
	}
	return nil
}

// EntityProfile returns the graph's aggregate view of a device, IP, or VPA.
func (r *Repository) EntityProfile(ctx context.Context, kind, id string) (domain.EntityProfile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.EntityProfile{}, errors.New("entity id is required")
	}

	var cypher string
	switch kind {
	case EntityKindVPA:
		cypher = vpaProfileCypher
	case EntityKindDevice:
		cypher = deviceProfileCypher
	case EntityKindIP:
		cypher = ipProfileCypher
	default:
		return domain.EntityProfile{}, fmt.Errorf("unknown entity kind %q", kind)
	}

	res, err := r.client.ExecuteRead(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return domain.EntityProfile{}, fmt.Errorf("fetch %s profile for %s: %w", kind, id, err)
	}

	profile := domain.EntityProfile{Kind: kind, ID: id}
	if len(res.Records) == 0 {
		return profile, nil
	}

	rec := res.Records[0]
	profile.TransactionCount = toInt64(rec["scanCount"])
	profile.DistinctPeers = toInt64(rec["peerCount"])
	profile.FraudCount = toInt64(rec["fraudCount"])
	if profile.TransactionCount > 0 {
		profile.FraudRate = float64(profile.FraudCount) / float64(profile.TransactionCount)
	}
	return profile, nil
}

// FlaggedVPAs lists VPAs whose observed fraud rate meets or exceeds the threshold.
func (r *Repository) FlaggedVPAs(ctx context.Context, threshold float64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	if threshold <= 0 {
		threshold = 0.5
	}

	res, err := r.client.ExecuteRead(ctx, flaggedVPAsCypher, map[string]any{
		"threshold": threshold,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list flagged VPAs: %w", err)
	}

	vpas := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if vpa := toString(rec["vpa"]); vpa != "" {
			vpas = append(vpas, vpa)
		}
	}
	return vpas, nil
}

// DeviceRisk implements risk.EntityRiskSource.
func (r *Repository) DeviceRisk(ctx context.Context, deviceID string) float64 {
	return r.entityRisk(ctx, EntityKindDevice, deviceID)
}

// IPRisk implements risk.EntityRiskSource.
func (r *Repository) IPRisk(ctx context.Context, ip string) float64 {
	return r.entityRisk(ctx, EntityKindIP, ip)
}

// VPARisk implements risk.EntityRiskSource.
func (r *Repository) VPARisk(ctx context.Context, vpa string) float64 {
	return r.entityRisk(ctx, EntityKindVPA, vpa)
}

func (r *Repository) entityRisk(ctx context.Context, kind, id string) float64 {
	profile, err := r.EntityProfile(ctx, kind, id)
	if err != nil || profile.TransactionCount == 0 {
		return unknownEntityRisk
	}
	return profile.FraudRate
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toString(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
