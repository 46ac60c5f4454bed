package dto

import (
	"encoding/json"
	"time"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
)

// AuditEntryResponse represents an audit entry in API responses. Sealed payloads
// are returned as stored unless the entry was revealed.
type AuditEntryResponse struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	SequenceNo   uint64          `json:"sequence_no"`
	EventType    string          `json:"event_type"`
	Category     string          `json:"category"`
	Severity     string          `json:"severity"`
	ActorID      string          `json:"actor_id"`
	ActorName    string          `json:"actor_name"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Action       string          `json:"action,omitempty"`
	IP           string          `json:"ip,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Sealed       bool            `json:"sealed"`
	Timestamp    time.Time       `json:"timestamp"`
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previous_hash"`
}

// ListAuditEntriesResponse wraps a page of entries.
type ListAuditEntriesResponse struct {
	Data []AuditEntryResponse `json:"data"`
}

// ChainBreakResponse locates the first divergence of a chain.
type ChainBreakResponse struct {
	BrokenAtSequence uint64 `json:"broken_at_sequence"`
	Kind             string `json:"kind"`
	Expected         string `json:"expected,omitempty"`
	Actual           string `json:"actual,omitempty"`
}

// VerificationResponse reports a chain verification.
type VerificationResponse struct {
	TenantID        string              `json:"tenant_id"`
	FromSeq         uint64              `json:"from_seq"`
	ToSeq           uint64              `json:"to_seq"`
	EntriesVerified uint64              `json:"entries_verified"`
	Valid           bool                `json:"valid"`
	Break           *ChainBreakResponse `json:"break,omitempty"`
	HeadHash        string              `json:"head_hash,omitempty"`
	VerifiedAt      time.Time           `json:"verified_at"`
}

// MapAuditEntryToResponse converts a domain entry to an API response.
func MapAuditEntryToResponse(entry *auditDomain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:           entry.ID.String(),
		TenantID:     entry.TenantID,
		SequenceNo:   entry.SequenceNo,
		EventType:    entry.EventType,
		Category:     string(entry.Category),
		Severity:     string(entry.Severity),
		ActorID:      entry.ActorID,
		ActorName:    entry.ActorName,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       string(entry.Action),
		IP:           entry.IP,
		UserAgent:    entry.UserAgent,
		SessionID:    entry.SessionID,
		Details:      entry.Details,
		Before:       entry.Before,
		After:        entry.After,
		Sealed:       entry.Sealed(),
		Timestamp:    entry.Timestamp,
		Hash:         entry.Hash,
		PreviousHash: entry.PreviousHash,
	}
}

// MapAuditEntriesToListResponse converts domain entries to a list response.
func MapAuditEntriesToListResponse(entries []*auditDomain.AuditEntry) ListAuditEntriesResponse {
	data := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, MapAuditEntryToResponse(entry))
	}
	return ListAuditEntriesResponse{Data: data}
}

// MapVerificationToResponse converts a verification result to an API response.
func MapVerificationToResponse(result *auditDomain.VerificationResult) VerificationResponse {
	response := VerificationResponse{
		TenantID:        result.TenantID,
		FromSeq:         result.FromSeq,
		ToSeq:           result.ToSeq,
		EntriesVerified: result.EntriesVerified,
		Valid:           result.Valid,
		HeadHash:        result.HeadHash,
		VerifiedAt:      result.VerifiedAt,
	}
	if result.Break != nil {
		response.Break = &ChainBreakResponse{
			BrokenAtSequence: result.Break.BrokenAtSequence,
			Kind:             string(result.Break.Kind),
			Expected:         result.Break.Expected,
			Actual:           result.Break.Actual,
		}
	}
	return response
}
