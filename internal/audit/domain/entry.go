// Package domain defines the tamper-evident audit chain: entries, chain tails and
// verification results.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the previous hash of the first entry in every tenant chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Category groups audit events for compliance queries.
type Category string

const (
	CategoryAuth     Category = "AUTH"
	CategoryPHI      Category = "PHI"
	CategoryAdmin    Category = "ADMIN"
	CategorySecurity Category = "SECURITY"
	CategoryData     Category = "DATA"
)

// Categories lists every valid category.
var Categories = []Category{CategoryAuth, CategoryPHI, CategoryAdmin, CategorySecurity, CategoryData}

// Action is the optional CRUD verb an entry records.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Actions lists every valid action.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// Severity is the optional urgency of an entry.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every valid severity.
var Severities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

// AuditEntry is one immutable link of a tenant's hash chain.
//
// Optional string fields use "" for absent. Details, Before and After hold the
// stored bytes: plain JSON, or a sealed payload envelope when PayloadKeyID is set.
// Hash covers every other field, so verification never needs key material.
type AuditEntry struct {
	ID           uuid.UUID
	TenantID     string
	SequenceNo   uint64
	EventType    string
	Category     Category
	Severity     Severity
	ActorID      string
	ActorName    string
	ResourceType string
	ResourceID   string
	Action       Action
	IP           string
	UserAgent    string
	SessionID    string
	Details      json.RawMessage
	Before       json.RawMessage
	After        json.RawMessage
	PayloadKeyID *uint64
	Timestamp    time.Time
	Hash         string
	PreviousHash string
}

// Sealed reports whether the entry's payloads are encrypted.
func (e *AuditEntry) Sealed() bool {
	return e.PayloadKeyID != nil
}

// AppendInput carries the caller-supplied fields of a new entry. Sequence number,
// timestamp and hashes are assigned by the writer.
type AppendInput struct {
	EventType    string
	Category     Category
	Severity     Severity
	ActorID      string
	ActorName    string
	ResourceType string
	ResourceID   string
	Action       Action
	IP           string
	UserAgent    string
	SessionID    string
	Details      json.RawMessage
	Before       json.RawMessage
	After        json.RawMessage

	// Sensitive seals Details, Before and After under the active master key.
	Sensitive bool
}

// ChainTail is the per-tenant serialization point: the sequence number and hash
// of the last appended entry. A tenant with no entries has SequenceNo 0 and
// GenesisHash.
type ChainTail struct {
	TenantID   string
	SequenceNo uint64
	Hash       string
	UpdatedAt  time.Time
}

// NewGenesisTail returns the tail of an empty chain.
func NewGenesisTail(tenantID string) *ChainTail {
	return &ChainTail{TenantID: tenantID, Hash: GenesisHash}
}

// IsGenesis reports whether no entry has been appended yet.
func (t *ChainTail) IsGenesis() bool {
	return t.SequenceNo == 0
}

// EntryFilter narrows audit queries. Zero values mean no filter.
type EntryFilter struct {
	Category  Category
	EventType string
	Severity  Severity
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}
