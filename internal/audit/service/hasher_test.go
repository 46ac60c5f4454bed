package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
)

func newEntry() *auditDomain.AuditEntry {
	return &auditDomain.AuditEntry{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     "hospital-1",
		SequenceNo:   7,
		EventType:    "patient.record_viewed",
		Category:     auditDomain.CategoryPHI,
		Severity:     auditDomain.SeverityInfo,
		ActorID:      "user-42",
		ActorName:    "Dr. Grey",
		ResourceType: "patient",
		ResourceID:   "p-1",
		Action:       auditDomain.ActionRead,
		IP:           "10.0.0.1",
		UserAgent:    "test",
		SessionID:    "s-1",
		Details:      json.RawMessage(`{"fields":["ssn"]}`),
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC),
		PreviousHash: auditDomain.GenesisHash,
	}
}

func TestComputeHash(t *testing.T) {
	t.Run("Success_Deterministic", func(t *testing.T) {
		entry := newEntry()
		hash := ComputeHash(entry)

		assert.Len(t, hash, 64)
		assert.Equal(t, hash, ComputeHash(entry))
	})

	t.Run("Success_StoredHashIsExcluded", func(t *testing.T) {
		entry := newEntry()
		before := ComputeHash(entry)
		entry.Hash = "ffff"
		assert.Equal(t, before, ComputeHash(entry))
	})

	t.Run("Success_SubMicrosecondIgnored", func(t *testing.T) {
		entry := newEntry()
		before := ComputeHash(entry)
		entry.Timestamp = entry.Timestamp.Add(999 * time.Nanosecond)
		assert.Equal(t, before, ComputeHash(entry))
	})

	t.Run("Success_EveryFieldChangesHash", func(t *testing.T) {
		keyID := uint64(2)
		mutations := map[string]func(e *auditDomain.AuditEntry){
			"id":            func(e *auditDomain.AuditEntry) { e.ID = uuid.Must(uuid.NewV7()) },
			"tenant":        func(e *auditDomain.AuditEntry) { e.TenantID = "hospital-2" },
			"sequence":      func(e *auditDomain.AuditEntry) { e.SequenceNo++ },
			"event_type":    func(e *auditDomain.AuditEntry) { e.EventType = "patient.updated" },
			"category":      func(e *auditDomain.AuditEntry) { e.Category = auditDomain.CategoryData },
			"severity":      func(e *auditDomain.AuditEntry) { e.Severity = auditDomain.SeverityCritical },
			"actor_id":      func(e *auditDomain.AuditEntry) { e.ActorID = "user-43" },
			"actor_name":    func(e *auditDomain.AuditEntry) { e.ActorName = "Dr. Yang" },
			"resource_type": func(e *auditDomain.AuditEntry) { e.ResourceType = "invoice" },
			"resource_id":   func(e *auditDomain.AuditEntry) { e.ResourceID = "p-2" },
			"action":        func(e *auditDomain.AuditEntry) { e.Action = auditDomain.ActionDelete },
			"ip":            func(e *auditDomain.AuditEntry) { e.IP = "10.0.0.2" },
			"user_agent":    func(e *auditDomain.AuditEntry) { e.UserAgent = "other" },
			"session_id":    func(e *auditDomain.AuditEntry) { e.SessionID = "s-2" },
			"details":       func(e *auditDomain.AuditEntry) { e.Details = json.RawMessage(`{"fields":["dob"]}`) },
			"before":        func(e *auditDomain.AuditEntry) { e.Before = json.RawMessage(`{}`) },
			"after":         func(e *auditDomain.AuditEntry) { e.After = json.RawMessage(`{}`) },
			"payload_key":   func(e *auditDomain.AuditEntry) { e.PayloadKeyID = &keyID },
			"timestamp":     func(e *auditDomain.AuditEntry) { e.Timestamp = e.Timestamp.Add(time.Microsecond) },
			"previous_hash": func(e *auditDomain.AuditEntry) { e.PreviousHash = "ab" },
		}

		for name, mutate := range mutations {
			entry := newEntry()
			reference := ComputeHash(entry)
			mutate(entry)
			assert.NotEqual(t, reference, ComputeHash(entry), name)
		}
	})

	t.Run("Success_LengthPrefixPreventsShifting", func(t *testing.T) {
		a := newEntry()
		a.ActorID, a.ActorName = "ab", "c"
		b := newEntry()
		b.ID = a.ID
		b.ActorID, b.ActorName = "a", "bc"

		assert.NotEqual(t, ComputeHash(a), ComputeHash(b))
	})
}
