// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	customValidation "github.com/sobebarali/useHely-sub006/internal/validation"
)

// AppendEntryRequest contains the caller-supplied fields of a new audit entry.
// The tenant comes from the URL; IP and user agent come from the request.
type AppendEntryRequest struct {
	EventType    string          `json:"event_type"`
	Category     string          `json:"category"`
	Severity     string          `json:"severity,omitempty"`
	ActorID      string          `json:"actor_id"`
	ActorName    string          `json:"actor_name"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Action       string          `json:"action,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Sensitive    bool            `json:"sensitive,omitempty"`
}

// Validate checks the request shape. Enumerations and identifier formats are
// checked again by the writer.
func (r *AppendEntryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EventType, validation.Required, customValidation.EventType),
		validation.Field(&r.Category, validation.Required, customValidation.NoWhitespace),
		validation.Field(&r.ActorID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ActorName, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Details, customValidation.JSONObject),
		validation.Field(&r.Before, customValidation.JSONObject),
		validation.Field(&r.After, customValidation.JSONObject),
	)
}

// ToInput maps the request to the writer input.
func (r *AppendEntryRequest) ToInput(ip, userAgent string) *auditDomain.AppendInput {
	return &auditDomain.AppendInput{
		EventType:    r.EventType,
		Category:     auditDomain.Category(r.Category),
		Severity:     auditDomain.Severity(r.Severity),
		ActorID:      r.ActorID,
		ActorName:    r.ActorName,
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Action:       auditDomain.Action(r.Action),
		IP:           ip,
		UserAgent:    userAgent,
		SessionID:    r.SessionID,
		Details:      r.Details,
		Before:       r.Before,
		After:        r.After,
		Sensitive:    r.Sensitive,
	}
}
