package dto

import (
	"time"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// FieldResponse represents an encrypted field in API responses.
// SECURITY: Value carries plaintext and is only set on GET.
type FieldResponse struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	FieldName    string    `json:"field_name"`
	KeyID        uint64    `json:"key_id"`
	Value        []byte    `json:"value,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MapFieldToResponse converts a field to metadata only.
func MapFieldToResponse(field *cryptoDomain.EncryptedField) FieldResponse {
	return FieldResponse{
		ID:           field.ID.String(),
		TenantID:     field.TenantID,
		ResourceType: field.ResourceType,
		ResourceID:   field.ResourceID,
		FieldName:    field.FieldName,
		KeyID:        field.KeyID,
		CreatedAt:    field.CreatedAt,
		UpdatedAt:    field.UpdatedAt,
	}
}

// MapFieldToRevealResponse converts a field and its plaintext. The caller must
// zero plaintext once the response is written.
func MapFieldToRevealResponse(field *cryptoDomain.EncryptedField, plaintext []byte) FieldResponse {
	response := MapFieldToResponse(field)
	response.Value = plaintext
	return response
}
