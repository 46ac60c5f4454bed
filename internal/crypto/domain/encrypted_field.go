package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldRef locates a protected value inside a business record owned by the caller.
type FieldRef struct {
	ResourceType string
	ResourceID   string
	FieldName    string
}

// EncryptedField is a persisted EncryptedValue together with the id of the key
// that produced it. The ciphertext never embeds the key id.
type EncryptedField struct {
	ID           uuid.UUID
	TenantID     string
	ResourceType string
	ResourceID   string
	FieldName    string
	KeyID        uint64
	Ciphertext   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the business location of the field.
func (f *EncryptedField) Ref() FieldRef {
	return FieldRef{ResourceType: f.ResourceType, ResourceID: f.ResourceID, FieldName: f.FieldName}
}

// FieldAAD binds a ciphertext to the row it is stored in, so a blob copied into
// another tenant's or another field's row fails authentication.
func FieldAAD(tenantID string, id uuid.UUID) []byte {
	return []byte(tenantID + "/" + id.String())
}
