// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	customValidation "github.com/sobebarali/useHely-sub006/internal/validation"
)

// maxFieldValueBytes bounds a single protected value.
const maxFieldValueBytes = 64 * 1024

// ProtectFieldRequest contains the location and plaintext of a value to encrypt.
// Value is base64 in JSON.
type ProtectFieldRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	FieldName    string `json:"field_name"`
	Value        []byte `json:"value"`
}

// Validate checks if the protect request is valid.
func (r *ProtectFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ResourceType, validation.Required, customValidation.Identifier),
		validation.Field(&r.ResourceID, validation.Required, customValidation.Identifier),
		validation.Field(&r.FieldName, validation.Required, customValidation.Identifier),
		validation.Field(&r.Value, validation.Required, validation.Length(1, maxFieldValueBytes)),
	)
}

// Ref returns the business location of the value.
func (r *ProtectFieldRequest) Ref() cryptoDomain.FieldRef {
	return cryptoDomain.FieldRef{
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		FieldName:    r.FieldName,
	}
}

// ReplaceFieldRequest contains the new plaintext of a stored value.
type ReplaceFieldRequest struct {
	Value []byte `json:"value"`
}

// Validate checks if the replace request is valid.
func (r *ReplaceFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value, validation.Required, validation.Length(1, maxFieldValueBytes)),
	)
}
