// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

var (
	// identifierRegex matches tenant, actor and resource identifiers supplied by callers.
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@\-]{0,127}$`)

	// eventTypeRegex matches dotted or underscored event names like "patient.record_viewed".
	eventTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_.\-]{0,127}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Identifier validates tenant, actor and resource identifiers.
var Identifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return identifierRegex.MatchString(s)
	},
	validation.NewError(
		"validation_identifier",
		"must start with a letter or digit and contain only letters, digits, '.', '_', ':', '@' or '-'",
	),
)

// EventType validates audit event type names.
var EventType = validation.NewStringRuleWithError(
	func(s string) bool {
		return eventTypeRegex.MatchString(s)
	},
	validation.NewError("validation_event_type", "must be a lowercase dotted event name"),
)

// JSONObject validates that a json.RawMessage is either empty or a JSON object.
var JSONObject = validation.By(func(value interface{}) error {
	raw, ok := value.(json.RawMessage)
	if !ok {
		return validation.NewError("validation_json_type", "must be raw JSON")
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return validation.NewError("validation_json_object", "must be a JSON object")
	}
	return nil
})
