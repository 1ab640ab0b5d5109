package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Moderation labels produced by the classification policy.
const (
	LabelValid            = "Valid"
	LabelAdvertisement    = "Advertisement"
	LabelIrrelevant       = "Irrelevant"
	LabelRantWithoutVisit = "Rant_Without_Visit"
)

// Labels lists the policy vocabulary in report order.
var Labels = []string{LabelValid, LabelAdvertisement, LabelIrrelevant, LabelRantWithoutVisit}

// ErrMalformedResponse is returned when a service reply is empty or lacks a label.
var ErrMalformedResponse = errors.New("malformed classification response")

// LabeledOutput is the classification service's structured answer.
type LabeledOutput struct {
	Label  string `json:"label"`
	Reason string `json:"reason,omitempty"`
}

// IsKnownLabel reports whether label belongs to the moderation vocabulary.
func IsKnownLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ParseLabeledOutput decodes a raw service reply.
// The reply is well-formed when it is non-empty after trimming and decodes to a
// JSON object with a non-empty string "label". "reason" is optional.
func ParseLabeledOutput(raw string) (LabeledOutput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return LabeledOutput{}, fmt.Errorf("%w: empty output", ErrMalformedResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return LabeledOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	rawLabel, ok := fields["label"]
	if !ok {
		return LabeledOutput{}, fmt.Errorf("%w: missing label field", ErrMalformedResponse)
	}
	var out LabeledOutput
	if err := json.Unmarshal(rawLabel, &out.Label); err != nil {
		return LabeledOutput{}, fmt.Errorf("%w: label is not a string", ErrMalformedResponse)
	}
	if strings.TrimSpace(out.Label) == "" {
		return LabeledOutput{}, fmt.Errorf("%w: empty label", ErrMalformedResponse)
	}

	if rawReason, ok := fields["reason"]; ok {
		// A non-string reason is tolerated and dropped.
		_ = json.Unmarshal(rawReason, &out.Reason)
	}
	return out, nil
}
