package jobs

import (
	"encoding/json"
	"fmt"
)

// DecodePayload unmarshals a raw job payload into its typed struct and
// validates it. Workers switch on the returned concrete type.
func DecodePayload(jobType string, raw json.RawMessage) (any, error) {
	if !IsKnownType(jobType) {
		return nil, ErrUnknownJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch jobType {
	case TypePasswordResetEmail:
		var p PasswordResetEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil

	case TypeWelcomeEmail:
		var p WelcomeEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, ErrUnknownJobType
	}
}
