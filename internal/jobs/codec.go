package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/geocoder89/applyhub/internal/domain/job"
)

// Encode validates payload against t and marshals it.
func Encode(t string, payload any) (json.RawMessage, error) {
	if err := Validate(t, payload); err != nil {
		return nil, err
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return json.RawMessage(b), nil
}

// Decode unmarshals j.Payload into the typed payload for j.Type.
func Decode(j job.Job) (any, error) {
	if !KnownType(j.Type) {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	var out any
	switch j.Type {
	case TypeExportApplicantsCSV:
		var p ExportApplicantsCSVPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		out = p
	case TypeFinalizationNotice:
		var p FinalizationNoticePayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		out = p
	}

	if err := Validate(j.Type, out); err != nil {
		return nil, err
	}

	return out, nil
}
