package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/job"
)

func TestEncodeDecode_FinalizationNotice(t *testing.T) {
	payload := FinalizationNoticePayload{
		UserID:      "u-1",
		Email:       "a@x.com",
		Name:        "Ada",
		FinalizedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := Encode(TypeFinalizationNotice, payload)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	j := job.New(job.CreateRequest{Type: TypeFinalizationNotice, Payload: raw}, time.Now().UTC())

	decoded, err := Decode(j)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	p, ok := decoded.(FinalizationNoticePayload)
	if !ok {
		t.Fatalf("expected FinalizationNoticePayload, got %T", decoded)
	}

	if p.UserID != payload.UserID || p.Email != payload.Email || p.Name != payload.Name {
		t.Fatalf("got %+v, want %+v", p, payload)
	}

	if !p.FinalizedAt.Equal(payload.FinalizedAt) {
		t.Fatalf("finalizedAt: got %s, want %s", p.FinalizedAt, payload.FinalizedAt)
	}
}

func TestEncode_TypeMismatch(t *testing.T) {
	_, err := Encode(TypeExportApplicantsCSV, FinalizationNoticePayload{UserID: "u", Email: "e"})
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncode_UnknownType(t *testing.T) {
	_, err := Encode("publish_event", ExportApplicantsCSVPayload{RequestedBy: "u"})
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	if err := Validate(TypeExportApplicantsCSV, &ExportApplicantsCSVPayload{}); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}

	if err := Validate(TypeFinalizationNotice, FinalizationNoticePayload{UserID: "u"}); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	_, err := Decode(job.Job{Type: TypeExportApplicantsCSV})
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}
