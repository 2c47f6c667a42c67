package jobs

import "strings"

func Validate(t string, payload any) error {
	if !KnownType(t) {
		return ErrInvalidJobType
	}

	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch t {
	case TypeExportApplicantsCSV:
		var p ExportApplicantsCSVPayload
		switch v := payload.(type) {
		case ExportApplicantsCSVPayload:
			p = v
		case *ExportApplicantsCSVPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.RequestedBy) {
			return ErrInvalidJobPayload
		}

	case TypeFinalizationNotice:
		var p FinalizationNoticePayload
		switch v := payload.(type) {
		case FinalizationNoticePayload:
			p = v
		case *FinalizationNoticePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.UserID) || blank(p.Email) {
			return ErrInvalidJobPayload
		}
	}

	return nil
}
