package jobs

const (
	TypeExportApplicantsCSV = "export_applicants_csv"
	TypeFinalizationNotice  = "send_finalization_notice"
)

// KnownType reports whether the worker has a handler for t.
func KnownType(t string) bool {
	switch t {
	case TypeExportApplicantsCSV, TypeFinalizationNotice:
		return true
	default:
		return false
	}
}

// ExportFileName is the file an export job writes under the export directory.
func ExportFileName(jobID string) string {
	return "applicants-" + jobID + ".csv"
}
