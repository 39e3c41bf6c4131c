package dto

// AuditLogsResponse lists the events recorded by this server process.
type AuditLogsResponse struct {
	Logs  []AuditEntry `json:"logs"`
	Total int          `json:"total"`
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Operation string `json:"operation"`
	Subject   string `json:"subject,omitempty"`

	// Details contains operation-specific context.
	Details map[string]string `json:"details,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

// AuditVerifyResponse represents audit verification result.
type AuditVerifyResponse struct {
	// Valid indicates if the audit log is valid.
	Valid bool `json:"valid"`

	// Errors lists verification errors.
	Errors []string `json:"errors,omitempty"`

	// EntryCount is the number of entries verified.
	EntryCount int `json:"entry_count"`

	// LogFile is the verified file.
	LogFile string `json:"log_file,omitempty"`
}
