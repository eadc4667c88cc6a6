package audit

// Outcome values recorded for each compiled line.
const (
	OutcomeCompiled  = "compiled"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// Entry is one line in the hash-chained JSONL compile log.
// All fields are structs or strings (no map[string]any) so json.Marshal
// field order is fixed and line hashes are reproducible.
type Entry struct {
	Timestamp   string `json:"ts"`
	RunID       string `json:"run_id"`
	Source      string `json:"source"`
	Outcome     string `json:"outcome"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Field       string `json:"field,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ConfigHash  string `json:"config_hash,omitempty"`
	PrevHash    string `json:"prev_hash"`
}
