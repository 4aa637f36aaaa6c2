package run

// Code classifies a per-account failure. All codes are non-fatal to the
// overall run.
type Code string

const (
	// CodeLoginRequired: authentication needed but the session was
	// non-interactive. Permanent for this invocation; retry interactively.
	CodeLoginRequired Code = "login_required"

	// CodeLoginTimeout: interactive login not completed within the wait
	// bound. Transient; retry later.
	CodeLoginTimeout Code = "login_timeout"

	// CodeNoToken: an authenticated-looking session produced no matching
	// network call within either wait tier. Transient.
	CodeNoToken Code = "no_token"
)

// Result is the outcome for one account in one orchestration pass.
// Credits and Tier stay null when the usage channel observed nothing.
type Result struct {
	Email   string   `json:"email"`
	Success bool     `json:"success"`
	Token   string   `json:"token,omitempty"`
	Credits *float64 `json:"credits"`
	Tier    *string  `json:"tier"`
	Error   Code     `json:"error,omitempty"`
}
