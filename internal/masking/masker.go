// Package masking applies a best-effort secret-redaction pass to agent and
// QA preflight output before it is written to a task's action log or the
// process log — preflight stdout/stderr and agent tool-call arguments can
// carry secrets lifted straight from the task's environment. It is carried
// as ambient safety behavior, not a new
// feature surface).
package masking

// Masker is a code-based masker that needs structural awareness beyond a
// single regex match — it gets first pass over the text, before the
// regex sweep runs.
type Masker interface {
	// Name identifies this masker for logging.
	Name() string

	// AppliesTo is a cheap pre-check (substring test, not parsing) for
	// whether Mask should run at all.
	AppliesTo(data string) bool

	// Mask returns data with its structured secret fields redacted. Must
	// be defensive: return the input unchanged on any parse failure.
	Mask(data string) string
}
