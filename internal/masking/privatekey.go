package masking

import (
	"regexp"
	"strings"
)

var pemBlockPattern = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`)

// PrivateKeyMasker redacts PEM-encoded private key blocks wholesale,
// adapted from a secret masker's approach: a cheap substring AppliesTo
// check gates a structural Mask pass, rather than relying on the
// regex sweep alone to find every line of a multi-line block.
type PrivateKeyMasker struct{}

// Name identifies this masker for logging.
func (PrivateKeyMasker) Name() string { return "private_key" }

// AppliesTo reports whether data looks like it contains a PEM block.
func (PrivateKeyMasker) AppliesTo(data string) bool {
	return strings.Contains(data, "PRIVATE KEY")
}

// Mask replaces every PEM private-key block with a fixed marker.
func (PrivateKeyMasker) Mask(data string) string {
	return pemBlockPattern.ReplaceAllString(data, "[MASKED_PRIVATE_KEY]")
}
