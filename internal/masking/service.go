package masking

// Service applies code-based maskers then a regex sweep to text before it
// is logged. Created once at process startup; stateless aside from its
// compiled pattern table, and safe for concurrent use across workers.
type Service struct {
	patterns []CompiledPattern
	maskers  []Masker
}

// New builds a Service with the built-in pattern table and maskers
// compiled eagerly.
func New() *Service {
	return &Service{
		patterns: builtinPatterns(),
		maskers:  []Masker{PrivateKeyMasker{}},
	}
}

// Mask redacts secrets from text. Structural maskers run first (more
// specific, aware of multi-line blocks the regex sweep alone would miss),
// then every regex pattern runs unconditionally as a general sweep.
func (s *Service) Mask(text string) string {
	if text == "" {
		return text
	}

	masked := text
	for _, m := range s.maskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
