package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern and its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns is the fixed regex sweep applied to every piece of
// logged output, adapted from a config-driven masking-pattern table to a
// static set appropriate for an agent
// runtime's stdout/stderr and tool-call arguments rather than MCP-server-
// specific alert payloads.
func builtinPatterns() []CompiledPattern {
	return []CompiledPattern{
		{
			Name:        "aws_access_key_id",
			Regex:       regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
			Replacement: "[MASKED_AWS_ACCESS_KEY]",
		},
		{
			Name:        "bearer_token",
			Regex:       regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`),
			Replacement: "Bearer [MASKED_TOKEN]",
		},
		{
			Name:        "basic_auth_header",
			Regex:       regexp.MustCompile(`(?i)\bBasic\s+[A-Za-z0-9+/]+=*`),
			Replacement: "Basic [MASKED_CREDENTIALS]",
		},
		{
			Name:        "github_token",
			Regex:       regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,255}\b`),
			Replacement: "[MASKED_GITHUB_TOKEN]",
		},
		{
			Name:        "slack_token",
			Regex:       regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,72}\b`),
			Replacement: "[MASKED_SLACK_TOKEN]",
		},
		{
			Name:        "generic_api_key_assignment",
			Regex:       regexp.MustCompile(`(?i)\b([\w-]*(?:api[_-]?key|secret|token|password|passwd)[\w-]*)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
			Replacement: "$1=[MASKED]",
		},
		{
			Name:        "url_userinfo",
			Regex:       regexp.MustCompile(`://([^:/@\s]+):([^@/\s]+)@`),
			Replacement: "://[MASKED_USERINFO]@",
		},
		{
			Name:        "jwt",
			Regex:       regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`),
			Replacement: "[MASKED_JWT]",
		},
	}
}
