package redact

import (
	"regexp"
	"strings"

	"github.com/dshills/patchpilot/internal/glob"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for common secret types. Whitespace
// classes exclude newlines so a match never spans lines.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)[ \t]*[:=][ \t]*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)[ \t]*[:=][ \t]*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)[ \t]*[:=][ \t]*["']([^"'\n]{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer[ \t]+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN[ \t]+(RSA[ \t]+|EC[ \t]+|OPENSSH[ \t]+)?PRIVATE KEY-----`),
	// Database connection strings with inline credentials
	regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb(\+srv)?|redis|amqp)://[^:\s/]+:[^@\s]+@`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Google API keys
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	// OpenAI API keys, including project keys
	regexp.MustCompile(`sk-(proj-)?[A-Za-z0-9_-]{20,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)[ \t]*[:=][ \t]*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED]. The number of
// lines never changes.
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllLiteralString(result, placeholder)
	}
	return result
}

// ShouldRedactPath checks if a file path matches any of the redaction path
// patterns. A leading "**/" also matches files at the repository root.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if glob.Match(path, []string{pattern}) {
			return true
		}
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok && glob.Match(path, []string{rest}) {
			return true
		}
	}
	return false
}

// Patch redacts a unified diff patch for path. Hunk headers and the diff
// prefix of every line are kept, so added-line ordinals are the same before
// and after redaction. Files matching redactPaths have every changed and
// context line blanked; other files have detected secrets replaced.
func Patch(patch, path string, redactPaths []string) string {
	whole := ShouldRedactPath(path, redactPaths)
	lines := strings.Split(patch, "\n")
	for i, line := range lines {
		if line == "" || !isBodyLine(line) {
			continue
		}
		if whole {
			lines[i] = line[:1] + placeholder
			continue
		}
		lines[i] = line[:1] + Secrets(line[1:])
	}
	return strings.Join(lines, "\n")
}

// isBodyLine reports whether line carries file content after its first byte.
// File headers ("+++", "---") and hunk headers are left alone.
func isBodyLine(line string) bool {
	if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
		return false
	}
	switch line[0] {
	case '+', '-', ' ':
		return true
	}
	return false
}
