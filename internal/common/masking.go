package common

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// MaskedValue replaces any value recognized as sensitive.
const MaskedValue = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "token", "authorization")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Specific keys to mask (case-insensitive)
}

// DefaultSensitivePatterns covers the credentials this tool handles: Atlassian API tokens
// and the Basic Authorization header built from them.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"***MASKED***"`,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)(api[_-]?token|token|access[_-]?token)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"***MASKED***"`,
		Keys:        []string{"token", "api_token", "api-token", "access_token", "atlassian_token"},
	},
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(?i)(authorization)["'\s]*[:=]\s*["']?(Basic|Bearer)?\s*([^"',}\]\s]+)`),
		Replacement: `${1}: ***MASKED***`,
		Keys:        []string{"authorization"},
	},
	{
		Name:        "basic_auth",
		Regex:       regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`),
		Replacement: "Basic " + MaskedValue,
	},
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: append([]SensitivePattern{}, patterns...)}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled.Load()
}

// AddPattern adds a pattern; a key-only pattern gets a regex built from its keys.
func (m *Masker) AddPattern(pattern SensitivePattern) {
	if pattern.Regex == nil && len(pattern.Keys) > 0 {
		keys := make([]string, len(pattern.Keys))
		for i, k := range pattern.Keys {
			keys[i] = regexp.QuoteMeta(k)
		}
		expr := fmt.Sprintf(`(?i)\b(%s)\s*[:=]\s*['"]?([^'",\s}\]]+)['"]?`, strings.Join(keys, "|"))
		pattern.Regex = regexp.MustCompile(expr)
		if pattern.Replacement == "" {
			pattern.Replacement = `$1:"` + MaskedValue + `"`
		}
	}
	m.patterns = append(m.patterns, pattern)
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() {
		return input
	}
	result := input
	for _, p := range m.patterns {
		if p.Regex == nil {
			continue
		}
		result = p.Regex.ReplaceAllString(result, p.Replacement)
	}
	return result
}

// IsSensitiveKey reports whether key names a value that must never be logged.
func (m *Masker) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lower == strings.ToLower(k) {
				return true
			}
		}
	}
	return false
}

// MaskValue masks value entirely when key is sensitive, otherwise applies the regex patterns.
func (m *Masker) MaskValue(key, value string) string {
	if !m.IsEnabled() {
		return value
	}
	if m.IsSensitiveKey(key) {
		return MaskedValue
	}
	return m.MaskString(value)
}

// Global masker instance
var globalMasker = NewMasker()

// SetGlobalMasker sets the global masker instance
func SetGlobalMasker(masker *Masker) {
	if masker != nil {
		globalMasker = masker
	}
}

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}
