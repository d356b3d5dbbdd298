// Package validation implements the typed, security-focused input
// checks shared by every controller (spec §4.1), grounded on the
// original agent_world_validation.py ruleset.
package validation

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError carries the field that failed and a human reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

func newErr(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Named regex patterns, matched case-insensitively where the teacher does.
var Patterns = map[string]*regexp.Regexp{
	"alphanumeric":           regexp.MustCompile(`^[a-zA-Z0-9]+$`),
	"alphanumeric_underscore": regexp.MustCompile(`^[a-zA-Z0-9_]+$`),
	"alphanumeric_dash":      regexp.MustCompile(`^[a-zA-Z0-9\-]+$`),
	"numeric":                regexp.MustCompile(`^\d+$`),
	"float":                  regexp.MustCompile(`^-?\d+\.?\d*$`),
	"fraction":               regexp.MustCompile(`^\d+/\d+$`),
	"boolean_string":         regexp.MustCompile(`^(?i)(true|false)$`),
	"uuid":                   regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`),
	"hex_color":              regexp.MustCompile(`(?i)^#[0-9a-f]{6}$`),
	"safe_filename":          regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`),
	"safe_directory":         regexp.MustCompile(`^[a-zA-Z0-9._/\-]+$`),
	"scene_path":             regexp.MustCompile(`^/[a-zA-Z0-9_/]+$`),
	"ip_address":             regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`),
	"port":                   regexp.MustCompile(`^([1-9]\d{0,3}|[1-5]\d{4}|6[0-4]\d{3}|65[0-4]\d{2}|655[0-2]\d|6553[0-5])$`),
}

// Dangerous-character classes (spec §4.1).
var DangerousChars = map[string][]string{
	"shell": {"&", "|", ";", "`", "$", "(", ")", "<", ">", "\n", "\r", "\\"},
	"path":  {"..", "~", "$", "`", ";", "&", "|", "\n", "\r"},
	"sql":   {"'", "\"", ";", "--", "/*", "*/", "xp_", "sp_"},
	"xss":   {"<script", "</script", "javascript:", "data:", "vbscript:", "onload=", "onerror="},
	"url":   {"|", ";", "`", "$", "(", ")", "<", ">", "\n", "\r", "\\"},
}

// Validator offers typed checks. It holds no mutable state; a zero value
// is ready to use.
type Validator struct{}

// New returns a ready Validator.
func New() *Validator { return &Validator{} }

// String validates a bounded string, optionally against a named/raw
// regex pattern and a dangerous-character class.
func (*Validator) String(field, value string, minLen, maxLen int, pattern, dangerousClass string, allowEmpty bool) (string, error) {
	if value == "" {
		if allowEmpty {
			return "", nil
		}
		return "", newErr(field, "cannot be empty")
	}
	if len(value) < minLen {
		return "", newErr(field, "must be at least %d characters, got %d", minLen, len(value))
	}
	if maxLen > 0 && len(value) > maxLen {
		return "", newErr(field, "must be at most %d characters, got %d", maxLen, len(value))
	}
	if dangerousClass != "" {
		if chars, ok := DangerousChars[dangerousClass]; ok {
			for _, c := range chars {
				if strings.Contains(strings.ToLower(value), strings.ToLower(c)) {
					return "", newErr(field, "contains dangerous character: %s", c)
				}
			}
		}
	}
	if pattern != "" {
		re, ok := Patterns[pattern]
		if !ok {
			var err error
			re, err = regexp.Compile(pattern)
			if err != nil {
				return "", newErr(field, "invalid pattern: %v", err)
			}
		}
		if !re.MatchString(value) {
			return "", newErr(field, "does not match required pattern: %s", pattern)
		}
	}
	return value, nil
}

// Numeric validates a bounded int/float. It takes an already-decoded
// float64; string forms are not parsed here.
func (*Validator) Numeric(field string, value float64, min, max *float64) (float64, error) {
	if min != nil && value < *min {
		return 0, newErr(field, "must be at least %v, got %v", *min, value)
	}
	if max != nil && value > *max {
		return 0, newErr(field, "must be at most %v, got %v", *max, value)
	}
	return value, nil
}

// Int validates a bounded integer.
func (v *Validator) Int(field string, value int, min, max *int) (int, error) {
	var fmin, fmax *float64
	if min != nil {
		f := float64(*min)
		fmin = &f
	}
	if max != nil {
		f := float64(*max)
		fmax = &f
	}
	r, err := v.Numeric(field, float64(value), fmin, fmax)
	return int(r), err
}

// Bool accepts true/false, 1/0, yes/no, on/off case-insensitively, plus
// any nonzero numeric.
func (*Validator) Bool(field string, value any) (bool, error) {
	switch t := value.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(t) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
	case int:
		return t != 0, nil
	case float64:
		return t != 0, nil
	}
	return false, newErr(field, "must be a boolean value, got %v", value)
}

// URLOptions configures URL validation.
type URLOptions struct {
	AllowedSchemes  []string
	AllowLocalhost  bool
	AllowPrivateIPs bool
}

// URL validates a URL string: dangerous-char scan, scheme allow-list,
// localhost/private-IP host policy.
func (v *Validator) URL(field, value string, opts URLOptions) (string, error) {
	s, err := v.String(field, value, 0, 2048, "", "url", false)
	if err != nil {
		return "", err
	}
	schemes := opts.AllowedSchemes
	if len(schemes) == 0 {
		schemes = []string{"http", "https", "srt", "rtmp"}
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return "", newErr(field, "is not a valid URL: %v", err)
	}
	if !contains(schemes, parsed.Scheme) {
		return "", newErr(field, "scheme must be one of %v, got %s", schemes, parsed.Scheme)
	}
	host := parsed.Hostname()
	if host != "" {
		if !opts.AllowLocalhost {
			lh := strings.ToLower(host)
			if lh == "localhost" || lh == "127.0.0.1" || lh == "::1" {
				return "", newErr(field, "localhost URLs not allowed")
			}
		}
		if !opts.AllowPrivateIPs {
			if ip := net.ParseIP(host); ip != nil && ip.IsPrivate() {
				return "", newErr(field, "private IP addresses not allowed")
			}
		}
	}
	return s, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// Color validates a hex "#RRGGBB" string or an explicit 3-float tuple,
// returning RGB components in [0,1].
func (v *Validator) Color(field string, value any) ([3]float64, error) {
	switch t := value.(type) {
	case string:
		hs, err := v.String(field, t, 0, 0, "hex_color", "", false)
		if err != nil {
			return [3]float64{}, err
		}
		hs = strings.TrimPrefix(hs, "#")
		r, _ := strconv.ParseInt(hs[0:2], 16, 32)
		g, _ := strconv.ParseInt(hs[2:4], 16, 32)
		b, _ := strconv.ParseInt(hs[4:6], 16, 32)
		return [3]float64{float64(r) / 255.0, float64(g) / 255.0, float64(b) / 255.0}, nil
	case []float64:
		if len(t) != 3 {
			return [3]float64{}, newErr(field, "RGB color must have 3 components, got %d", len(t))
		}
		var out [3]float64
		for i, c := range t {
			lo, hi := 0.0, 1.0
			n, err := v.Numeric(fmt.Sprintf("%s[%d]", field, i), c, &lo, &hi)
			if err != nil {
				return [3]float64{}, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return [3]float64{}, newErr(field, "must be hex string or RGB list/tuple")
	}
}

// Position validates an exactly-N-component numeric tuple (position and
// rotation use N=3 with no component bound; scale uses N=3 with each
// component >= 0.1).
func (v *Validator) Position(field string, value []float64, n int, minComponent *float64) ([]float64, error) {
	if len(value) != n {
		return nil, newErr(field, "must have %d components, got %d", n, len(value))
	}
	out := make([]float64, n)
	for i, c := range value {
		val, err := v.Numeric(fmt.Sprintf("%s[%d]", field, i), c, minComponent, nil)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// ScenePath validates a scene-graph path: must start with "/" and match
// the scene_path pattern, with the path dangerous-char class applied.
func (v *Validator) ScenePath(field, value string) (string, error) {
	s, err := v.String(field, value, 0, 500, "", "path", false)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(s, "/") {
		return "", newErr(field, "scene path must start with '/', got %s", s)
	}
	if !Patterns["scene_path"].MatchString(s) {
		return "", newErr(field, "contains invalid scene path characters: %s", s)
	}
	return s, nil
}

// FilePath validates a filesystem path: no "..", optional extension
// allow-list, optional existence check (performed by the caller via
// exists, since this package has no filesystem dependency).
func (v *Validator) FilePath(field, value string, allowedExt []string, exists func(string) bool) (string, error) {
	s, err := v.String(field, value, 0, 1000, "", "path", false)
	if err != nil {
		return "", err
	}
	if strings.Contains(s, "..") {
		return "", newErr(field, "contains path traversal: %s", s)
	}
	if len(allowedExt) > 0 {
		ext := extOf(s)
		if !contains(allowedExt, ext) {
			return "", newErr(field, "must have extension in %v, got %s", allowedExt, ext)
		}
	}
	if exists != nil && !exists(s) {
		return "", newErr(field, "file does not exist: %s", s)
	}
	return s, nil
}

func extOf(path string) string {
	i := strings.LastIndex(path, ".")
	slash := strings.LastIndex(path, "/")
	if i <= slash {
		return ""
	}
	return strings.ToLower(path[i:])
}

// JSON accepts a map[string]any directly or a JSON-encoded string.
func (*Validator) JSON(field string, value any) (map[string]any, error) {
	switch t := value.(type) {
	case map[string]any:
		return t, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return nil, newErr(field, "is not valid JSON: %v", err)
		}
		return out, nil
	default:
		return nil, newErr(field, "must be JSON string or object")
	}
}

// Enum validates membership in an allow-list.
func (*Validator) Enum(field string, value string, allowed []string) (string, error) {
	if !contains(allowed, value) {
		return "", newErr(field, "must be one of %v, got %s", allowed, value)
	}
	return value, nil
}

// ValidateGroupName validates a waypoint/tool group display name: lower-
// case alphanumerics separated by single spaces, dashes or underscores,
// no leading/trailing whitespace and no doubled spaces.
func ValidateGroupName(name string) error {
	if name == "" {
		return newErr("name", "cannot be empty")
	}
	if name[0] == ' ' || name[len(name)-1] == ' ' {
		return newErr("name", "must not have leading or trailing whitespace")
	}
	prevSpace := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			prevSpace = false
		case r == '-' || r == '_':
			prevSpace = false
		case r == ' ':
			if prevSpace {
				return newErr("name", "must not contain consecutive spaces")
			}
			prevSpace = true
		default:
			return newErr("name", "must contain only lowercase letters, digits, spaces, dashes and underscores")
		}
	}
	return nil
}

const maxHeaderNameLen = 256
const maxHeaderValueLen = 8192

// ValidateHTTPHeaderName rejects CRLF-injection and otherwise malformed
// header names.
func ValidateHTTPHeaderName(name string) error {
	if name == "" {
		return newErr("header", "name cannot be empty")
	}
	if len(name) > maxHeaderNameLen {
		return newErr("header", "name too long")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '.' || r == '_':
		default:
			return newErr("header", "name contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateHTTPHeaderValue rejects CRLF/control-character injection in a
// header value. Tab is allowed; other control characters are not.
func ValidateHTTPHeaderValue(value string) error {
	if value == "" {
		return newErr("header", "value cannot be empty")
	}
	if len(value) > maxHeaderValueLen {
		return newErr("header", "value too long")
	}
	for _, r := range value {
		if r == '\t' {
			continue
		}
		if r < 0x20 || r == 0x7f {
			return newErr("header", "value contains control character")
		}
	}
	return nil
}

// ValidateResourceURI validates an absolute URI: any scheme, a non-empty
// host, and no fragment.
func ValidateResourceURI(raw string) error {
	if raw == "" {
		return newErr("uri", "cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return newErr("uri", "invalid resource URI: %v", err)
	}
	if parsed.Scheme == "" {
		return newErr("uri", "must include a scheme")
	}
	if parsed.Host == "" {
		return newErr("uri", "must include a host")
	}
	if parsed.Fragment != "" {
		return newErr("uri", "must not contain fragments")
	}
	return nil
}

// BatchCheck is one entry in a Batch validation: Run performs the check
// and is expected to call one of the Validator methods above.
type BatchCheck struct {
	Field string
	Run   func() error
}

// Batch runs every check, aggregating all failures instead of stopping
// at the first one.
func (*Validator) Batch(checks []BatchCheck) error {
	var errs []string
	for _, c := range checks {
		if err := c.Run(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return newErr("batch", "validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
