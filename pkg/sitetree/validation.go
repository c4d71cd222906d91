package sitetree

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/openpublish/sitetree/pkg/sitetree/sanitize"
)

// Validation limits and fixed rule sets for the gate.
const (
	minPasswordLen = 8
	maxBodyLen     = 50_000
	maxUploadSize  = 10 << 20 // 10 MiB
	sessionTimeout = 30 * time.Minute
)

// sessionTokenPattern is the fixed structural pattern issued tokens must
// match.
var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{32,128}$`)

// weakPasswords is the fixed known-weak list. Checked after lowercasing.
var weakPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwertyuiop": {},
	"letmein1":  {},
	"welcome1":  {},
	"iloveyou1": {},
}

// suspiciousMarkers are injection markers rejected in titles and bodies.
// Matched case-insensitively.
var suspiciousMarkers = []string{
	"<script",
	"</script",
	"javascript:",
	"onerror=",
	"onload=",
	"<iframe",
	"eval(",
	"document.cookie",
}

// allowedUploadExtensions is the fixed extension allowlist for uploads,
// keyed by the sanitized (lowercased) extension.
var allowedUploadExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
	".pdf":  {},
	".txt":  {},
	".md":   {},
	".csv":  {},
}

// executableSignatures are file magic prefixes that identify executable
// formats (PE, ELF, Mach-O, shebang scripts).
var executableSignatures = [][]byte{
	{0x4D, 0x5A},             // MZ / PE
	{0x7F, 0x45, 0x4C, 0x46}, // ELF
	{0xFE, 0xED, 0xFA, 0xCE}, // Mach-O 32-bit
	{0xFE, 0xED, 0xFA, 0xCF}, // Mach-O 64-bit
	{0xCF, 0xFA, 0xED, 0xFE}, // Mach-O 64-bit, little-endian
	[]byte("#!"),             // shebang
}

// embeddedScriptMarkers are script fragments rejected inside uploaded bytes.
var embeddedScriptMarkers = []string{
	"<script",
	"<?php",
}

// rolePermissions is the authoritative role matrix. Administrators are
// handled separately (all operations); any role absent from this map is
// denied everything.
var rolePermissions = map[Role]map[Operation]struct{}{
	RoleEditor: {
		OpCreateContent:  {},
		OpEditContent:    {},
		OpEditOwnContent: {},
		OpDeleteContent:  {},
		OpViewContent:    {},
	},
	RoleAuthor: {
		OpCreateContent:  {},
		OpEditOwnContent: {},
		OpViewContent:    {},
	},
	RoleGuest: {
		OpViewContent: {},
	},
}

// ResourceAccessFunc decides whether a principal may touch a specific
// resource. It runs only after the role matrix has allowed the operation.
type ResourceAccessFunc func(principal *Principal, op Operation, resourceID string) bool

// Gate is the stateless set of checks every mutating or sensitive operation
// must pass before it is applied to a tree. All checks are pure over their
// arguments (plus the injected clock) and safe for concurrent use. Each
// decision is reported to the configured EventSink; sink failures never
// change a check's outcome.
type Gate struct {
	now            func() time.Time
	events         EventSink
	resourceAccess ResourceAccessFunc
}

// GateOption represents a functional option for configuring the gate
type GateOption func(*Gate)

// WithGateClock overrides the gate's time source. Used by tests and by
// callers replaying recorded activity.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// WithGateEventSink sets the sink that receives validation decisions.
func WithGateEventSink(sink EventSink) GateOption {
	return func(g *Gate) {
		g.events = sink
	}
}

// WithResourceAccess sets the resource-specific access rule consulted after
// the role matrix.
func WithResourceAccess(fn ResourceAccessFunc) GateOption {
	return func(g *Gate) {
		g.resourceAccess = fn
	}
}

// NewGate creates a gate with the fixed rule sets and the given options.
func NewGate(options ...GateOption) *Gate {
	g := &Gate{
		now:    time.Now,
		events: NewNoopEventSink(),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// report wraps a check result in a ValidationError and mirrors the decision
// to the event sink. The sink is fire-and-forget: its errors are dropped so
// a failing log write can never mask or alter the validation outcome.
func (g *Gate) report(check string, err error) error {
	if err == nil {
		if g.events != nil {
			_ = g.events.ValidationPassed(check)
		}
		return nil
	}
	if g.events != nil {
		_ = g.events.ValidationRejected(check, err)
	}
	return &ValidationError{Check: check, Err: err}
}

// ValidateCredentials checks a username/password pair against the name
// format rule and the password strength rule.
func (g *Gate) ValidateCredentials(username, password string) error {
	return g.report("credentials", g.checkCredentials(username, password))
}

func (g *Gate) checkCredentials(username, password string) error {
	if _, err := sanitize.Username(username); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if _, weak := weakPasswords[strings.ToLower(password)]; weak {
		return fmt.Errorf("%w: password is too common", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLen)
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return fmt.Errorf("%w: password needs upper, lower, digit and symbol characters", ErrInvalidArgument)
	}
	return nil
}

// Authorize checks that the principal may perform the operation, optionally
// against a specific resource. Checks short-circuit in a fixed order so
// failure messages are deterministic: principal presence and liveness first,
// then operation well-formedness, then the role matrix, then resource
// access.
func (g *Gate) Authorize(principal *Principal, op Operation, resourceID string) error {
	return g.report("authorization", g.checkAuthorization(principal, op, resourceID))
}

func (g *Gate) checkAuthorization(principal *Principal, op Operation, resourceID string) error {
	if principal == nil {
		return fmt.Errorf("%w: no principal", ErrUnauthenticated)
	}
	if !principal.Active {
		return fmt.Errorf("%w: principal %q is inactive", ErrUnauthenticated, principal.Username)
	}
	if op == "" {
		return fmt.Errorf("%w: operation is required", ErrInvalidArgument)
	}
	if !roleAllows(principal.Role, op) {
		return fmt.Errorf("%w: role %q may not perform %s", ErrForbidden, principal.Role, op)
	}
	if resourceID != "" && g.resourceAccess != nil && !g.resourceAccess(principal, op, resourceID) {
		return fmt.Errorf("%w: access to resource denied", ErrForbidden)
	}
	return nil
}

// roleAllows consults the role matrix. Administrators may perform every
// operation; unknown roles may perform none.
func roleAllows(role Role, op Operation) bool {
	if role == RoleAdministrator {
		return true
	}
	allowed, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = allowed[op]
	return ok
}

// CheckContent scans a content record for injection markers and enforces the
// body length cap.
func (g *Gate) CheckContent(record *ContentRecord) error {
	return g.report("content_safety", g.checkContent(record))
}

func (g *Gate) checkContent(record *ContentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: content record is required", ErrInvalidArgument)
	}
	if marker := findMarker(record.Title, suspiciousMarkers); marker != "" {
		return fmt.Errorf("%w: content rejected", ErrForbidden)
	}
	if marker := findMarker(record.Body, suspiciousMarkers); marker != "" {
		return fmt.Errorf("%w: content rejected", ErrForbidden)
	}
	if utf8.RuneCountInString(record.Body) > maxBodyLen {
		return fmt.Errorf("%w: content rejected", ErrForbidden)
	}
	return nil
}

func findMarker(s string, markers []string) string {
	lower := strings.ToLower(s)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return marker
		}
	}
	return ""
}

// CheckUpload validates an upload's filename, declared size, and (when
// supplied) its leading bytes.
func (g *Gate) CheckUpload(filename string, size int64, data []byte) error {
	return g.report("upload_safety", g.checkUpload(filename, size, data))
}

func (g *Gate) checkUpload(filename string, size int64, data []byte) error {
	clean, err := sanitize.Filename(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	ext := strings.ToLower(extOf(clean))
	if _, ok := allowedUploadExtensions[ext]; !ok {
		return fmt.Errorf("%w: file type %q is not allowed", ErrInvalidArgument, ext)
	}
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive", ErrInvalidArgument)
	}
	if size > maxUploadSize {
		return fmt.Errorf("%w: file exceeds maximum size", ErrInvalidArgument)
	}
	if len(data) == 0 {
		return nil
	}
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(data, sig) {
			return fmt.Errorf("%w: upload rejected", ErrForbidden)
		}
	}
	if marker := findMarker(string(data), embeddedScriptMarkers); marker != "" {
		return fmt.Errorf("%w: upload rejected", ErrForbidden)
	}
	return nil
}

func extOf(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[i:]
	}
	return ""
}

// ValidateSession checks a session token's structure and idle time. Elapsed
// time is measured from the caller-supplied last-activity timestamp; the
// gate never waits on the clock itself.
func (g *Gate) ValidateSession(token string, lastActivity time.Time) error {
	return g.report("session", g.checkSession(token, lastActivity))
}

func (g *Gate) checkSession(token string, lastActivity time.Time) error {
	if !sessionTokenPattern.MatchString(token) {
		return fmt.Errorf("%w: invalid session token", ErrForbidden)
	}
	if g.now().Sub(lastActivity) >= sessionTimeout {
		return ErrSessionExpired
	}
	return nil
}
