// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package admission decides whether a file and an email address may be
// submitted for conversion. The checks are a client-side gate only; the
// conversion service remains the authority on what it accepts.
package admission

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationError is a user-facing rejection of one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrEmailRequired = &ValidationError{Field: "email", Message: "Email is required"}
	ErrEmailSyntax   = &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	ErrEmailDomain   = &ValidationError{
		Field:   "email",
		Message: "Please use a common email provider (Gmail, Outlook, Yahoo, etc.) or your work/educational email.",
	}

	ErrFileRequired = &ValidationError{Field: "file", Message: "Please select a PDF file"}
	ErrFileType     = &ValidationError{Field: "file", Message: "Only PDF files are allowed"}
	ErrFileEmpty    = &ValidationError{Field: "file", Message: "The selected file is empty"}
)

// emailPattern is the local@domain.tld shape check. Each part excludes '@'
// and ECMAScript whitespace, which is RE2's \s plus \v, \p{Z} and U+FEFF.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// ValidateEmail reports whether s has the local@domain.tld shape. It does
// not trim or normalize s.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// CheckEmail runs the full admission filter on a candidate address:
// presence, syntax, then domain admission. It returns nil when the address
// may be submitted, or one of the ErrEmail* sentinels.
func CheckEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmailRequired
	}
	if !ValidateEmail(s) {
		return ErrEmailSyntax
	}
	if !AdmitDomain(Domain(s)) {
		return ErrEmailDomain
	}
	return nil
}

// Domain returns the lower-cased part of email after the last '@', or ""
// when there is none.
func Domain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[i+1:]))
}

// PDFExt is the only file extension accepted for conversion.
const PDFExt = ".pdf"

// CheckFile applies the file gate: a non-empty file whose name ends in .pdf
// (any case) and whose size does not exceed limit bytes.
func CheckFile(name string, size, limit int64) error {
	if strings.TrimSpace(name) == "" {
		return ErrFileRequired
	}
	if !strings.EqualFold(filepath.Ext(name), PDFExt) {
		return ErrFileType
	}
	if size <= 0 {
		return ErrFileEmpty
	}
	if limit > 0 && size > limit {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("File size must be less than %s", formatLimit(limit)),
		}
	}
	return nil
}

// IsOversize reports whether err is a file size rejection from CheckFile.
func IsOversize(err error) bool {
	ve, ok := err.(*ValidationError)
	return ok && ve.Field == "file" && strings.HasPrefix(ve.Message, "File size must be")
}

// formatLimit renders a byte limit the way the upload form advertises it
// ("50MB"); limits that are not whole MiB fall back to bytes.
func formatLimit(limit int64) string {
	const mib = 1024 * 1024
	if limit%mib == 0 {
		return fmt.Sprintf("%dMB", limit/mib)
	}
	return fmt.Sprintf("%d bytes", limit)
}
