package core

// error_messages.go maps technical errors to user-facing messages with codes
// support staff can look up.
//
// # Error Codes Reference
//
// File errors (FILE001-FILE099):
//
//	FILE001 - File too large
//	FILE002 - Invalid file type (not xls, xlsx or csv)
//	FILE003 - Empty, missing or unreadable file
//	FILE004 - No file uploaded
//	FILE005 - Corrupt or unsupported workbook, including legacy .xls
//	FILE006 - Headers present but no data rows
//	FILE007 - More than one file uploaded
//
// Header errors (HDR001-HDR099), one per header check:
//
//	HDR001 - Header row is empty
//	HDR002 - Duplicate column headers
//	HDR003 - Missing required columns
//	HDR004 - Unexpected columns
//	HDR005 - Missing attribute columns
//
// Row errors:
//
//	ROW001 - Unknown attribute column
//
// Database errors (DB001-DB099):
//
//	DB001 - Duplicate key / unique constraint
//	DB002 - Foreign key violation
//	DB003 - Connection refused or reset
//	DB004 - Timeout
//	DB005 - Record not found
//
// Import run errors (IMP001-IMP099):
//
//	IMP001 - Too many imports in progress
//	IMP002 - Request cancelled
//	IMP003 - Nothing to export
//
// Term errors (TERM001-TERM099):
//
//	TERM001 - Missing or invalid attribute or term name
//	TERM002 - Unknown attribute
//	TERM003 - Term already exists
//
// Security errors:
//
//	AUTH001 - Missing capability
//	AUTH002 - Security check (nonce) failed
//	RATE001 - Rate limited
//
// ERR000 is the fallback; check the logs for the technical error.
//
// Typed errors are matched first, then case-insensitive substrings in order.
// The first match wins, so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// Sentinels raised by the outer layers and mapped here.
var (
	ErrTooManyImports = errors.New("too many imports in progress")
	ErrNoFile         = errors.New("no file provided")
	ErrFileTooLarge   = errors.New("file too large")
	ErrMultipleFiles  = errors.New("more than one file uploaded")
	ErrMissingInput   = errors.New("missing required input")
	ErrInvalidTerm    = errors.New("invalid term name")
	ErrUnknownAttr    = errors.New("invalid attribute")
	ErrForbidden      = errors.New("insufficient permissions")
	ErrBadNonce       = errors.New("security check failed")
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size (10MB)",
		Action:  "Split the catalog into smaller files",
		Code:    "FILE001",
	}
	msgBadType = UserMessage{
		Message: "Invalid file type",
		Action:  "Upload an .xlsx, .xls or .csv file",
		Code:    "FILE002",
	}
	msgUnreadable = UserMessage{
		Message: "The file is empty or cannot be read",
		Action:  "Check the file and upload it again",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was uploaded",
		Action:  "Select an Excel file and try again",
		Code:    "FILE004",
	}
	msgCorrupt = UserMessage{
		Message: "The workbook could not be read",
		Action:  "Re-save the file as .xlsx and try again",
		Code:    "FILE005",
	}
	msgNoRows = UserMessage{
		Message: "The file contains only headers but no data rows",
		Action:  "Add at least one product row below the header",
		Code:    "FILE006",
	}
	msgTooMany = UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgCancelled = UserMessage{
		Message: "The request was cancelled or timed out",
		Action:  "Try again, or import a smaller file",
		Code:    "IMP002",
	}
	msgNoProducts = UserMessage{
		Message: "No products found to export",
		Action:  "Import products first",
		Code:    "IMP003",
	}
	msgTermExists = UserMessage{
		Message: "A term with the name provided already exists",
		Action:  "Use the existing term",
		Code:    "TERM003",
	}
)

var schemaMessages = map[SchemaKind]UserMessage{
	SchemaEmptyHeader: {
		Message: "Excel file header row is empty",
		Action:  "Use the Export function to generate a correctly formatted template",
		Code:    "HDR001",
	},
	SchemaDuplicateColumns: {
		Message: "Excel file has duplicate column headers",
		Action:  "Remove the repeated columns",
		Code:    "HDR002",
	},
	SchemaMissingRequired: {
		Message: "Required columns are missing",
		Action:  "Use the Export function to generate a correctly formatted template",
		Code:    "HDR003",
	},
	SchemaUnexpectedColumns: {
		Message: "Unexpected columns found",
		Action:  "Remove columns that are not registered attributes",
		Code:    "HDR004",
	},
	SchemaMissingAttributes: {
		Message: "Attribute columns are missing",
		Action:  "Use the Export function to generate a correctly formatted template",
		Code:    "HDR005",
	},
}

// errorPatterns are matched in order against the lowercased error text.
var errorPatterns = []errorPattern{
	// Database
	{pattern: "duplicate key", msg: UserMessage{Message: "A record with this identifier already exists", Action: "Check for duplicate entries and try again", Code: "DB001"}},
	{pattern: "unique constraint", msg: UserMessage{Message: "A record with this identifier already exists", Action: "Check for duplicate entries and try again", Code: "DB001"}},
	{pattern: "foreign key", msg: UserMessage{Message: "Referenced record does not exist", Action: "Reload the page and try again", Code: "DB002"}},
	{pattern: "connection refused", msg: UserMessage{Message: "Unable to connect to the database", Action: "Please try again in a few moments", Code: "DB003"}},
	{pattern: "connection reset", msg: UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB003"}},
	{pattern: "database is locked", msg: UserMessage{Message: "The database is busy", Action: "Please try again", Code: "DB004"}},
	{pattern: "timeout", msg: UserMessage{Message: "Operation timed out", Action: "Try a smaller file or try again later", Code: "DB004"}},

	// Terms
	{pattern: "missing required input", msg: UserMessage{Message: "Missing required fields", Action: "Provide both the attribute and the term name", Code: "TERM001"}},
	{pattern: "invalid term name", msg: UserMessage{Message: "Invalid term name", Action: "Use at most 200 characters and no < > \" '", Code: "TERM001"}},
	{pattern: "invalid attribute", msg: UserMessage{Message: "Invalid attribute", Action: "Choose one of the registered attributes", Code: "TERM002"}},
	{pattern: "invalid taxonomy", msg: UserMessage{Message: "Invalid attribute", Action: "Choose one of the registered attributes", Code: "TERM002"}},

	// Security
	{pattern: "insufficient permissions", msg: UserMessage{Message: "You do not have sufficient permissions to perform this action", Action: "Sign in with a catalog manager key", Code: "AUTH001"}},
	{pattern: "security check failed", msg: UserMessage{Message: "Security check failed", Action: "Reload the page and try again", Code: "AUTH002"}},
	{pattern: "rate limit", msg: UserMessage{Message: "Too many requests", Action: "Please wait a moment before trying again", Code: "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		schemaErr *SchemaError
		formatErr *FormatError
		ioErr     *IOError
		colErr    *UnknownColumnError
	)

	switch {
	case errors.As(err, &schemaErr):
		msg, ok := schemaMessages[schemaErr.Kind]
		return msg, ok
	case errors.As(err, &formatErr):
		switch {
		case strings.Contains(formatErr.Msg, "no data rows"):
			return msgNoRows, true
		case strings.HasPrefix(formatErr.Msg, "Invalid file type"):
			return msgBadType, true
		}
		return msgCorrupt, true
	case errors.As(err, &ioErr):
		return msgUnreadable, true
	case errors.As(err, &colErr):
		return UserMessage{Message: colErr.Error(), Action: "Register the attribute before importing", Code: "ROW001"}, true
	case errors.Is(err, ErrFileTooLarge):
		return msgTooLarge, true
	case errors.Is(err, ErrNoFile):
		return msgNoFile, true
	case errors.Is(err, ErrMultipleFiles):
		return UserMessage{Message: "Only one file can be uploaded at a time", Action: "Select a single catalog file", Code: "FILE007"}, true
	case errors.Is(err, ErrUnsupportedFormat):
		return msgBadType, true
	case errors.Is(err, ErrTooManyImports):
		return msgTooMany, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgCancelled, true
	case errors.Is(err, ErrNoProducts):
		return msgNoProducts, true
	case errors.Is(err, ErrTermExists):
		return msgTermExists, true
	case errors.Is(err, ErrNotFound):
		return UserMessage{Message: "Record not found", Action: "Reload the page and try again", Code: "DB005"}, true
	}
	return UserMessage{}, false
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
