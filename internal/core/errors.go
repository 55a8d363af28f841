package core

// errors.go defines the error taxonomy of an import or export run.
//
// File and header problems (IOError, FormatError, SchemaError) abort a run
// before any row is processed. RowRejection and StoreError are per-row and
// end up as ignored rows in the ImportReport.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by store lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrTermExists is returned when adding a term that is already present under the attribute.
	ErrTermExists = errors.New("a term with the name provided already exists")

	// ErrNoProducts is returned by export when the catalog is empty.
	ErrNoProducts = errors.New("no products found to export")

	// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

	// ErrPurgeDisabled is returned when purge is requested but delete-on-uninstall is off.
	ErrPurgeDisabled = errors.New("purge disabled: delete_on_uninstall is not enabled")
)

// IOError reports a missing, unreadable or empty input file.
type IOError struct {
	Path string
	Msg  string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *IOError) Unwrap() error { return e.Err }

// FormatError reports a corrupt or unsupported file, or a file without data rows.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s Error: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaKind identifies which header check failed.
type SchemaKind int

const (
	SchemaEmptyHeader SchemaKind = iota
	SchemaDuplicateColumns
	SchemaMissingRequired
	SchemaUnexpectedColumns
	SchemaMissingAttributes
)

// SchemaError reports a header row that does not match the registry exactly.
// Columns lists the offending header names; Allowed is the full expected set.
type SchemaError struct {
	Kind    SchemaKind
	Columns []string
	Allowed []string
}

func (e *SchemaError) Error() string {
	cols := strings.Join(e.Columns, ", ")
	switch e.Kind {
	case SchemaEmptyHeader:
		return "Excel file header row is empty. The first row must contain column names."
	case SchemaDuplicateColumns:
		return "Excel file contains duplicate column headers: " + cols + ". Each column name must be unique."
	case SchemaMissingRequired:
		return "Invalid Excel headers. Missing required columns: " + cols +
			". Please use the Export function to generate a correctly formatted template."
	case SchemaUnexpectedColumns:
		return "Invalid Excel headers. Unexpected columns found: " + cols +
			". Only the following columns are allowed: " + strings.Join(e.Allowed, ", ") +
			". Please use the Export function to generate a correct template."
	case SchemaMissingAttributes:
		return fmt.Sprintf("Invalid Excel headers. Missing taxonomy columns: %s. All %d registered taxonomy columns must be present. "+
			"Please use the Export function to generate a correct template.", cols, len(e.Allowed)-len(RequiredColumns()))
	default:
		return "invalid headers: " + cols
	}
}

// RejectCode classifies why a row was ignored.
type RejectCode string

const (
	RejectEmptyRow          RejectCode = "empty_row"
	RejectInvalidIdentifier RejectCode = "invalid_identifier"
	RejectDuplicate         RejectCode = "duplicate_identifier"
	RejectInvalidTitle      RejectCode = "invalid_title"
	RejectInvalidPrice      RejectCode = "invalid_price"
	RejectInvalidAttribute  RejectCode = "invalid_attribute"
	RejectStore             RejectCode = "store_error"
)

// RowRejection is a non-fatal, per-row failure.
type RowRejection struct {
	Row        int
	Identifier string // Best-effort identifier, may be empty
	Code       RejectCode
	Reason     string
}

func (e *RowRejection) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// StoreError wraps a persistence failure for one operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// UnknownColumnError is returned when a column does not resolve to a registered attribute.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("Taxonomy column %q is not allowed. Only registered taxonomies are permitted.", e.Column)
}

// IsFatal reports whether err aborts an import run (file or header level).
func IsFatal(err error) bool {
	var ioErr *IOError
	var fmtErr *FormatError
	var schemaErr *SchemaError
	return errors.As(err, &ioErr) || errors.As(err, &fmtErr) || errors.As(err, &schemaErr)
}
