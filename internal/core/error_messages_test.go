package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:     "missing file",
			err:      &IOError{Path: "x", Msg: "File does not exist: x"},
			wantCode: "FILE003",
		},
		{
			name:     "legacy workbook",
			err:      &FormatError{Msg: "Failed to read Excel file.", Err: ErrUnsupportedFormat},
			wantCode: "FILE005",
		},
		{
			name:     "no data rows",
			err:      &FormatError{Msg: "Excel file contains only headers but no data rows."},
			wantCode: "FILE006",
		},
		{
			name:     "bad extension",
			err:      &FormatError{Msg: `Invalid file type "pdf". Allowed formats: xls, xlsx, csv.`, Err: ErrUnsupportedFormat},
			wantCode: "FILE002",
		},
		{
			name:     "too large",
			err:      fmt.Errorf("%w: 12MB", ErrFileTooLarge),
			wantCode: "FILE001",
		},
		{
			name:     "no file",
			err:      ErrNoFile,
			wantCode: "FILE004",
		},
		{
			name:     "multiple files",
			err:      ErrMultipleFiles,
			wantCode: "FILE007",
		},
		{
			name:     "empty header",
			err:      &SchemaError{Kind: SchemaEmptyHeader},
			wantCode: "HDR001",
		},
		{
			name:     "wrapped schema error",
			err:      fmt.Errorf("import: %w", &SchemaError{Kind: SchemaMissingAttributes, Columns: []string{"GAUGE"}}),
			wantCode: "HDR005",
		},
		{
			name:     "unknown column",
			err:      &UnknownColumnError{Column: "BRAND"},
			wantCode: "ROW001",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this identifier already exists",
		},
		{
			name:     "foreign key",
			err:      errors.New("violates foreign key constraint"),
			wantCode: "DB002",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp: connection refused"),
			wantCode: "DB003",
		},
		{
			name:     "sqlite busy",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode: "DB004",
		},
		{
			name:     "not found",
			err:      fmt.Errorf("find: %w", ErrNotFound),
			wantCode: "DB005",
		},
		{
			name:     "too many imports",
			err:      ErrTooManyImports,
			wantCode: "IMP001",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("import: %w", context.DeadlineExceeded),
			wantCode: "IMP002",
		},
		{
			name:        "empty export",
			err:         ErrNoProducts,
			wantCode:    "IMP003",
			wantMessage: "No products found to export",
		},
		{
			name:     "missing term input",
			err:      fmt.Errorf("%w: attribute and term name", ErrMissingInput),
			wantCode: "TERM001",
		},
		{
			name:     "unknown attribute",
			err:      fmt.Errorf("%w: brand", ErrUnknownAttr),
			wantCode: "TERM002",
		},
		{
			name:        "term exists",
			err:         ErrTermExists,
			wantCode:    "TERM003",
			wantMessage: "A term with the name provided already exists",
		},
		{
			name:     "forbidden",
			err:      ErrForbidden,
			wantCode: "AUTH001",
		},
		{
			name:     "bad nonce",
			err:      ErrBadNonce,
			wantCode: "AUTH002",
		},
		{
			name:     "rate limit maps correctly",
			err:      errors.New("rate limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("something went wrong"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() Code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Errorf("MapError() Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapError_PatternsAreCaseInsensitive(t *testing.T) {
	if got := MapError(errors.New("CONNECTION REFUSED")).Code; got != "DB003" {
		t.Errorf("MapError() Code = %q, want DB003", got)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTermExists)
	want := "A term with the name provided already exists (Code: TERM003). Use the existing term"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrNoProducts) {
		t.Error("IsUserFacing(ErrNoProducts) = false, want true")
	}
	if IsUserFacing(errors.New("weird internal thing")) {
		t.Error("IsUserFacing(unknown) = true, want false")
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Fatal("NewUserError(nil) should be nil")
	}

	tech := fmt.Errorf("store: %w", ErrTermExists)
	ue := NewUserError(tech)
	if ue.User.Code != "TERM003" {
		t.Errorf("Code = %q, want TERM003", ue.User.Code)
	}
	if !errors.Is(ue, ErrTermExists) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want %q", ue.Error(), ue.User.Message)
	}
}
