package core

import (
	"strings"
)

// Validation limits
const (
	MaxCategoryNameLength = 50
	MaxMemoLength         = 200
)

type (
	// Category is a named asset bucket (cash, bank, stock, ...).
	Category struct {
		ID        string
		Name      string
		Icon      *string
		SortOrder int
		IsDefault bool
	}

	// Snapshot is one recorded amount for one category on one calendar day.
	// (Date, CategoryID) is its identity.
	Snapshot struct {
		Date       Date
		CategoryID string
		Amount     int64 // whole currency units
		Memo       *string
	}

	// SnapshotKey identifies a snapshot.
	SnapshotKey struct {
		Date       Date
		CategoryID string
	}
)

// Key returns the composite identity of the snapshot.
func (s Snapshot) Key() SnapshotKey {
	return SnapshotKey{Date: s.Date, CategoryID: s.CategoryID}
}

// Validate checks a snapshot submitted by a user. Amounts are asset values and must not be
// negative at this boundary even though storage itself accepts any int64.
func (s Snapshot) Validate() error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.CategoryID) == "" {
		return &ValidationError{Field: "categoryId", Reason: "category is required"}
	}
	if s.Amount < 0 {
		return &ValidationError{Field: "amount", Reason: "amount must not be negative"}
	}
	if s.Memo != nil && len(*s.Memo) > MaxMemoLength {
		return &ValidationError{Field: "memo", Reason: "memo too long (max 200 characters)"}
	}
	return nil
}

// Validate checks category fields.
func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return &ValidationError{Field: "id", Reason: "id is required"}
	}
	return ValidateCategoryName(c.Name)
}

// ValidateCategoryName rejects blank and overlong names.
func ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if len([]rune(name)) > MaxCategoryNameLength {
		return &ValidationError{Field: "name", Reason: "name too long (max 50 characters)"}
	}
	return nil
}

// IconOrDefault returns the icon reference, falling back to the generic icon.
func (c Category) IconOrDefault() string {
	if c.Icon == nil || *c.Icon == "" {
		return DefaultIcon
	}
	return *c.Icon
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
