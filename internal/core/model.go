package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is a spending category drawn from a fixed closed set.
type Category string

const (
	CategoryGroceries      Category = "Groceries"
	CategoryTransportation Category = "Transportation"
	CategoryFoodDining     Category = "Food & Dining"
	CategoryShopping       Category = "Shopping"
	CategoryUtilities      Category = "Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEntertainment  Category = "Entertainment"
	CategoryEducation      Category = "Education"
	CategoryInsurance      Category = "Insurance"
	CategoryTravel         Category = "Travel"
	CategoryHomeGarden     Category = "Home & Garden"
	CategoryPersonalCare   Category = "Personal Care"
	CategoryBusiness       Category = "Business"
	CategoryGiftsDonations Category = "Gifts & Donations"
	CategoryOther          Category = "Other"
)

// Categories returns the closed set of valid categories.
func Categories() []Category {
	return []Category{
		CategoryGroceries,
		CategoryTransportation,
		CategoryFoodDining,
		CategoryShopping,
		CategoryUtilities,
		CategoryHealthcare,
		CategoryEntertainment,
		CategoryEducation,
		CategoryInsurance,
		CategoryTravel,
		CategoryHomeGarden,
		CategoryPersonalCare,
		CategoryBusiness,
		CategoryGiftsDonations,
		CategoryOther,
	}
}

// ParseCategory matches a label against the closed set, case-insensitively.
// Returns false when the label is not a member of the set.
func ParseCategory(label string) (Category, bool) {
	trimmed := strings.TrimSpace(label)
	for _, c := range Categories() {
		if strings.EqualFold(trimmed, string(c)) {
			return c, true
		}
	}
	return CategoryOther, false
}

// Header is a single message header name/value pair.
type Header struct {
	Name  string
	Value string
}

// MessagePart is one node of a MIME part tree. Data carries the
// base64url-encoded payload as received from the mail API.
type MessagePart struct {
	MimeType string
	Data     string
	Parts    []MessagePart
}

// RawMessage is a fetched mail message. Immutable once fetched; the
// pipeline parses it and discards it.
type RawMessage struct {
	ID       string
	ThreadID string
	Headers  []Header
	Payload  MessagePart
}

// Header returns the first header with the given name, case-insensitively.
func (m *RawMessage) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ExtractedExpense is a raw expense record parsed from a message body.
type ExtractedExpense struct {
	Merchant   string
	Amount     decimal.Decimal
	Currency   string
	OccurredAt time.Time
	Location   string
}

// Validate reports whether the record satisfies the storage invariants:
// non-empty merchant and a positive amount.
func (e *ExtractedExpense) Validate() error {
	if strings.TrimSpace(e.Merchant) == "" {
		return fmt.Errorf("expense has no merchant")
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("expense amount %s is not positive", e.Amount)
	}
	return nil
}

// CategorizationRequest is the view of an expense sent to the classifier.
type CategorizationRequest struct {
	Merchant   string
	Amount     decimal.Decimal
	Currency   string
	Location   string
	OccurredAt time.Time
}

// Request returns the classifier view of the expense.
func (e *ExtractedExpense) Request() CategorizationRequest {
	return CategorizationRequest{
		Merchant:   e.Merchant,
		Amount:     e.Amount,
		Currency:   e.Currency,
		Location:   e.Location,
		OccurredAt: e.OccurredAt,
	}
}

// CategorizedExpense is an extracted expense plus its assigned category.
// OwnerKey scopes the record to its sender/window for idempotent re-import.
type CategorizedExpense struct {
	ExtractedExpense
	Category Category
	OwnerKey string
}

// ImportSummary is the aggregate result of one orchestration run. It is
// returned to the caller and never persisted. Errors > 0 means partial
// success, not failure.
type ImportSummary struct {
	RunID       string
	Processed   int
	Extracted   int
	Categorized int
	Stored      int
	Deleted     int
	Errors      int
}
