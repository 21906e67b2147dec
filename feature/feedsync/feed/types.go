package feed

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Condition describes the physical state of a feed item.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionRefurbished Condition = "refurbished"
	ConditionUsed        Condition = "used"
)

// ParseCondition normalizes a raw feed value into a Condition. Unknown
// values fall back to new, matching how merchant feeds omit the field for
// new stock.
func ParseCondition(raw string) Condition {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "refurbished", "reacondicionado":
		return ConditionRefurbished
	case "used", "usado":
		return ConditionUsed
	default:
		return ConditionNew
	}
}

// Label returns the display form used for the remote option value.
func (c Condition) Label() string {
	switch c {
	case ConditionRefurbished:
		return "Refurbished"
	case ConditionUsed:
		return "Used"
	default:
		return "New"
	}
}

// Availability describes the stock state advertised by the feed.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityPreorder   Availability = "preorder"
	AvailabilityUnknown    Availability = "unknown"
)

// ParseAvailability normalizes a raw feed value into an Availability.
func ParseAvailability(raw string) Availability {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in_stock", "in stock", "instock":
		return AvailabilityInStock
	case "out_of_stock", "out of stock", "outofstock":
		return AvailabilityOutOfStock
	case "preorder", "pre-order", "backorder":
		return AvailabilityPreorder
	default:
		return AvailabilityUnknown
	}
}

// Item is one canonical product entry extracted from a feed document.
// Items are immutable once parsed.
type Item struct {
	// ExternalID is the feed's identifier for the entry. Always set; a
	// positional fallback is synthesized when the feed carries none.
	ExternalID string
	// GroupID links size/color variants of one logical product. Empty for
	// standalone items.
	GroupID     string
	Title       string
	Description string
	Vendor      string
	Condition   Condition
	// Price is always a non-negative decimal; unparsable feed values
	// collapse to zero.
	Price decimal.Decimal
	// SKU resolution priority: gtin > mpn > externalId. Empty when none
	// apply.
	SKU string
	// GTIN is a numeric string of at least 8 digits, or empty.
	GTIN string
	// Images holds the absolute HTTP(S) image URLs, primary first.
	Images       []string
	Availability Availability
	Color        string
	Category     string
	// Tags is the deduplicated union of brand, color, condition, category
	// and explicit tag lists.
	Tags []string
}
