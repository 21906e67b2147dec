package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RemoteProduct is the catalog-side view of a product, as returned by
// search and lookup queries.
type RemoteProduct struct {
	ID          string
	Title       string
	Handle      string
	Vendor      string
	Description string
	Tags        []string
	Variants    []RemoteVariant
	Images      []string
}

// RemoteVariant is one purchasable variant of a remote product.
type RemoteVariant struct {
	ID      string
	SKU     string
	Barcode string
	Price   decimal.Decimal
}

// VariantBySKU returns the variant with the given SKU, or nil.
func (p *RemoteProduct) VariantBySKU(sku string) *RemoteVariant {
	if sku == "" {
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// VariantByBarcode returns the variant with the given barcode, or nil.
func (p *RemoteProduct) VariantByBarcode(barcode string) *RemoteVariant {
	if barcode == "" {
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].Barcode == barcode {
			return &p.Variants[i]
		}
	}
	return nil
}

// HasImage reports whether the product already carries the given source
// URL.
func (p *RemoteProduct) HasImage(url string) bool {
	for _, img := range p.Images {
		if img == url {
			return true
		}
	}
	return false
}

// UserError is one field-level rejection reported by a mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// MutationError reports that the remote accepted the call but rejected
// the mutation. It is permanent: retrying the same payload cannot
// succeed.
type MutationError struct {
	Operation string
	Errors    []UserError
}

func (e *MutationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		if len(ue.Field) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(ue.Field, "."), ue.Message))
			continue
		}
		msgs = append(msgs, ue.Message)
	}
	return fmt.Sprintf("%s rejected: %s", e.Operation, strings.Join(msgs, "; "))
}

// TransportError wraps a network or HTTP-level failure. It is the only
// error class the retry loop treats as transient.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError reports input rejected locally, before any remote call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
