package feed

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"feed-sync/core/utils"

	"github.com/clbanning/mxj/v2"
	"github.com/shopspring/decimal"
)

func init() {
	// Attribute keys carry the @_ prefix and text nodes decode to #text,
	// matching the conventions the feed shapes below are written against.
	mxj.SetAttrPrefix("@_")
}

// ParseError reports malformed feed markup. It is fatal for the whole run:
// no partial item list is ever returned.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// feedShape names one recognized document layout and the path to its
// product records. The first shape whose path yields records wins, so
// supporting a new layout is a data change, not a control-flow change.
type feedShape struct {
	name string
	path []string
}

var feedShapes = []feedShape{
	{"products.product", []string{"products", "product"}},
	{"catalog.item", []string{"catalog", "item"}},
	{"rss.channel.item", []string{"rss", "channel", "item"}},
	{"feed.entry", []string{"feed", "entry"}},
	{"channel.item", []string{"channel", "item"}},
	{"item", []string{"item"}},
	{"product", []string{"product"}},
}

// Parser turns raw feed bytes into canonical items.
type Parser struct{}

// NewParser creates a feed parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes the document and extracts its product records. A document
// in none of the recognized shapes and with no nested array of objects
// yields an empty slice; only malformed markup is an error.
func (p *Parser) Parse(data []byte) ([]Item, error) {
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	doc := stripNamespaces(map[string]any(m))

	records := extractRecords(doc)
	items := make([]Item, 0, len(records))
	for i, rec := range records {
		items = append(items, normalizeItem(rec, i))
	}
	return items, nil
}

// extractRecords walks the shape ladder, then falls back to a generic scan
// for the first array-valued property whose elements are objects (top
// level first, then one level of nesting). Keys are visited in sorted
// order so the fallback is deterministic.
func extractRecords(doc map[string]any) []map[string]any {
	if recs := scanRecords(doc); len(recs) > 0 {
		return recs
	}

	// A document has exactly one root element; retry one level down so a
	// wrapper root (<export><item>...) still matches.
	if len(doc) == 1 {
		for _, v := range doc {
			if inner, ok := v.(map[string]any); ok {
				return scanRecords(inner)
			}
		}
	}
	return nil
}

func scanRecords(node map[string]any) []map[string]any {
	for _, shape := range feedShapes {
		if recs := recordsAt(node, shape.path); len(recs) > 0 {
			return recs
		}
	}

	for _, key := range sortedKeys(node) {
		if recs := objectSlice(node[key]); len(recs) > 0 {
			return recs
		}
	}
	for _, key := range sortedKeys(node) {
		nested, ok := node[key].(map[string]any)
		if !ok {
			continue
		}
		for _, nestedKey := range sortedKeys(nested) {
			if recs := objectSlice(nested[nestedKey]); len(recs) > 0 {
				return recs
			}
		}
	}
	return nil
}

func recordsAt(doc map[string]any, path []string) []map[string]any {
	var current any = doc
	for _, segment := range path {
		node, ok := current.(map[string]any)
		if !ok {
			// Repeated intermediate elements decode to a slice; descend
			// into the first one.
			list, isList := current.([]any)
			if !isList || len(list) == 0 {
				return nil
			}
			node, ok = list[0].(map[string]any)
			if !ok {
				return nil
			}
		}
		current, ok = node[segment]
		if !ok {
			return nil
		}
	}
	return asRecords(current)
}

// asRecords accepts either a single object or a list of objects.
func asRecords(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		recs := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if m, ok := el.(map[string]any); ok {
				recs = append(recs, m)
			}
		}
		return recs
	default:
		return nil
	}
}

// objectSlice returns the records only when v is a non-empty slice whose
// first element is an object, mirroring the generic-scan predicate.
func objectSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	if _, ok := list[0].(map[string]any); !ok {
		return nil
	}
	return asRecords(list)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	priceTokenPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	gtinPattern       = regexp.MustCompile(`^\d{8,}$`)
)

// ExtractPrice derives a non-negative decimal from a possibly
// unit-suffixed value ("179.00 EUR", "€45"). Values with no numeric token
// collapse to zero. The extraction is idempotent on already-numeric input.
func ExtractPrice(raw string) decimal.Decimal {
	token := priceTokenPattern.FindString(raw)
	if token == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(token)
	if err != nil || price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// normalizeItem maps one raw record into a canonical Item.
func normalizeItem(rec map[string]any, index int) Item {
	externalID := field(rec, "id", "@_id", "gtin", "sku")
	if externalID == "" {
		externalID = fmt.Sprintf("product-%d", index)
	}

	title := field(rec, "title", "name")
	if title == "" {
		title = fmt.Sprintf("Product %d", index+1)
	}

	description := field(rec, "description", "summary")
	if description == "" {
		description = title
	}

	gtin := field(rec, "gtin")
	if !gtinPattern.MatchString(gtin) {
		gtin = ""
	}

	sku := gtin
	if sku == "" {
		sku = field(rec, "mpn")
	}
	if sku == "" {
		sku = externalID
	}

	category := field(rec, "category", "product_type", "type")
	if category == "" {
		category = "General"
	}

	item := Item{
		ExternalID:   externalID,
		GroupID:      field(rec, "item_group_id", "group_id"),
		Title:        title,
		Description:  description,
		Vendor:       field(rec, "brand", "vendor", "manufacturer"),
		Condition:    ParseCondition(field(rec, "condition")),
		Price:        ExtractPrice(field(rec, "sale_price", "price", "cost", "amount")),
		SKU:          sku,
		GTIN:         gtin,
		Images:       extractImages(rec),
		Availability: ParseAvailability(field(rec, "availability")),
		Color:        field(rec, "color"),
		Category:     category,
	}
	item.Tags = extractTags(rec, item)
	return item
}

// field returns the first non-empty value among the given keys.
func field(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			if s := strings.TrimSpace(utils.ToString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// extractImages collects the primary image_link plus legacy image and
// images.image fields, keeping only absolute HTTP(S) URLs and dropping
// duplicates.
func extractImages(rec map[string]any) []string {
	var candidates []string
	candidates = append(candidates, stringList(rec["image_link"])...)
	candidates = append(candidates, stringList(rec["image"])...)
	if images, ok := rec["images"].(map[string]any); ok {
		candidates = append(candidates, stringList(images["image"])...)
	}

	seen := make(map[string]struct{}, len(candidates))
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !isHTTPURL(c) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		urls = append(urls, c)
	}
	return urls
}

func isHTTPURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// extractTags unions the descriptive fields with the explicit tag and
// category lists, deduplicated with set semantics.
func extractTags(rec map[string]any, item Item) []string {
	var candidates []string
	if item.Vendor != "" {
		candidates = append(candidates, item.Vendor)
	}
	if item.Color != "" {
		candidates = append(candidates, item.Color)
	}
	candidates = append(candidates, string(item.Condition))
	if item.Category != "" {
		candidates = append(candidates, item.Category)
	}
	candidates = append(candidates, stringList(rec["tags"])...)
	candidates = append(candidates, stringList(rec["categories"])...)

	seen := make(map[string]struct{}, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		tags = append(tags, c)
	}
	return tags
}

// stringList flattens a scalar, a #text-carrying map, or a list of either
// into plain strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s := utils.ToString(el); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := utils.ToString(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// stripNamespaces removes namespace prefixes from element and attribute
// keys (g:id -> id, @_g:id -> @_id) so the shape ladder sees uniform
// names. Unprefixed keys win on collision.
func stripNamespaces(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == stripKey(k) {
			out[k] = stripValue(v)
		}
	}
	for k, v := range doc {
		nk := stripKey(k)
		if nk == k {
			continue
		}
		if _, exists := out[nk]; !exists {
			out[nk] = stripValue(v)
		}
	}
	return out
}

func stripValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return stripNamespaces(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = stripValue(el)
		}
		return out
	default:
		return v
	}
}

func stripKey(k string) string {
	isAttr := strings.HasPrefix(k, "@_")
	body := strings.TrimPrefix(k, "@_")
	if i := strings.LastIndex(body, ":"); i >= 0 {
		body = body[i+1:]
	}
	if isAttr {
		return "@_" + body
	}
	return body
}
