// Package feed turns raw XML product feeds into canonical items and
// variant groups.
//
// # Parsing
//
// Merchant feeds arrive in a handful of ambiguous layouts (Google Shopping
// Atom entries, RSS channels, bare product lists). The parser probes a
// fixed, ordered list of shapes and falls back to a generic scan for the
// first array of objects anywhere near the document root. Namespace
// prefixes are stripped so g:id and id are the same field.
//
// # Grouping
//
// Items sharing an item_group_id are variants of one logical product.
// Group partitions a parsed feed into VariantGroups and selects each
// group's master item with a fixed, deterministic tie-break.
package feed
