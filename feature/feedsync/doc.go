// Package feedsync reconciles XML product feeds against a remote
// Shopify-style catalog.
//
// A run downloads the provider's feed, archives the raw document,
// parses and groups it, then drives the pipeline that creates, updates
// and deletes remote products. Every run is recorded as a SyncLog and
// streams progress events over the notifier hub.
//
// Subpackages:
//   - feed: parsing, normalization, variant grouping
//   - catalog: remote matching and mutations
//   - pipeline: batched concurrent reconciliation
//   - models: persistence of providers, mappings and run logs
package feedsync
