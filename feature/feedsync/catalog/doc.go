// Package catalog talks to the remote product catalog: fuzzy matching of
// feed items against existing products, and the create, update and delete
// mutations that reconcile the two.
//
// The Matcher resolves feed items to remote products through tiered
// search queries, memoizing results per query for the run. The Executor
// performs mutations under an exponential backoff policy; only transport
// failures are retried, a mutation the remote rejected is permanent.
package catalog
