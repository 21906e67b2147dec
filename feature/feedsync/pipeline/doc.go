// Package pipeline drives one reconciliation run: variant groups go
// through match, decide, mutate in concurrent batches of fixed width,
// with a join barrier and a cooldown between batches.
//
// A group failure is recorded and reported, never fatal; the run always
// reaches its completion event. When the provider opts in, a final pass
// deletes remote products whose groups vanished from the feed.
package pipeline
