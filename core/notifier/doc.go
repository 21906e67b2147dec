// Package notifier carries sync progress events from the pipeline to
// whoever is watching.
//
// The pipeline only depends on the Notifier capability (Send(shop, event)).
// Two implementations exist: Hub, an in-memory fan-out feeding the SSE
// progress endpoint, and ZapNotifier, which logs events for CLI runs.
// Multi composes them.
package notifier
