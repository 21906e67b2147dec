// Package storage provides the object storage client used for the feed
// snapshot archive.
//
// Every sync run archives the raw downloaded feed bytes under
// feeds/{providerID}/{runID}.xml, so a problematic run can be replayed or
// inspected later. Archiving is best effort: a storage failure is logged
// and never fails the run.
//
// The Client interface wraps the subset of the Minio API the application
// uses, which keeps services testable with the mock in storage/mocks.
package storage
