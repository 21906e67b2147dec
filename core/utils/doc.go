// Package utils contains small conversion helpers shared across packages.
//
// The feed parser deals with dynamically shaped values (maps, slices and
// scalars produced by the generic XML decoder); ToString and ToInt collapse
// those into the scalar the caller needs without panicking on unexpected
// shapes.
package utils
