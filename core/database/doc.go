// Package database provides the GORM/MySQL connection for the tracking
// store.
//
// The tracking store owns the local side of the reconciliation state:
// feed providers, product mappings (feed group -> remote product id) and
// sync run logs. The feature packages define the concrete models and
// repositories; this package only knows how to open and migrate the
// connection.
package database
