// Package types defines the Database contract the ORM is written against,
// the binding and row shapes exchanged with it, configuration, and the
// standard error values shared by the dbo packages.
package types
