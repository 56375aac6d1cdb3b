package sqldb

import "errors"

// Database handle errors.
var (
	ErrTransactionActive = errors.New("transaction already active")
	ErrNoTransaction     = errors.New("no active transaction")
	ErrClosed            = errors.New("database handle is closed")
)
