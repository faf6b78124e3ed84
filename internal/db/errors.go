package db

import "errors"

var (
	// ErrConfiguration marks a malformed or mismatched connection target.
	// Fatal: retrying the same target cannot succeed.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnection marks an unavailable handle or a failed probe. The
	// schema and fuzzy paths surface it as an error; the read and write
	// paths absorb it into their value-shaped results.
	ErrConnection = errors.New("connection error")
)

// msgNoEngine is the exact message the query paths report when the implicit
// reconnect cannot produce a handle.
const msgNoEngine = "No database engine available."
