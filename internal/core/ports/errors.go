package ports

import "errors"

// Store errors returned by repository implementations.
var (
	// ErrStoreConflict is a transient lock timeout, deadlock or
	// serialization failure. The transaction must be retried from scratch.
	ErrStoreConflict = errors.New("store: concurrent update conflict")

	ErrWalletExists  = errors.New("store: wallet already exists for owner")
	ErrUsernameTaken = errors.New("store: username already taken")
	ErrEmailTaken    = errors.New("store: email already taken")
)
