package vault

import "errors"

var (
	// ErrNotInitialized is returned by every operation before Initialize and
	// after Close.
	ErrNotInitialized = errors.New("vault is not initialized")

	// ErrConfiguration is returned when an operation needs a subsystem the
	// vault was configured without, e.g. searching with search disabled.
	ErrConfiguration = errors.New("vault configuration error")

	// ErrBackupVerification is returned when a backup fails its checksum or
	// format checks. It is always returned before any decryption is tried.
	ErrBackupVerification = errors.New("backup verification failed")

	// ErrKeyMismatch is returned by Initialize when the supplied key or
	// passphrase does not open the existing store.
	ErrKeyMismatch = errors.New("key does not match the vault")

	// ErrInvalidDocument is returned for documents the vault refuses to store.
	ErrInvalidDocument = errors.New("invalid document")
)
