package store

import "errors"

// Sentinel errors returned by storage methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrDocumentNotFound is returned when no row exists for the requested id.
	// It is never returned for a row that exists but fails verification.
	ErrDocumentNotFound = errors.New("document was not found")

	// ErrIntegrity is returned when the stored checksum does not match the
	// stored ciphertext, or when a decrypted body cannot be decoded. The
	// record is treated as corrupted; decryption is never attempted on a
	// checksum mismatch.
	ErrIntegrity = errors.New("document integrity check failed")

	// ErrMetadataNotFound is returned by GetMetadata for an absent key.
	ErrMetadataNotFound = errors.New("metadata key was not found")

	// ErrInvalidSnapshot is returned when a blob handed to RestoreDatabase is
	// not a database image produced by ExportDatabase.
	ErrInvalidSnapshot = errors.New("invalid database snapshot")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row fails.
	ErrScanningRow = errors.New("failed to scan document row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan document rows")
)
