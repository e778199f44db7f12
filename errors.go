package ragstore

import "errors"

var (
	// ErrDatabaseNotFound is returned when a named database does not exist.
	ErrDatabaseNotFound = errors.New("ragstore: database not found")

	// ErrDatabaseExists is returned when creating a database whose directory already exists.
	ErrDatabaseExists = errors.New("ragstore: database already exists")

	// ErrDocumentNotFound is returned when a document name or path does not exist.
	ErrDocumentNotFound = errors.New("ragstore: document not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("ragstore: unsupported document format")

	// ErrExtractionFailed is returned when text extraction fails.
	ErrExtractionFailed = errors.New("ragstore: text extraction failed")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("ragstore: embedding generation failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("ragstore: invalid configuration")
)
