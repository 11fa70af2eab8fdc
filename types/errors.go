package types

import "fmt"

// UnsupportedFormatError is returned when a file's extension is not in
// the configured allow-list or the file cannot be found.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document %s: %s", e.Path, e.Reason)
}

// ProcessingError is returned when ingestion of a document or a
// directory fails. It is fatal for single-document calls and
// skip-and-continue at directory granularity.
type ProcessingError struct {
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process %s: %v", e.Path, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IndexInitError is returned when the vector index or its embedding
// provider cannot be initialized.
type IndexInitError struct {
	Err error
}

func (e *IndexInitError) Error() string {
	return fmt.Sprintf("failed to initialize vector index: %v", e.Err)
}

func (e *IndexInitError) Unwrap() error { return e.Err }

// IndexWriteError is returned when persisting chunks fails. Batches
// written before the failure stay persisted.
type IndexWriteError struct {
	Err error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("failed to write to vector index: %v", e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// IndexSearchError is returned when a similarity search cannot be
// served, embedding failures included.
type IndexSearchError struct {
	Err error
}

func (e *IndexSearchError) Error() string {
	return fmt.Sprintf("failed to search vector index: %v", e.Err)
}

func (e *IndexSearchError) Unwrap() error { return e.Err }

// ModelNotFoundError is returned when a requested generation model is
// absent from the backend's published catalog.
type ModelNotFoundError struct {
	Model string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s not available", e.Model)
}

// QueryError wraps any unexpected failure while generating an answer.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to generate response: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
