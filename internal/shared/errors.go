package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Catalog and document errors
	ErrFetchFailed        = fmt.Errorf("fetch failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrDocumentNotFound   = fmt.Errorf("document not found")
	ErrSongNotFound       = fmt.Errorf("song not found")
	ErrNotFound           = fmt.Errorf("not found")
	ErrNoSlides           = fmt.Errorf("document has no slides")

	// Presentation errors
	ErrNotReady         = fmt.Errorf("presentation not ready")
	ErrStaleLoad        = fmt.Errorf("song selection superseded")
	ErrChannelClosed    = fmt.Errorf("channel closed")
	ErrLocked           = fmt.Errorf("channel locked by another presenter")
	ErrUnknownTransport = fmt.Errorf("unknown transport")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
