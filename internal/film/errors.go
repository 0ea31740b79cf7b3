package film

import "errors"

var (
	// ErrInvalidInput marks an unreadable or zero-area source image.
	ErrInvalidInput = errors.New("invalid input image")

	// ErrCropRejected marks a band with no usable picture content.
	ErrCropRejected = errors.New("band rejected: no picture content")

	// ErrExtractionEmpty marks a strip that produced zero usable frames.
	ErrExtractionEmpty = errors.New("no frames extracted from strip")
)
