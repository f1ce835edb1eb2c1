package util

import "errors"

var (
	// ErrNoTextFound means the PDF parsed fine but had no selectable text
	// left after stripping visual markers and whitespace.
	ErrNoTextFound = errors.New("no selectable text found in document")

	// ErrPromptMissing aborts a job before any model call is made.
	ErrPromptMissing = errors.New("prompt template missing")

	// ErrMetadataMismatch means the labeler produced a metadata sequence
	// whose length does not match the chunk sequence even after padding.
	ErrMetadataMismatch = errors.New("labeled metadata count does not match chunk count")
)
