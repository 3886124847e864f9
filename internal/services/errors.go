package services

import "errors"

var (
	// ErrExtractionFailed means no text survived direct parsing and OCR.
	ErrExtractionFailed = errors.New("failed to extract text from the document")
	// ErrUnsupportedFile means the upload is neither a PDF nor a supported image.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrEmbeddingFailed means no usable vector could be produced for a text.
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
	// ErrMatchServiceUnavailable means the vector store errored or answered in
	// a shape we could not read.
	ErrMatchServiceUnavailable = errors.New("match service unavailable")
	ErrJobNotFound             = errors.New("job not found")
	ErrResumeNotFound          = errors.New("resume not found")
	ErrInvalidJob              = errors.New("invalid job posting")
	ErrInvalidMatchRequest     = errors.New("invalid match request")
)
