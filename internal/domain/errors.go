package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned by generators when the service answered
// without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// ErrMalformedResponse is returned when a service reply cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response from model")

// UploadError reports a failure to receive or stage an uploaded file.
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// TranscriptionError reports a speech engine failure on a staged file.
type TranscriptionError struct {
	Filename string
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribing %q: %v", e.Filename, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
