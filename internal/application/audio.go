package application

import "io"

// UploadStore stages uploaded audio on disk for engines that read files.
// release removes the staged file and must be called exactly once.
type UploadStore interface {
	Stage(filename string, body io.Reader) (path string, release func() error, err error)
}
