// Package mcrawfs exposes recorded raw captures as virtual, read-only
// file trees: one DNG per output frame and a single WAVE file, all
// synthesized on demand.
package mcrawfs

import (
	"mcrawfs/pkg/capture"
	"mcrawfs/pkg/dng"
	"mcrawfs/pkg/log"
	"mcrawfs/pkg/vfs"
)

// Open mounts a capture file with the built-in capture decoder and
// DNG encoder. Call Close on the returned file system when done.
func Open(path string, options vfs.Options, draftScale int, logger log.ILogger) (*vfs.FileSystem, error) {
	return vfs.New(vfs.Config{
		Path:       path,
		Options:    options,
		DraftScale: draftScale,
		NewDecoder: func(p string) (vfs.Decoder, error) {
			return capture.NewDecoder(p)
		},
		Encoder: dng.NewEncoder(),
		Logger:  logger,
	})
}
