package port

import (
	"context"
	"io"
)

// VideoStorage moves job inputs and outputs in and out of object storage.
type VideoStorage interface {
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	UploadZip(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}

// Zipper bundles frame files into one archive and returns its size in bytes.
type Zipper interface {
	CreateZip(ctx context.Context, filePaths []string, outputPath string) (int64, error)
}
