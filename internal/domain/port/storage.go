package port

import (
	"context"
	"io"
)

type StripStorage interface {
	DownloadStrip(ctx context.Context, objectKey string, destPath string) error
	UploadFrames(ctx context.Context, objectKey string, reader io.Reader, size int64) error
	UploadVideo(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
