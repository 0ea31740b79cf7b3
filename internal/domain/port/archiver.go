package port

import "context"

// Archiver bundles the extracted frame files for delivery.
type Archiver interface {
	CreateZip(ctx context.Context, filePaths []string, outputPath string) error
}
