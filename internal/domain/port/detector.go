package port

import "github.com/JackerKun/lomokino-processor/internal/film"

// BoundaryDetector segments a strip into candidate frame bands.
type BoundaryDetector interface {
	Detect(strip *film.Strip, cfg film.DetectionConfig) (film.BoundaryList, error)
}

// ContentCropper tightens a candidate band to its picture content.
type ContentCropper interface {
	Crop(strip *film.Strip, band film.FrameCandidate) (film.CropRect, error)
}
