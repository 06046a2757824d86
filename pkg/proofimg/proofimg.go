// Package proofimg normalizes uploaded payment-proof images before they
// are stored: oversized photos are downscaled and re-encoded so the upload
// dir does not fill with multi-megabyte camera originals.
package proofimg

import (
	"bytes"
	"strings"

	"github.com/disintegration/imaging"
)

// maxEdge is the longest allowed edge of a stored proof image.
const maxEdge = 1600

const jpegQuality = 85

// IsImage reports whether the declared content type is an image we can decode.
func IsImage(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return true
	}
	return false
}

// Normalize decodes data, corrects EXIF orientation, downscales anything
// larger than maxEdge and re-encodes as JPEG. Payloads that are not images,
// or fail to decode, are returned unchanged so the caller can still store
// the original bytes.
func Normalize(data []byte, contentType string) ([]byte, string) {
	if !IsImage(contentType) {
		return data, contentType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, contentType
	}

	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge && strings.EqualFold(contentType, "image/jpeg") {
		return data, contentType
	}

	resized := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return data, contentType
	}
	return buf.Bytes(), "image/jpeg"
}
