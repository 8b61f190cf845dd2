package faceauth

import (
	"fmt"
	"strings"
)

// ImageValidator screens raw image payloads before any provider call is made.
type ImageValidator struct {
	MaxImageSize   int
	AllowedFormats []string
}

func NewImageValidator(config FaceAuthConfig) *ImageValidator {
	return &ImageValidator{
		MaxImageSize:   config.MaxImageSize,
		AllowedFormats: config.AllowedFormats,
	}
}

// Validate checks size and declared format. Format matching is case
// insensitive so "JPEG" and "jpeg" are equivalent.
func (validator *ImageValidator) Validate(image []byte, format string) error {
	if len(image) == 0 {
		return &ValidationError{Reason: "image payload is empty"}
	}
	if len(image) > validator.MaxImageSize {
		return &ValidationError{
			Reason: fmt.Sprintf("image size %d exceeds the maximum of %d bytes", len(image), validator.MaxImageSize),
		}
	}
	normalised := strings.ToLower(strings.TrimSpace(format))
	for _, allowed := range validator.AllowedFormats {
		if strings.ToLower(allowed) == normalised {
			return nil
		}
	}
	return &ValidationError{
		Reason: fmt.Sprintf("image format %q is not supported, expected one of %s", format, strings.Join(validator.AllowedFormats, ", ")),
	}
}
