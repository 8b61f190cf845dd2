package dto

import (
	"fmt"

	"faceguard.io/application/utils"
)

// FaceAuthenticationRequest authenticates a user against their enrolled
// templates. Image and LivenessFrames are base64 encoded.
type FaceAuthenticationRequest struct {
	UserID         string   `json:"user_id" validate:"required"`
	Image          string   `json:"image" validate:"required,base64_image"`
	Format         string   `json:"format" validate:"required,image_format"`
	LivenessFrames []string `json:"liveness_frames" validate:"omitempty,dive,base64_image"`
	EnableLiveness *bool    `json:"enable_liveness"`
}

type FaceEnrollmentRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Image  string `json:"image" validate:"required,base64_image"`
	Format string `json:"format" validate:"required,image_format"`
}

type TemplateUpdateRequest struct {
	Image  string `json:"image" validate:"required,base64_image"`
	Format string `json:"format" validate:"required,image_format"`
}

type FaceComparisonRequest struct {
	Image1 string `json:"image_1" validate:"required,base64_image"`
	Image2 string `json:"image_2" validate:"required,base64_image"`
	Format string `json:"format" validate:"required,image_format"`
}

type LivenessCheckRequest struct {
	Frames []string `json:"frames" validate:"required,min=1,max=30,dive,base64_image"`
}

type FaceSearchRequest struct {
	Image  string `json:"image" validate:"required,base64_image"`
	Format string `json:"format" validate:"required,image_format"`
	Limit  int    `json:"limit" validate:"required,min=1,max=50"`
}

// DecodeFrames decodes a base64 frame list into raw frame payloads.
func DecodeFrames(frames []string) ([][]byte, error) {
	decoded := make([][]byte, 0, len(frames))
	for i, frame := range frames {
		payload, err := utils.DecodeBase64Image(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d is not valid base64", i)
		}
		decoded = append(decoded, payload)
	}
	return decoded, nil
}
