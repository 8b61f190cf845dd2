package entities

import (
	"time"

	"faceguard.io/application/utils"
)

// FaceTemplate is one enrolled face for a user. FeatureVector holds the
// provider descriptor encrypted at rest; SourceImageRef points at the original
// enrollment image in blob storage.
type FaceTemplate struct {
	UserID         string           `bson:"userID" json:"userID"`
	FeatureVector  string           `bson:"featureVector" json:"-"`
	Quality        float64          `bson:"quality" json:"quality"`
	SourceImageRef string           `bson:"sourceImageRef" json:"sourceImageRef"`
	Metadata       TemplateMetadata `bson:"metadata" json:"metadata"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type TemplateMetadata struct {
	DetectionConfidence float64            `bson:"detectionConfidence" json:"detectionConfidence"`
	Landmarks           []TemplateLandmark `bson:"landmarks" json:"landmarks"`
}

type TemplateLandmark struct {
	Name string  `bson:"name" json:"name"`
	X    float64 `bson:"x" json:"x"`
	Y    float64 `bson:"y" json:"y"`
}

func (model FaceTemplate) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
