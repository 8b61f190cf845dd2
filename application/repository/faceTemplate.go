package repository

import (
	"sync"

	"faceguard.io/entities"
	"faceguard.io/infrastructure/database/connection/datastore"
	"faceguard.io/infrastructure/database/repository/mongo"
)

var faceTemplateOnce = sync.Once{}

var faceTemplateRepository mongo.MongoRepository[entities.FaceTemplate]

func FaceTemplateRepo() *mongo.MongoRepository[entities.FaceTemplate] {
	faceTemplateOnce.Do(func() {
		faceTemplateRepository = mongo.MongoRepository[entities.FaceTemplate]{Model: datastore.FaceTemplateModel}
	})
	return &faceTemplateRepository
}
