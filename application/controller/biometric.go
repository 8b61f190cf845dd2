package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "faceguard.io/application/appErrors"
	"faceguard.io/application/constants"
	"faceguard.io/application/controller/dto"
	"faceguard.io/application/faceauth"
	"faceguard.io/application/interfaces"
	"faceguard.io/application/utils"
	biometric_types "faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/database/connection/datastore"
	server_response "faceguard.io/infrastructure/serverResponse"
	"faceguard.io/infrastructure/validator"
	"github.com/gin-gonic/gin"
)

func requestContext(ctx interface{}) context.Context {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.Request.Context()
	}
	return context.Background()
}

var orchestrator *faceauth.AuthenticationOrchestrator

// Initialize wires the controllers to a configured orchestrator. Called once
// during startup before any route is served.
func Initialize(configured *faceauth.AuthenticationOrchestrator) {
	orchestrator = configured
}

// AuthenticateUser runs the full authentication pipeline for a user.
func AuthenticateUser(ctx *interfaces.ApplicationContext[dto.FaceAuthenticationRequest]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	image, err := utils.DecodeBase64Image(ctx.Body.Image)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}
	frames, err := dto.DecodeFrames(ctx.Body.LivenessFrames)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, err.Error(), nil, nil)
		return
	}

	result, err := orchestrator.AuthenticateUser(requestContext(ctx.Ctx), ctx.Body.UserID, image, faceauth.AuthenticateOptions{
		Format:         ctx.Body.Format,
		LivenessFrames: frames,
		EnableLiveness: ctx.Body.EnableLiveness,
	})
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	if !result.Success {
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "authentication failed", result, nil, authFailureCode(result))
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "authentication successful", result, nil, nil)
}

// EnrollFace registers a new face template for a user.
func EnrollFace(ctx *interfaces.ApplicationContext[dto.FaceEnrollmentRequest]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	image, err := utils.DecodeBase64Image(ctx.Body.Image)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}
	template, err := orchestrator.RegisterFaceTemplate(requestContext(ctx.Ctx), ctx.Body.UserID, image, ctx.Body.Format)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, "face enrolled", template, nil, &constants.TEMPLATE_ENROLLED)
}

// UpdateFaceTemplate re-enrolls an existing template from a fresh image.
func UpdateFaceTemplate(ctx *interfaces.ApplicationContext[dto.TemplateUpdateRequest]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	templateID := ctx.GetParam("templateID")
	image, err := utils.DecodeBase64Image(ctx.Body.Image)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}
	template, err := orchestrator.UpdateFaceTemplate(requestContext(ctx.Ctx), templateID, image, ctx.Body.Format)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face template updated", template, nil, nil)
}

// DeleteFaceTemplate removes an enrolled template and its stored image.
func DeleteFaceTemplate(ctx *interfaces.ApplicationContext[any]) {
	templateID := ctx.GetParam("templateID")
	deleted, err := orchestrator.DeleteFaceTemplate(requestContext(ctx.Ctx), templateID)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face template deleted", map[string]any{"deleted": deleted}, nil, nil)
}

// GetUserTemplates lists a user's enrolled templates, newest first.
func GetUserTemplates(ctx *interfaces.ApplicationContext[any]) {
	userID := ctx.GetParam("userID")
	templates, err := orchestrator.Store.FindByUser(requestContext(ctx.Ctx), userID)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face templates fetched", templates, nil, nil)
}

// CompareFaces compares two face images and returns the similarity verdict.
func CompareFaces(ctx *interfaces.ApplicationContext[dto.FaceComparisonRequest]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	imageA, err := utils.DecodeBase64Image(ctx.Body.Image1)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}
	imageB, err := utils.DecodeBase64Image(ctx.Body.Image2)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}
	result, err := orchestrator.CompareFaces(requestContext(ctx.Ctx), imageA, imageB, ctx.Body.Format)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face comparison completed", result, nil, nil)
}

// LivenessCheck performs a one-shot liveness check over a burst of frames.
func LivenessCheck(ctx *interfaces.ApplicationContext[dto.LivenessCheckRequest]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	frames, err := dto.DecodeFrames(ctx.Body.Frames)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, err.Error(), nil, nil)
		return
	}
	result, err := orchestrator.Verifier.VerifySingle(requestContext(ctx.Ctx), frames)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	var responseCode *uint
	if !result.IsLive {
		responseCode = &constants.LIVENESS_CHECK_FAILED
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "liveness check completed", result, nil, responseCode)
}

// GenerateChallenge issues a one-time liveness challenge.
func GenerateChallenge(ctx *interfaces.ApplicationContext[any]) {
	challenge, err := orchestrator.Verifier.GenerateChallenge(2 * time.Minute)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "challenge generated", challenge, nil, nil)
}

// SearchFaces finds the stored templates most similar to a probe image.
func SearchFaces(ctx *interfaces.ApplicationContext[dto.FaceSearchRequest]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	image, err := utils.DecodeBase64Image(ctx.Body.Image)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid image format", nil, nil)
		return
	}
	matches, err := orchestrator.SearchSimilarFaces(requestContext(ctx.Ctx), image, ctx.Body.Format, ctx.Body.Limit)
	if err != nil {
		respondWithPipelineError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "similar faces fetched", matches, nil, nil)
}

// SystemHealth reports the reachability of the biometric provider and the
// backing stores.
func SystemHealth(ctx *interfaces.ApplicationContext[any]) {
	checkCtx, cancel := context.WithTimeout(requestContext(ctx.Ctx), 5*time.Second)
	defer cancel()

	health := map[string]string{
		"database": "up",
		"provider": "unknown",
	}
	if err := datastore.Ping(checkCtx); err != nil {
		health["database"] = "down"
	}
	if checker, ok := orchestrator.Provider.(biometric_types.HealthChecker); ok {
		health["provider"] = "up"
		if err := checker.Healthy(checkCtx); err != nil {
			health["provider"] = "down"
		}
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "system health fetched", health, nil, nil)
}

func authFailureCode(result *faceauth.AuthenticationResult) *uint {
	if result.Reason == nil {
		return nil
	}
	switch *result.Reason {
	case faceauth.ReasonNoEnrolledTemplates:
		return &constants.NO_ENROLLED_TEMPLATES
	case faceauth.ReasonLivenessFailed:
		return &constants.LIVENESS_CHECK_FAILED
	}
	return &constants.AUTHENTICATION_FAILED
}

func respondWithPipelineError(ctx interface{}, err error) {
	var validationErr *faceauth.ValidationError
	if errors.As(err, &validationErr) {
		apperrors.ClientError(ctx, validationErr.Reason, nil, nil)
		return
	}
	var qualityErr *faceauth.QualityError
	if errors.As(err, &qualityErr) {
		apperrors.ClientError(ctx, qualityErr.Error(), nil, nil)
		return
	}
	var livenessErr *faceauth.LivenessFailureError
	if errors.As(err, &livenessErr) {
		apperrors.ClientError(ctx, livenessErr.Error(), nil, &constants.LIVENESS_CHECK_FAILED)
		return
	}
	var notFoundErr *faceauth.TemplateNotFoundError
	if errors.As(err, &notFoundErr) {
		apperrors.NotFoundError(ctx, notFoundErr.Error())
		return
	}
	var providerErr *biometric_types.ProviderError
	if errors.As(err, &providerErr) {
		apperrors.ExternalDependencyError(ctx, providerErr.Provider, strconv.Itoa(http.StatusServiceUnavailable), providerErr, &constants.PROVIDER_UNAVAILABLE)
		return
	}
	var storageErr *faceauth.StorageError
	if errors.As(err, &storageErr) {
		apperrors.FatalServerError(ctx, storageErr)
		return
	}
	apperrors.UnknownError(ctx, err, nil)
}
