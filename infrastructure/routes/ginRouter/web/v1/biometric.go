package routev1

import (
	apperrors "faceguard.io/application/appErrors"
	"faceguard.io/application/controller"
	"faceguard.io/application/controller/dto"
	"faceguard.io/application/interfaces"
	"github.com/gin-gonic/gin"
)

func BiometricRouter(router *gin.RouterGroup) {
	biometricRouter := router.Group("/biometric")
	{
		biometricRouter.POST("/authenticate", func(ctx *gin.Context) {
			var body dto.FaceAuthenticationRequest
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.AuthenticateUser(&interfaces.ApplicationContext[dto.FaceAuthenticationRequest]{
				Ctx:      ctx,
				Body:     &body,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		biometricRouter.POST("/compare-faces", func(ctx *gin.Context) {
			var body dto.FaceComparisonRequest
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.CompareFaces(&interfaces.ApplicationContext[dto.FaceComparisonRequest]{
				Ctx:      ctx,
				Body:     &body,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		biometricRouter.POST("/liveness-check", func(ctx *gin.Context) {
			var body dto.LivenessCheckRequest
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.LivenessCheck(&interfaces.ApplicationContext[dto.LivenessCheckRequest]{
				Ctx:      ctx,
				Body:     &body,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		biometricRouter.GET("/system-health", func(ctx *gin.Context) {
			controller.SystemHealth(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		biometricRouter.GET("/generate-challenge", func(ctx *gin.Context) {
			controller.GenerateChallenge(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		biometricRouter.POST("/search", func(ctx *gin.Context) {
			var body dto.FaceSearchRequest
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.SearchFaces(&interfaces.ApplicationContext[dto.FaceSearchRequest]{
				Ctx:      ctx,
				Body:     &body,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})
	}

	templateRouter := router.Group("/templates")
	{
		templateRouter.POST("/", func(ctx *gin.Context) {
			var body dto.FaceEnrollmentRequest
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.EnrollFace(&interfaces.ApplicationContext[dto.FaceEnrollmentRequest]{
				Ctx:      ctx,
				Body:     &body,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		templateRouter.PUT("/:templateID", func(ctx *gin.Context) {
			var body dto.TemplateUpdateRequest
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.UpdateFaceTemplate(&interfaces.ApplicationContext[dto.TemplateUpdateRequest]{
				Ctx:      ctx,
				Body:     &body,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		templateRouter.DELETE("/:templateID", func(ctx *gin.Context) {
			controller.DeleteFaceTemplate(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})

		templateRouter.GET("/user/:userID", func(ctx *gin.Context) {
			controller.GetUserTemplates(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: ctx.GetHeader("X-Device-Id"),
			})
		})
	}
}
