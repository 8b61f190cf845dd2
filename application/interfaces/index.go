package interfaces

import (
	"github.com/gin-gonic/gin"
)

// ApplicationContext carries a parsed request body and request metadata into
// controllers, keeping them independent of the HTTP framework.
type ApplicationContext[T any] struct {
	Ctx      interface{}
	Body     *T
	DeviceID string
	Keys     map[string]any
}

func (appCtx *ApplicationContext[T]) GetHeader(key string) string {
	ginCtx, ok := (appCtx.Ctx).(*gin.Context)
	if !ok {
		return ""
	}
	return ginCtx.GetHeader(key)
}

func (appCtx *ApplicationContext[T]) GetParam(key string) string {
	ginCtx, ok := (appCtx.Ctx).(*gin.Context)
	if !ok {
		return ""
	}
	return ginCtx.Param(key)
}
