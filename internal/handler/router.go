package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avelkin/linkvault/internal/middleware"
)

type RouterDeps struct {
	Imports     *ImportHandler
	JWTSecret   []byte
	StartWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/imports", middleware.RateLimit(deps.StartWindow), deps.Imports.Start)
	authGroup.GET("/imports", deps.Imports.List)
	authGroup.GET("/imports/:id", deps.Imports.Status)
}
