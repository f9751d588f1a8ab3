package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Health    *HealthHandler
	Templates *TemplateHandler
	Policies  *PolicyHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)
	api.GET("/template-types", deps.Templates.Types)
	api.POST("/templates/generate", deps.Templates.Generate)
	api.POST("/templates/generate-and-save", deps.Templates.GenerateAndSave)
	api.POST("/policies/search", deps.Policies.Search)
}
