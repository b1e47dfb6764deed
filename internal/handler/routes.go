package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes 接口同时挂在根路径和 /api 下
func RegisterRoutes(router *gin.Engine, gen *GenerateHandler, dl *DownloadHandler, meta *MetaHandler) {
	router.GET("/health", meta.Health)

	for _, g := range []*gin.RouterGroup{router.Group(""), router.Group("/api")} {
		g.POST("/generate", gen.Generate)
		g.POST("/download", dl.Download)
		g.GET("/categories", meta.Categories)
	}
}
