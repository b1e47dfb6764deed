package handler

import (
	"net/http"
	"time"

	"datagen-backend/internal/classifier"

	"github.com/gin-gonic/gin"
)

// MetaHandler 健康检查和类别列表
type MetaHandler struct {
	aiConfigured bool
	labels       map[classifier.Category]string
}

func NewMetaHandler(aiConfigured bool, labels map[classifier.Category]string) *MetaHandler {
	return &MetaHandler{aiConfigured: aiConfigured, labels: labels}
}

func (h *MetaHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"timestamp":    time.Now().Unix(),
		"aiConfigured": h.aiConfigured,
	})
}

type categoryInfo struct {
	Category classifier.Category `json:"category"`
	Source   string              `json:"source"`
}

func (h *MetaHandler) Categories(c *gin.Context) {
	out := make([]categoryInfo, 0, len(classifier.AllCategories))
	for _, cat := range classifier.AllCategories {
		out = append(out, categoryInfo{Category: cat, Source: h.labels[cat]})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}
