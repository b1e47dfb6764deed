package handler

import (
	"fmt"
	"net/http"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/format"
	"datagen-backend/internal/model"

	"github.com/gin-gonic/gin"
)

type DownloadHandler struct{}

func NewDownloadHandler() *DownloadHandler {
	return &DownloadHandler{}
}

// Download 把客户端回传的数据序列化为文件，format 缺省为 csv
func (h *DownloadHandler) Download(c *gin.Context) {
	var req model.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.MalformedRequest(err))
		return
	}
	if req.Format == "" {
		req.Format = string(format.CSV)
	}

	file, err := format.Render(req.Data, req.Format, req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
