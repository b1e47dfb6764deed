package handler

import (
	"net/http"
	"strings"
	"time"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/model"
	"datagen-backend/internal/service"
	"datagen-backend/internal/utils"
	"datagen-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderResponseMode = "X-Response-Mode"
	responseModeStream = "stream"

	defaultHeartbeat = 15 * time.Second
)

type GenerateHandler struct {
	svc       *service.DataService
	heartbeat time.Duration
}

func NewGenerateHandler(svc *service.DataService, heartbeat time.Duration) *GenerateHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &GenerateHandler{svc: svc, heartbeat: heartbeat}
}

// wantsStream X-Response-Mode: stream 或 Accept: text/stream-json 时返回逐行 JSON 流
func wantsStream(r *http.Request) bool {
	if strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderResponseMode)), responseModeStream) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), utils.ContentTypeStreamJSON)
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	var body model.GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperr.MalformedRequest(err))
		return
	}

	req, err := h.svc.Validate(body)
	if err != nil {
		respondError(c, err)
		return
	}

	if wantsStream(c.Request) {
		h.stream(c, req)
		return
	}

	plan := h.svc.Plan(req)
	res, err := h.svc.Generate(c.Request.Context(), req, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.Response(res, plan.Mock))
}

type outcome struct {
	res *model.GenerationResult
	err error
}

// stream 生成在后台 goroutine 中运行，这里是唯一的写者：进度、心跳和最终结果都从同一个循环写出
func (h *GenerateHandler) stream(c *gin.Context, req model.GenerationRequest) {
	requestID := uuid.New().String()
	plan := h.svc.Plan(req)
	log := logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"mock":       plan.Mock,
		"rows":       req.Rows,
	})

	writer := utils.NewStreamWriter(c.Writer)
	c.Status(http.StatusOK)

	send := func(ev model.StreamEvent) bool {
		ev.RequestID = requestID
		ev.Timestamp = time.Now().Unix()
		if err := writer.Write(ev); err != nil {
			log.Warnf("stream write failed: %v", err)
			return false
		}
		return true
	}

	mode := model.DataTypeReal
	if plan.Mock {
		mode = model.DataTypeMock
	}
	if !send(model.StreamEvent{Type: model.EventStarted, Message: mode, TotalBatches: plan.TotalBatches}) {
		return
	}

	progress := make(chan model.BatchProgress, plan.TotalBatches+1)
	done := make(chan outcome, 1)
	go func() {
		res, err := h.svc.Generate(c.Request.Context(), req, func(p model.BatchProgress) {
			select {
			case progress <- p:
			default:
			}
		})
		done <- outcome{res: res, err: err}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	batchEvent := func(p model.BatchProgress) model.StreamEvent {
		return model.StreamEvent{Type: model.EventBatch, Batch: p.Batch, TotalBatches: p.TotalBatches, RowsSoFar: p.RowsSoFar}
	}

	for {
		select {
		case p := <-progress:
			if !send(batchEvent(p)) {
				return
			}

		case out := <-done:
			// 结果到达前发出的进度都已经在缓冲区里
			for drained := false; !drained; {
				select {
				case p := <-progress:
					send(batchEvent(p))
				default:
					drained = true
				}
			}

			if out.err != nil {
				ae := apperr.From(out.err)
				log.Warnf("streaming generation failed: %v", ae)
				send(model.StreamEvent{Type: model.EventError, Message: ae.Label, Error: errorResponse(ae)})
				return
			}

			resp := service.Response(out.res, plan.Mock)
			if !send(model.StreamEvent{Type: model.EventData, Result: resp, RowsSoFar: resp.RowCount}) {
				return
			}
			send(model.StreamEvent{Type: model.EventCompleted, Message: resp.Source, RowsSoFar: resp.RowCount})
			log.Infof("streaming generation completed with %d rows", resp.RowCount)
			return

		case <-ticker.C:
			if !send(model.StreamEvent{Type: model.EventHeartbeat}) {
				return
			}
		}
	}
}
