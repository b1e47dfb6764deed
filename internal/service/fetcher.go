package service

import (
	"context"
	"errors"
	"fmt"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/classifier"
	"datagen-backend/internal/model"
	"datagen-backend/internal/sources"
	"datagen-backend/pkg/logger"
)

// IntentClassifier 真实数据路径使用的分类器
type IntentClassifier interface {
	Classify(ctx context.Context, prompt string) classifier.Intent
}

// AdapterRegistry 按类别查找数据源适配器
type AdapterRegistry interface {
	For(c classifier.Category) sources.Adapter
}

// RealDataFetcher 分类请求后分发给对应的公开数据源
type RealDataFetcher struct {
	classifier IntentClassifier
	registry   AdapterRegistry
}

func NewRealDataFetcher(c IntentClassifier, r AdapterRegistry) *RealDataFetcher {
	return &RealDataFetcher{classifier: c, registry: r}
}

func (f *RealDataFetcher) FetchRealData(ctx context.Context, prompt string, rows int) (*model.GenerationResult, error) {
	intent := f.classifier.Classify(ctx, prompt)
	adapter := f.registry.For(intent.Category)

	log := logger.WithFields(map[string]interface{}{
		"category": intent.Category,
		"source":   adapter.Name(),
		"rows":     rows,
	})
	log.Infof("fetching real data")

	res, err := adapter.Fetch(ctx, sources.Query{
		Request:  intent.SpecificRequest,
		Keywords: intent.Keywords,
		Rows:     rows,
	})
	if err != nil {
		log.Warnf("real data fetch failed: %v", err)
		return nil, wrapSourceError(ctx, adapter.Name(), err)
	}
	log.Infof("fetched %d rows", len(res.Data))
	return res, nil
}

func wrapSourceError(ctx context.Context, source string, err error) error {
	switch {
	case ctx.Err() != nil:
		return apperr.Timeout("Request timeout", err)
	case errors.Is(err, sources.ErrAllSourcesFailed):
		return apperr.SourceFetch("all sources failed", err)
	case apperr.IsTimeout(err):
		return apperr.Timeout("External data source timeout", err)
	default:
		return apperr.SourceFetch(fmt.Sprintf("%s request failed", source), err)
	}
}
