package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"datagen-backend/internal/model"
)

const maxTags = 5

var datasetStopWords = map[string]bool{
	"dataset": true, "datasets": true, "data": true, "machine": true, "learning": true,
	"training": true, "train": true, "model": true, "models": true, "hugging": true, "face": true,
	"huggingface": true, "popular": true, "list": true, "show": true, "find": true, "with": true,
}

type hfDataset struct {
	ID           string   `json:"id"`
	Author       string   `json:"author"`
	Downloads    int64    `json:"downloads"`
	Likes        int64    `json:"likes"`
	LastModified string   `json:"lastModified"`
	Tags         []string `json:"tags"`
}

type hfModel struct {
	ID          string   `json:"id"`
	Author      string   `json:"author"`
	PipelineTag string   `json:"pipeline_tag"`
	LibraryName string   `json:"library_name"`
	Downloads   int64    `json:"downloads"`
	Likes       int64    `json:"likes"`
	CreatedAt   string   `json:"createdAt"`
	Tags        []string `json:"tags"`
}

func hfQuery(rows int) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(rows))
	query.Set("sort", "downloads")
	query.Set("direction", "-1")
	query.Set("full", "false")
	return query
}

func joinTags(tags []string) string {
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return strings.Join(tags, "; ")
}

// HuggingFaceDatasets 按下载量排序的 Hugging Face 数据集；filter 非空时限定任务类别
type HuggingFaceDatasets struct {
	client  *Client
	baseURL string
	filter  string
}

func NewHuggingFaceDatasets(client *Client, baseURL string, filter string) *HuggingFaceDatasets {
	return &HuggingFaceDatasets{client: client, baseURL: baseURL, filter: filter}
}

func (a *HuggingFaceDatasets) Name() string {
	if a.filter != "" {
		return "Hugging Face Datasets API (text)"
	}
	return "Hugging Face Datasets API"
}

func (a *HuggingFaceDatasets) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := hfQuery(q.Rows)
	if a.filter != "" {
		query.Set("filter", a.filter)
	}
	if topic := topicOf(q.Keywords, datasetStopWords); topic != "" {
		query.Set("search", topic)
	}

	var datasets []hfDataset
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/datasets", query, &datasets); err != nil {
		return nil, sourceErr(a.Name(), err)
	}
	// 关键词太具体时去掉 search 再查一次
	if len(datasets) == 0 && query.Has("search") {
		query.Del("search")
		if err := a.client.GetJSON(ctx, a.baseURL, "/api/datasets", query, &datasets); err != nil {
			return nil, sourceErr(a.Name(), err)
		}
	}

	rows := make([]*model.Row, 0, len(datasets))
	for _, d := range datasets {
		rows = append(rows, model.RowFromPairs(
			"id", d.ID,
			"author", d.Author,
			"downloads", d.Downloads,
			"likes", d.Likes,
			"last_modified", d.LastModified,
			"tags", joinTags(d.Tags),
			"url", "https://huggingface.co/datasets/"+d.ID,
		))
	}
	return result(a.Name(), rows, q.Rows)
}

// HuggingFaceModels 某个 pipeline 下按下载量排序的模型
type HuggingFaceModels struct {
	client      *Client
	baseURL     string
	pipelineTag string
}

func NewHuggingFaceModels(client *Client, baseURL string, pipelineTag string) *HuggingFaceModels {
	return &HuggingFaceModels{client: client, baseURL: baseURL, pipelineTag: pipelineTag}
}

func (a *HuggingFaceModels) Name() string { return "Hugging Face Models API (image)" }

func (a *HuggingFaceModels) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := hfQuery(q.Rows)
	query.Set("pipeline_tag", a.pipelineTag)

	var models []hfModel
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/models", query, &models); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(models))
	for _, m := range models {
		author := m.Author
		if author == "" {
			if i := strings.Index(m.ID, "/"); i > 0 {
				author = m.ID[:i]
			}
		}
		rows = append(rows, model.RowFromPairs(
			"id", m.ID,
			"author", author,
			"pipeline_tag", m.PipelineTag,
			"library", m.LibraryName,
			"downloads", m.Downloads,
			"likes", m.Likes,
			"created_at", m.CreatedAt,
			"url", "https://huggingface.co/"+m.ID,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
