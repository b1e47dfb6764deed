package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"datagen-backend/internal/model"

	"github.com/spf13/cast"
)

// HackerNews 通过 Algolia 搜索接口检索 Hacker News 报道
type HackerNews struct {
	client  *Client
	baseURL string
}

func NewHackerNews(client *Client, baseURL string) *HackerNews {
	return &HackerNews{client: client, baseURL: baseURL}
}

func (a *HackerNews) Name() string { return "Hacker News (Algolia) API" }

// 这些词描述的是请求本身而不是检索主题
var newsStopWords = map[string]bool{
	"news": true, "latest": true, "headlines": true, "headline": true, "articles": true,
	"article": true, "stories": true, "story": true, "recent": true, "today": true, "about": true,
	"breaking": true, "top": true, "show": true, "list": true, "data": true,
}

type hnSearch struct {
	Hits []struct {
		ObjectID    string      `json:"objectID"`
		Title       string      `json:"title"`
		URL         string      `json:"url"`
		Author      string      `json:"author"`
		Points      interface{} `json:"points"`
		NumComments interface{} `json:"num_comments"`
		CreatedAt   string      `json:"created_at"`
	} `json:"hits"`
}

func (a *HackerNews) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{}
	query.Set("hitsPerPage", strconv.Itoa(q.Rows))
	if topic := topicOf(q.Keywords, newsStopWords); topic != "" {
		query.Set("query", topic)
		query.Set("tags", "story")
	} else {
		query.Set("tags", "front_page")
	}

	var resp hnSearch
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/v1/search", query, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		link := h.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + h.ObjectID
		}
		rows = append(rows, model.RowFromPairs(
			"id", h.ObjectID,
			"title", h.Title,
			"author", h.Author,
			"points", cast.ToInt(h.Points),
			"comments", cast.ToInt(h.NumComments),
			"url", link,
			"published_at", h.CreatedAt,
		))
	}
	return result(a.Name(), rows, q.Rows)
}

// topicOf 去掉停用词后把剩余关键词拼成检索词
func topicOf(keywords []string, stop map[string]bool) string {
	var kept []string
	for _, k := range keywords {
		if !stop[strings.ToLower(k)] {
			kept = append(kept, k)
		}
	}
	return strings.Join(kept, " ")
}
