package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"datagen-backend/internal/model"
)

// WorldBankIndicator World Bank 指标代码
type WorldBankIndicator string

const (
	WorldBankGDP        WorldBankIndicator = "NY.GDP.MKTP.CD"
	WorldBankGovExpense WorldBankIndicator = "GC.XPN.TOTL.GD.ZS"
)

// 单次请求的页大小；很多国家最近年份没有数据，取多一些再过滤
const worldBankPageSize = 300

// WorldBank 按国家列出某个指标的最新值
type WorldBank struct {
	client    *Client
	baseURL   string
	indicator WorldBankIndicator
}

func NewWorldBank(client *Client, baseURL string, indicator WorldBankIndicator) *WorldBank {
	return &WorldBank{client: client, baseURL: baseURL, indicator: indicator}
}

func (a *WorldBank) Name() string {
	switch a.indicator {
	case WorldBankGDP:
		return "World Bank API (GDP)"
	case WorldBankGovExpense:
		return "World Bank API (Government Expense)"
	default:
		return "World Bank API"
	}
}

type worldBankEntry struct {
	Indicator struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"indicator"`
	Country struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"country"`
	CountryISO3 string   `json:"countryiso3code"`
	Date        string   `json:"date"`
	Value       *float64 `json:"value"`
}

func (a *WorldBank) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("per_page", fmt.Sprint(worldBankPageSize))
	query.Set("mrnev", "1")

	// 响应是 [分页信息, 数据数组]；出错时只有第一项
	var payload []json.RawMessage
	path := fmt.Sprintf("/v2/country/all/indicator/%s", a.indicator)
	if err := a.client.GetJSON(ctx, a.baseURL, path, query, &payload); err != nil {
		return nil, sourceErr(a.Name(), err)
	}
	if len(payload) < 2 {
		return nil, sourceErr(a.Name(), fmt.Errorf("unexpected response shape: %d elements", len(payload)))
	}
	var entries []worldBankEntry
	if err := json.Unmarshal(payload[1], &entries); err != nil {
		return nil, sourceErr(a.Name(), fmt.Errorf("decode entries: %w", err))
	}

	rows := make([]*model.Row, 0, q.Rows)
	for _, e := range entries {
		// 聚合区域（如 "World"、"High income"）没有 ISO3 代码
		if e.Value == nil || e.CountryISO3 == "" {
			continue
		}
		rows = append(rows, model.RowFromPairs(
			"country", e.Country.Value,
			"country_code", e.CountryISO3,
			"indicator", e.Indicator.Value,
			"indicator_code", e.Indicator.ID,
			"year", e.Date,
			"value", *e.Value,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
