package sources

import (
	"context"
	"net/url"
	"sort"

	"datagen-backend/internal/model"
)

// Frankfurter 以美元为基准的最新汇率
type Frankfurter struct {
	client  *Client
	baseURL string
}

func NewFrankfurter(client *Client, baseURL string) *Frankfurter {
	return &Frankfurter{client: client, baseURL: baseURL}
}

func (a *Frankfurter) Name() string { return "Frankfurter Exchange Rates API" }

type frankfurterRates struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

func (a *Frankfurter) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	var resp frankfurterRates
	if err := a.client.GetJSON(ctx, a.baseURL, "/latest", url.Values{"from": {"USD"}}, &resp); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	// map 无序，按货币代码排序保证输出稳定
	currencies := make([]string, 0, len(resp.Rates))
	for code := range resp.Rates {
		currencies = append(currencies, code)
	}
	sort.Strings(currencies)

	rows := make([]*model.Row, 0, len(currencies))
	for _, code := range currencies {
		rate := resp.Rates[code]
		inverse := 0.0
		if rate != 0 {
			inverse = 1 / rate
		}
		rows = append(rows, model.RowFromPairs(
			"base_currency", resp.Base,
			"currency", code,
			"rate", rate,
			"inverse_rate", inverse,
			"date", resp.Date,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
