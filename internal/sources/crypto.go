package sources

import (
	"context"
	"net/url"
	"strconv"

	"datagen-backend/internal/model"
)

// CoinGecko 按市值排序的加密货币行情
type CoinGecko struct {
	client  *Client
	baseURL string
}

func NewCoinGecko(client *Client, baseURL string) *CoinGecko {
	return &CoinGecko{client: client, baseURL: baseURL}
}

func (a *CoinGecko) Name() string { return "CoinGecko API" }

type coinMarket struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	LastUpdated              string  `json:"last_updated"`
}

func (a *CoinGecko) Fetch(ctx context.Context, q Query) (*model.GenerationResult, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(q.Rows))
	query.Set("page", "1")
	query.Set("sparkline", "false")

	var coins []coinMarket
	if err := a.client.GetJSON(ctx, a.baseURL, "/api/v3/coins/markets", query, &coins); err != nil {
		return nil, sourceErr(a.Name(), err)
	}

	rows := make([]*model.Row, 0, len(coins))
	for _, c := range coins {
		rows = append(rows, model.RowFromPairs(
			"rank", c.MarketCapRank,
			"id", c.ID,
			"symbol", c.Symbol,
			"name", c.Name,
			"price_usd", c.CurrentPrice,
			"market_cap_usd", c.MarketCap,
			"volume_24h_usd", c.TotalVolume,
			"change_24h_pct", c.PriceChangePercentage24h,
			"last_updated", c.LastUpdated,
		))
	}
	return result(a.Name(), rows, q.Rows)
}
