// Package sources 把固定的公开数据 API 包装成统一的 Adapter，并把各自的 JSON 归一化为扁平的行
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"datagen-backend/internal/classifier"
	"datagen-backend/internal/config"
	"datagen-backend/internal/model"
)

// Query 数据源适配器的输入
type Query struct {
	Request  string
	Keywords []string
	Rows     int
}

// Adapter 包装一个外部数据 API
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, q Query) (*model.GenerationResult, error)
}

// SourceError 某个数据源调用失败
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

var (
	// ErrAllSourcesFailed 兜底链上的每个数据源都失败了
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrAllItemsFailed 逐项查询的数据源每一项都失败了
	ErrAllItemsFailed = errors.New("every item lookup failed")
	// ErrNoRows 数据源返回了空结果
	ErrNoRows = errors.New("source returned no rows")
)

func sourceErr(source string, err error) error {
	return &SourceError{Source: source, Err: err}
}

// 默认的 API 地址，可以在 sources.base_urls 中按 key 覆盖
var defaultBaseURLs = map[string]string{
	"coingecko":       "https://api.coingecko.com",
	"frankfurter":     "https://api.frankfurter.app",
	"open_meteo":      "https://api.open-meteo.com",
	"open_meteo_air":  "https://air-quality-api.open-meteo.com",
	"hn_algolia":      "https://hn.algolia.com",
	"thesportsdb":     "https://www.thesportsdb.com",
	"worldbank":       "https://api.worldbank.org",
	"who_gho":         "https://ghoapi.azureedge.net",
	"restcountries":   "https://restcountries.com",
	"hipolabs":        "http://universities.hipolabs.com",
	"opensky":         "https://opensky-network.org",
	"huggingface":     "https://huggingface.co",
	"jsonplaceholder": "https://jsonplaceholder.typicode.com",
	"randomuser":      "https://randomuser.me",
	"dummyjson":       "https://dummyjson.com",
}

// Registry 类别到适配器的分发表
type Registry struct {
	crypto         Adapter
	finance        Adapter
	weather        Adapter
	environment    Adapter
	news           Adapter
	sports         Adapter
	economics      Adapter
	government     Adapter
	health         Adapter
	demographics   Adapter
	education      Adapter
	transportation Adapter
	mlDatasets     Adapter
	computerVision Adapter
	nlpDatasets    Adapter
	general        Adapter
}

// NewRegistry 按配置构建全部适配器
func NewRegistry(cfg config.SourcesConfig) *Registry {
	client := NewClient(cfg)
	baseURL := func(key string) string {
		if u, ok := cfg.BaseURLs[key]; ok && u != "" {
			return u
		}
		return defaultBaseURLs[key]
	}

	return &Registry{
		crypto:         NewCoinGecko(client, baseURL("coingecko")),
		finance:        NewFrankfurter(client, baseURL("frankfurter")),
		weather:        NewOpenMeteoWeather(client, baseURL("open_meteo")),
		environment:    NewOpenMeteoAirQuality(client, baseURL("open_meteo_air")),
		news:           NewHackerNews(client, baseURL("hn_algolia")),
		sports:         NewTheSportsDB(client, baseURL("thesportsdb")),
		economics:      NewWorldBank(client, baseURL("worldbank"), WorldBankGDP),
		government:     NewWorldBank(client, baseURL("worldbank"), WorldBankGovExpense),
		health:         NewWHO(client, baseURL("who_gho")),
		demographics:   NewRESTCountries(client, baseURL("restcountries")),
		education:      NewUniversities(client, baseURL("hipolabs")),
		transportation: NewOpenSky(client, baseURL("opensky")),
		mlDatasets:     NewHuggingFaceDatasets(client, baseURL("huggingface"), ""),
		computerVision: NewHuggingFaceModels(client, baseURL("huggingface"), "image-classification"),
		nlpDatasets:    NewHuggingFaceDatasets(client, baseURL("huggingface"), "task_categories:text-classification"),
		general: NewFallbackChain(
			NewRandomUser(client, baseURL("randomuser")),
			NewDummyJSON(client, baseURL("dummyjson")),
			NewJSONPlaceholder(client, baseURL("jsonplaceholder")),
		),
	}
}

// For 返回类别对应的适配器。新增类别时必须在这里加一个分支，
// TestRegistryCoversAllCategories 会检查每个类别都能解析到适配器
func (r *Registry) For(c classifier.Category) Adapter {
	switch c {
	case classifier.Crypto:
		return r.crypto
	case classifier.Finance:
		return r.finance
	case classifier.Weather:
		return r.weather
	case classifier.Environment:
		return r.environment
	case classifier.News:
		return r.news
	case classifier.Sports:
		return r.sports
	case classifier.Economics:
		return r.economics
	case classifier.Government:
		return r.government
	case classifier.Health:
		return r.health
	case classifier.Demographics:
		return r.demographics
	case classifier.Education:
		return r.education
	case classifier.Transportation:
		return r.transportation
	case classifier.MLDatasets, classifier.AITraining:
		return r.mlDatasets
	case classifier.ComputerVision:
		return r.computerVision
	case classifier.NLPDatasets:
		return r.nlpDatasets
	default:
		return r.general
	}
}

// Labels 每个类别对应的数据源名称，供 /categories 展示
func (r *Registry) Labels() map[classifier.Category]string {
	out := make(map[classifier.Category]string, len(classifier.AllCategories))
	for _, c := range classifier.AllCategories {
		out[c] = r.For(c).Name()
	}
	return out
}

func truncate(rows []*model.Row, n int) []*model.Row {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// result 截断到请求行数并统一字段顺序；空结果视为失败
func result(source string, rows []*model.Row, n int) (*model.GenerationResult, error) {
	rows = truncate(rows, n)
	if len(rows) == 0 {
		return nil, sourceErr(source, ErrNoRows)
	}
	fields := model.FieldsOf(rows)
	return &model.GenerationResult{
		Data:   model.ConformAll(rows, fields),
		Fields: fields,
		Source: source,
	}, nil
}

func joinComma(items []string) string {
	return strings.Join(items, ",")
}
