package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/classifier"
	"datagen-backend/internal/config"
	"datagen-backend/internal/model"
	"datagen-backend/internal/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMock struct {
	called bool
	res    *model.GenerationResult
	err    error
}

func (s *stubMock) GenerateMockData(ctx context.Context, prompt string, rows int, onBatch func(model.BatchProgress)) (*model.GenerationResult, error) {
	s.called = true
	return s.res, s.err
}

type stubFetcher struct {
	called bool
	block  bool
	res    *model.GenerationResult
}

func (s *stubFetcher) FetchRealData(ctx context.Context, prompt string, rows int) (*model.GenerationResult, error) {
	s.called = true
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.res, nil
}

func rowsJSON(v string) json.RawMessage {
	if v == "" {
		return nil
	}
	return json.RawMessage(v)
}

func TestValidateRows(t *testing.T) {
	s := NewDataService(testGenConfig(), nil, nil)
	cases := []struct {
		rows string
		want int
	}{
		{"", 10},
		{"null", 10},
		{"5", 5},
		{"0", 1},
		{"-3", 1},
		{"10000", 100},
		{`"12"`, 12},
		{`" 7 "`, 7},
		{`"8.9"`, 8},
		{"3.7", 3},
		{"1e20", 100},
		{`"1e20"`, 100},
		{"9.3e18", 100},
		{"-1e20", 1},
	}
	for _, tc := range cases {
		req, err := s.Validate(model.GenerateRequest{Prompt: "x", Rows: rowsJSON(tc.rows)})
		require.NoError(t, err, tc.rows)
		assert.Equal(t, tc.want, req.Rows, tc.rows)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	s := NewDataService(testGenConfig(), nil, nil)
	for _, req := range []model.GenerateRequest{
		{Prompt: "   "},
		{Prompt: "x", Rows: rowsJSON(`"abc"`)},
		{Prompt: "x", Rows: rowsJSON(`true`)},
		{Prompt: "x", Rows: rowsJSON(`[1]`)},
		{Prompt: "x", Rows: rowsJSON(`"NaN"`)},
	} {
		_, err := s.Validate(req)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae, string(req.Rows))
		assert.Equal(t, apperr.KindValidation, ae.Kind)
		assert.Equal(t, 400, ae.Status())
	}
}

func TestValidateNormalizesDataType(t *testing.T) {
	s := NewDataService(testGenConfig(), nil, nil)
	req, err := s.Validate(model.GenerateRequest{DataType: " MOCK ", Prompt: "  people  "})
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeMock, req.DataType)
	assert.Equal(t, "people", req.Prompt)

	req, err = s.Validate(model.GenerateRequest{DataType: "whatever", Prompt: "people"})
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeReal, req.DataType)
}

func TestPlanAutoDetectsTrainingData(t *testing.T) {
	s := NewDataService(testGenConfig(), nil, nil)

	p := s.Plan(model.GenerationRequest{DataType: model.DataTypeReal, Prompt: "data to fine-tune a support bot", Rows: 20})
	assert.True(t, p.Mock)
	assert.True(t, p.AutoDetected)
	assert.Equal(t, 2, p.TotalBatches)
	assert.Equal(t, 7*time.Second, p.Timeout)

	p = s.Plan(model.GenerationRequest{DataType: model.DataTypeReal, Prompt: "bitcoin prices", Rows: 5})
	assert.False(t, p.Mock)
	assert.Equal(t, 1, p.TotalBatches)
}

func TestGenerateRoutesFineTuneToMock(t *testing.T) {
	mock := &stubMock{res: &model.GenerationResult{Data: []*model.Row{model.RowFromPairs("instruction", "hi")}, Source: MockSource}}
	fetcher := &stubFetcher{}
	s := NewDataService(testGenConfig(), mock, fetcher)

	res, err := s.Generate(context.Background(), model.GenerationRequest{DataType: model.DataTypeReal, Prompt: "fine-tune dataset", Rows: 1}, nil)
	require.NoError(t, err)
	assert.True(t, mock.called)
	assert.False(t, fetcher.called)
	assert.Equal(t, MockSource, res.Source)
}

func TestGenerateWithoutCredentialIsConfigurationError(t *testing.T) {
	s := NewDataService(testGenConfig(), NewMockDataGenerator(nil, testGenConfig()), &stubFetcher{})

	req, err := s.Validate(model.GenerateRequest{DataType: "mock", Prompt: "generate customer data with name and email", Rows: rowsJSON("3")})
	require.NoError(t, err)
	_, err = s.Generate(context.Background(), req, nil)

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindConfiguration, ae.Kind)
	assert.Equal(t, 500, ae.Status())
}

func TestGenerateRequestTimeout(t *testing.T) {
	cfg := testGenConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	cfg.PerBatchTimeout = 0
	s := NewDataService(cfg, nil, &stubFetcher{block: true})

	_, err := s.Generate(context.Background(), model.GenerationRequest{DataType: model.DataTypeReal, Prompt: "bitcoin", Rows: 5}, nil)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindTimeout, ae.Kind)
	assert.Equal(t, "Request timeout", ae.Label)
}

func TestGenerateReportsRealProgress(t *testing.T) {
	fetcher := &stubFetcher{res: &model.GenerationResult{Data: []*model.Row{model.RowFromPairs("a", 1)}, Source: "X"}}
	s := NewDataService(testGenConfig(), nil, fetcher)

	var got []model.BatchProgress
	_, err := s.Generate(context.Background(), model.GenerationRequest{DataType: model.DataTypeReal, Prompt: "weather", Rows: 1}, func(p model.BatchProgress) {
		got = append(got, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []model.BatchProgress{{Batch: 1, TotalBatches: 1, RowsSoFar: 1}}, got)
}

func TestResponseOmitsFieldsForRealData(t *testing.T) {
	res := &model.GenerationResult{Data: []*model.Row{model.RowFromPairs("a", 1)}, Fields: model.FieldSet{"a"}, Source: "X"}
	assert.Nil(t, Response(res, false).Fields)
	resp := Response(res, true)
	assert.Equal(t, model.FieldSet{"a"}, resp.Fields)
	assert.Equal(t, 1, resp.RowCount)
	assert.True(t, resp.Success)
}

func TestFetchRealDataBitcoinScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/coins/markets", r.URL.Path)
		n := r.URL.Query().Get("per_page")
		var items []string
		for i := 0; i < 5; i++ {
			items = append(items, fmt.Sprintf(`{"id":"c%d","symbol":"c%d","name":"Coin %d","current_price":1,"market_cap":1,"market_cap_rank":%d}`, i, i, i, i+1))
		}
		assert.Equal(t, "5", n)
		_, _ = w.Write([]byte("[" + strings.Join(items, ",") + "]"))
	}))
	defer srv.Close()

	reg := sources.NewRegistry(config.SourcesConfig{
		Timeout:  time.Second,
		BaseURLs: map[string]string{"coingecko": srv.URL},
	})
	f := NewRealDataFetcher(classifier.New(nil, time.Second), reg)

	res, err := f.FetchRealData(context.Background(), "bitcoin prices", 5)
	require.NoError(t, err)
	assert.Contains(t, res.Source, "CoinGecko")
	assert.Len(t, res.Data, 5)
}

type failingAdapter struct{ err error }

func (a failingAdapter) Name() string { return "Broken API" }

func (a failingAdapter) Fetch(context.Context, sources.Query) (*model.GenerationResult, error) {
	return nil, a.err
}

type oneAdapter struct{ a sources.Adapter }

func (r oneAdapter) For(classifier.Category) sources.Adapter { return r.a }

func TestFetchRealDataErrorKinds(t *testing.T) {
	c := classifier.New(nil, time.Second)
	cases := []struct {
		err    error
		kind   apperr.Kind
		detail string
	}{
		{&sources.SourceError{Source: "general", Err: sources.ErrAllSourcesFailed}, apperr.KindSourceFetch, "all sources failed"},
		{&sources.StatusError{URL: "u", StatusCode: 500}, apperr.KindSourceFetch, "Broken API request failed"},
		{context.DeadlineExceeded, apperr.KindTimeout, ""},
	}
	for _, tc := range cases {
		_, err := NewRealDataFetcher(c, oneAdapter{failingAdapter{tc.err}}).FetchRealData(context.Background(), "anything", 3)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, tc.kind, ae.Kind)
		if tc.detail != "" {
			assert.Equal(t, tc.detail, ae.Details)
		}
	}
}
