package modules

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/core/failure"
)

var gaugePNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n'}

type endpoints struct {
	index      *httptest.Server
	gauge      *httptest.Server
	gaugeHits  atomic.Int32
	lastQuery  atomic.Value
	lastHeader atomic.Value
}

func newEndpoints(t *testing.T, indexBody string, gaugeStatus int) *endpoints {
	t.Helper()
	e := &endpoints{}

	e.index = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, indexBody)
	}))
	t.Cleanup(e.index.Close)

	e.gauge = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.gaugeHits.Add(1)
		e.lastQuery.Store(r.URL.Query().Get("t"))
		e.lastHeader.Store(r.Header.Get("Cache-Control"))
		w.WriteHeader(gaugeStatus)
		if gaugeStatus == http.StatusOK {
			_, _ = w.Write(gaugePNG)
		}
	}))
	t.Cleanup(e.gauge.Close)

	return e
}

func (e *endpoints) fetcher() *SentimentFetcher {
	f := NewSentimentFetcher(SentimentConfig{
		IndexURL:       e.index.URL + "/fng/?limit=1",
		GaugeURL:       e.gauge.URL + "/crypto/fear-and-greed-index.png",
		TimeoutSeconds: 2,
	})
	f.now = func() time.Time { return time.Unix(1700000500, 0) }
	return f
}

const extremeFear = `{"name":"Fear and Greed Index","data":[{"value":"25","value_classification":"Extreme Fear","timestamp":"1700000000","time_until_update":"3600"}],"metadata":{"error":null}}`

func TestFetch_ExtremeFearWithGauge(t *testing.T) {
	e := newEndpoints(t, extremeFear, http.StatusOK)

	report, err := e.fetcher().Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25, report.Reading.Value)
	assert.Equal(t, ExtremeFear, report.Reading.Classification)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), report.Reading.ObservedAt)

	assert.Contains(t, report.Text, "25")
	assert.Contains(t, report.Text, "Extreme Fear")
	assert.Contains(t, report.Text, "As of: 2023-11-14 22:13 UTC")
	assert.Contains(t, report.Text, "Could be a buying opportunity for brave investors!")

	assert.Equal(t, gaugePNG, report.Gauge)
	assert.Equal(t, "1700000500", e.lastQuery.Load())
	assert.Equal(t, "no-cache", e.lastHeader.Load())
}

func TestFetch_GaugeFailureDegradesToText(t *testing.T) {
	e := newEndpoints(t, extremeFear, http.StatusInternalServerError)

	report, err := e.fetcher().Fetch(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.Text)
	assert.Nil(t, report.Gauge)
	assert.Equal(t, int32(1), e.gaugeHits.Load())
}

func TestFetch_GaugeUnreachableDegradesToText(t *testing.T) {
	e := newEndpoints(t, extremeFear, http.StatusOK)
	f := e.fetcher()
	f.gaugeURL = "http://127.0.0.1:1/unreachable.png"

	report, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Text, "Extreme Fear")
	assert.Nil(t, report.Gauge)
}

func TestFetch_EmptyDataSkipsGauge(t *testing.T) {
	e := newEndpoints(t, `{"data": []}`, http.StatusOK)

	report, err := e.fetcher().Fetch(context.Background())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, failure.Empty, failure.KindOf(err))
	assert.Equal(t, int32(0), e.gaugeHits.Load())
}

func TestFetch_MissingDataSkipsGauge(t *testing.T) {
	e := newEndpoints(t, `{"metadata": {}}`, http.StatusOK)

	_, err := e.fetcher().Fetch(context.Background())

	assert.Equal(t, failure.Empty, failure.KindOf(err))
	assert.Equal(t, int32(0), e.gaugeHits.Load())
}

func TestFetch_MalformedPayload(t *testing.T) {
	e := newEndpoints(t, `<html>rate limited</html>`, http.StatusOK)

	_, err := e.fetcher().Fetch(context.Background())

	assert.Equal(t, failure.Malformed, failure.KindOf(err))
	assert.Equal(t, int32(0), e.gaugeHits.Load())
}

func TestFetch_IndexNon2xx(t *testing.T) {
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer index.Close()

	f := NewSentimentFetcher(SentimentConfig{IndexURL: index.URL, GaugeURL: "http://127.0.0.1:1/"})
	_, err := f.Fetch(context.Background())

	assert.Equal(t, failure.Transport, failure.KindOf(err))
}

func TestFetch_NumericFields(t *testing.T) {
	e := newEndpoints(t, `{"data":[{"value":81,"value_classification":"Extreme Greed","timestamp":1700000000}]}`, http.StatusOK)

	report, err := e.fetcher().Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 81, report.Reading.Value)
	assert.Contains(t, report.Text, "Consider taking profits")
}

func TestFormatReading_Advisories(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)

	tests := []struct {
		class Classification
		want  string
	}{
		{ExtremeFear, "buying opportunity"},
		{Fear, "Consider cautious investing."},
		{Neutral, "Mixed signals from investors."},
		{Greed, "potential overvaluation"},
		{ExtremeGreed, "Extreme greed detected!"},
	}

	for _, tt := range tests {
		text := FormatReading(SentimentReading{Value: 50, Classification: tt.class, ObservedAt: at})
		assert.Contains(t, text, tt.want, string(tt.class))
		assert.True(t, strings.HasPrefix(text, "📊 Fear & Greed Index: 50 ("+string(tt.class)+")\n🕐 As of: 2024-03-01 09:05 UTC"))
	}
}

func TestFormatReading_UnknownClassificationHasNoAdvisory(t *testing.T) {
	text := FormatReading(SentimentReading{
		Value:          50,
		Classification: "Mild Optimism",
		ObservedAt:     time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
	})

	assert.Equal(t, "📊 Fear & Greed Index: 50 (Mild Optimism)\n🕐 As of: 2024-03-01 09:05 UTC", text)
}

func TestNewSentimentFetcher_Defaults(t *testing.T) {
	f := NewSentimentFetcher(SentimentConfig{})

	assert.Equal(t, DefaultIndexURL, f.indexURL)
	assert.Equal(t, DefaultGaugeURL, f.gaugeURL)
	assert.Equal(t, 20*time.Second, f.timeout)
}
