package modules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"aide/core/failure"
)

const (
	DefaultIndexURL         = "https://api.alternative.me/fng/?limit=1"
	DefaultGaugeURL         = "https://alternative.me/crypto/fear-and-greed-index.png"
	DefaultSentimentTimeout = 20 * time.Second

	GaugeFileName = "fear_and_greed_index.png"

	maxGaugeBytes = 10 << 20
)

type Classification string

const (
	ExtremeFear  Classification = "Extreme Fear"
	Fear         Classification = "Fear"
	Neutral      Classification = "Neutral"
	Greed        Classification = "Greed"
	ExtremeGreed Classification = "Extreme Greed"
)

var advisories = map[Classification]string{
	ExtremeFear:  "😱 Market shows extreme fear. Could be a buying opportunity for brave investors!",
	Fear:         "😰 Market sentiment is fearful. Consider cautious investing.",
	Neutral:      "😐 Market sentiment is neutral. Mixed signals from investors.",
	Greed:        "😏 Market shows greed. Be cautious of potential overvaluation.",
	ExtremeGreed: "🚨 Extreme greed detected! Consider taking profits or being very cautious.",
}

// Advisory returns the sentence for a label, or "" for labels outside the
// five known ones.
func (c Classification) Advisory() string {
	return advisories[c]
}

type SentimentReading struct {
	Value          int
	Classification Classification
	ObservedAt     time.Time
}

// SentimentReport is the reply for one sentiment request. Gauge is nil when
// the image could not be fetched.
type SentimentReport struct {
	Reading SentimentReading
	Text    string
	Gauge   []byte
}

type SentimentConfig struct {
	IndexURL       string `toml:"index_url"`
	GaugeURL       string `toml:"gauge_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type SentimentFetcher struct {
	client   *http.Client
	indexURL string
	gaugeURL string
	timeout  time.Duration
	now      func() time.Time
}

func NewSentimentFetcher(cfg SentimentConfig) *SentimentFetcher {
	if cfg.IndexURL == "" {
		cfg.IndexURL = DefaultIndexURL
	}
	if cfg.GaugeURL == "" {
		cfg.GaugeURL = DefaultGaugeURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultSentimentTimeout
	}
	return &SentimentFetcher{
		client:   &http.Client{},
		indexURL: cfg.IndexURL,
		gaugeURL: cfg.GaugeURL,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Fetch reads the latest index value and tries to attach the gauge image.
// Only the index lookup can fail; a gauge failure is logged and the report
// is returned without an image.
func (f *SentimentFetcher) Fetch(ctx context.Context) (*SentimentReport, error) {
	reading, err := f.fetchReading(ctx)
	if err != nil {
		return nil, err
	}

	report := &SentimentReport{
		Reading: reading,
		Text:    FormatReading(reading),
	}

	gauge, err := f.fetchGauge(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Gauge image fetch failed, sending text only")
		return report, nil
	}
	report.Gauge = gauge
	return report, nil
}

func FormatReading(r SentimentReading) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Fear & Greed Index: %d (%s)\n", r.Value, r.Classification)
	fmt.Fprintf(&sb, "🕐 As of: %s", r.ObservedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if advisory := r.Classification.Advisory(); advisory != "" {
		sb.WriteString("\n\n")
		sb.WriteString(advisory)
	}
	return sb.String()
}

// flexInt accepts both 25 and "25".
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", data, err)
	}
	*n = flexInt(v)
	return nil
}

type fngResponse struct {
	Data []struct {
		Value               flexInt `json:"value"`
		ValueClassification string  `json:"value_classification"`
		Timestamp           flexInt `json:"timestamp"`
	} `json:"data"`
}

func (f *SentimentFetcher) fetchReading(ctx context.Context) (SentimentReading, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.indexURL, nil)
	if err != nil {
		return SentimentReading{}, failure.Wrap(failure.Transport, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return SentimentReading{}, failure.Wrap(failure.Transport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SentimentReading{}, failure.Newf(failure.Transport, "index API returned status %d", resp.StatusCode)
	}

	var result fngResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SentimentReading{}, failure.Wrap(failure.Malformed, err)
	}

	if len(result.Data) == 0 {
		return SentimentReading{}, failure.Newf(failure.Empty, "no sentiment data in response")
	}

	item := result.Data[0]
	return SentimentReading{
		Value:          int(item.Value),
		Classification: Classification(item.ValueClassification),
		ObservedAt:     time.Unix(int64(item.Timestamp), 0).UTC(),
	}, nil
}

func (f *SentimentFetcher) fetchGauge(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	u, err := url.Parse(f.gaugeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gauge URL: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(f.now().UTC().Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gauge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gauge endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGaugeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read gauge image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("gauge endpoint returned an empty body")
	}
	return data, nil
}
