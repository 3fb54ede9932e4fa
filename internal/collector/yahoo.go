package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"QuantSentinel/internal/model"
)

// DefaultYahooBaseURL is the public chart endpoint.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// indexTickers maps index names to their Yahoo tickers.
var indexTickers = map[string]string{
	"NIFTY":     "^NSEI",
	"BANKNIFTY": "^NSEBANK",
	"SENSEX":    "^BSESN",
}

// maxDaysPerRequest is the most 1m history Yahoo returns for one request.
const maxDaysPerRequest = 7

// YahooFetcher downloads minute bars from the Yahoo Finance chart API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	// Aliases maps configured symbols to Yahoo tickers. Unmapped symbols are
	// sent as is.
	Aliases map[string]string
	// Now anchors multi-window requests. Defaults to time.Now.
	Now func() time.Time
}

// NewYahooFetcher returns a fetcher for baseURL (empty selects the public
// endpoint), optionally routed through proxyURL.
func NewYahooFetcher(baseURL, proxyURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &YahooFetcher{
		Client:  newHTTPClient(proxyURL, 30*time.Second),
		BaseURL: strings.TrimRight(baseURL, "/"),
		Aliases: indexTickers,
	}
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) ticker(symbol string) string {
	if t, ok := f.Aliases[symbol]; ok {
		return t
	}
	return symbol
}

// Nulls in the quote arrays decode to nil pointers.
type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func cell(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

// FetchMinuteBars downloads 1m bars covering the last days days. Yahoo keeps
// about 30 days of minute data but serves at most 7 per request, so longer
// histories are fetched in consecutive windows.
func (f *YahooFetcher) FetchMinuteBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", model.ErrInvalidInput, days)
	}

	if days <= maxDaysPerRequest {
		q := url.Values{}
		q.Set("interval", "1m")
		q.Set("range", fmt.Sprintf("%dd", days))
		bars, err := f.fetchWindow(ctx, symbol, q)
		if err != nil {
			return nil, err
		}
		return normalize(bars), nil
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	end := now().UTC().Truncate(time.Minute)
	window := maxDaysPerRequest * 24 * time.Hour
	var bars []model.OHLCV
	for from := end.Add(-time.Duration(days) * 24 * time.Hour); from.Before(end); from = from.Add(window) {
		to := from.Add(window)
		if to.After(end) {
			to = end
		}
		q := url.Values{}
		q.Set("interval", "1m")
		q.Set("period1", strconv.FormatInt(from.Unix(), 10))
		q.Set("period2", strconv.FormatInt(to.Unix(), 10))
		chunk, err := f.fetchWindow(ctx, symbol, q)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", from.Format(time.DateOnly), err)
		}
		bars = append(bars, chunk...)
	}
	return normalize(bars), nil
}

// fetchWindow returns the bars of one chart request in response order.
func (f *YahooFetcher) fetchWindow(ctx context.Context, symbol string, q url.Values) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.ticker(symbol)), q.Encode())
	chart, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}
	return quoteBars(chart.Chart.Result[0]), nil
}

func (f *YahooFetcher) get(ctx context.Context, u string) (*chartResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build yahoo request: %w", err)
	}
	// Yahoo rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yahoo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode yahoo chart: %w", err)
	}
	if e := chart.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s", e.Code, e.Description)
	}
	return &chart, nil
}

// quoteBars turns a chart result into UTC bars, dropping minutes with a
// missing price.
func quoteBars(res chartResult) []model.OHLCV {
	quote := res.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, okO := cell(quote.Open, i)
		h, okH := cell(quote.High, i)
		l, okL := cell(quote.Low, i)
		c, okC := cell(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		v, _ := cell(quote.Volume, i)
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	return bars
}

// normalize sorts bars by time and keeps the last bar of a repeated minute.
// Yahoo repeats the live minute at the end of a series, and adjacent windows
// share their boundary minute.
func normalize(bars []model.OHLCV) []model.OHLCV {
	slices.SortStableFunc(bars, func(a, b model.OHLCV) int { return a.Time.Compare(b.Time) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
