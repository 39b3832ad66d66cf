package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client provides methods for fetching cryptocurrency market data from the
// CoinGecko API. It wraps an HTTP client and translates ticker symbols to
// CoinGecko coin identifiers on the way out and back.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	vsCurrency string
	maxRetries uint64
}

// NewClient creates a CoinGecko client. vsCurrency is the quote currency for
// all prices (e.g. "aud"). apiKey may be empty for the public rate-limited
// tier.
func NewClient(vsCurrency, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		vsCurrency: strings.ToLower(vsCurrency),
		maxRetries: 3,
	}
}

// NewClientWithBaseURL creates a client pointed at an alternate endpoint.
// Intended for tests.
func NewClientWithBaseURL(baseURL, vsCurrency string) *Client {
	c := NewClient(vsCurrency, "")
	c.baseURL = baseURL
	return c
}

// CurrentPrices fetches current market prices for a batch of symbols in one
// request. Symbols with no known CoinGecko identifier, and identifiers the
// API did not return, are omitted from the result rather than failing the
// batch.
//
// Rate-limit (429) and transport errors are retried with exponential backoff
// before the call fails.
//
// Parameters:
//   - ctx: Cancels in-flight requests and pending backoff waits
//   - symbols: Ticker symbols (e.g. "BTC", "ETH"); case-insensitive
//
// Returns:
//   - map[string]decimal.Decimal: Symbol to current price in the configured quote currency
//   - error: If the request fails after all retries
func (c *Client) CurrentPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	coinIDs := make([]string, 0, len(symbols))
	idToSymbol := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		upper := strings.ToUpper(symbol)
		id, ok := CoinIDs[upper]
		if !ok {
			continue
		}
		coinIDs = append(coinIDs, id)
		idToSymbol[id] = upper
	}
	if len(coinIDs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("ids", strings.Join(coinIDs, ","))
	params.Set("order", "market_cap_desc")
	params.Set("per_page", "100")
	params.Set("page", "1")
	params.Set("sparkline", "false")

	coins, err := c.queryMarkets(ctx, params)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(coins))
	for _, coin := range coins {
		symbol, ok := idToSymbol[coin.ID]
		if !ok {
			continue
		}
		prices[symbol] = decimal.NewFromFloat(coin.CurrentPrice)
	}
	return prices, nil
}

// HistoricalPrice fetches the price of one symbol on a specific date, used
// when importing blockchain transfers whose cost basis must be valued at the
// transfer date.
//
// Parameters:
//   - ctx: Cancels in-flight requests and pending backoff waits
//   - symbol: Ticker symbol; must have a known CoinGecko identifier
//   - date: The date to price (time component is ignored)
//
// Returns:
//   - decimal.Decimal: The price in the configured quote currency
//   - error: If the symbol is unknown or no price exists for that date
func (c *Client) HistoricalPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	id, ok := CoinIDs[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no coingecko id for symbol %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/coins/%s/history?date=%s", c.baseURL, id, date.UTC().Format("02-01-2006"))
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(time.Second))

	var history historyResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("coingecko rate limit hit"))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("coingecko returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return json.Unmarshal(data, &history)
	})
	if err != nil {
		return decimal.Zero, err
	}

	price, ok := history.MarketData.CurrentPrice[c.vsCurrency]
	if !ok {
		return decimal.Zero, fmt.Errorf("no %s price for %s on %s", c.vsCurrency, symbol, date.Format("2006-01-02"))
	}
	return decimal.NewFromFloat(price), nil
}

// queryMarkets executes the /coins/markets request with retry on rate limits
// and transport errors.
func (c *Client) queryMarkets(ctx context.Context, params url.Values) ([]marketCoin, error) {
	endpoint := fmt.Sprintf("%s/coins/markets?%s", c.baseURL, params.Encode())

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(time.Second))

	var coins []marketCoin
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("coingecko rate limit hit"))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("coingecko returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return json.Unmarshal(data, &coins)
	})
	if err != nil {
		return nil, err
	}
	return coins, nil
}
