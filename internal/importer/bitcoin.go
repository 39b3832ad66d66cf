package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const blockcypherBaseURL = "https://api.blockcypher.com/v1/btc/main"

var satoshisPerBTC = decimal.NewFromInt(100_000_000)

// blockcypherTx is the subset of BlockCypher's full-address transaction
// record the importer decodes. Values are in satoshis.
type blockcypherTx struct {
	Hash          string `json:"hash"`
	Confirmed     string `json:"confirmed"`
	Confirmations int    `json:"confirmations"`
	Inputs        []struct {
		Addresses   []string `json:"addresses"`
		OutputValue int64    `json:"output_value"`
	} `json:"inputs"`
	Outputs []struct {
		Addresses []string `json:"addresses"`
		Value     int64    `json:"value"`
	} `json:"outputs"`
}

type blockcypherAddressResponse struct {
	Txs []blockcypherTx `json:"txs"`
}

// BitcoinFetcher retrieves Bitcoin transfer history from the BlockCypher
// full-address endpoint.
type BitcoinFetcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewBitcoinFetcher creates a fetcher against the public BlockCypher API.
func NewBitcoinFetcher() *BitcoinFetcher {
	return &BitcoinFetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    blockcypherBaseURL,
	}
}

// NewBitcoinFetcherWithBaseURL creates a fetcher pointed at an alternate
// endpoint. Intended for tests.
func NewBitcoinFetcherWithBaseURL(baseURL string) *BitcoinFetcher {
	f := NewBitcoinFetcher()
	f.baseURL = baseURL
	return f
}

// Symbol returns the ticker of the chain's native asset.
func (f *BitcoinFetcher) Symbol() string { return "BTC" }

// FetchTransfers returns up to limit transfers touching the address, oldest
// first. The net amount per transaction is computed from the inputs and
// outputs involving the address; transactions that net to zero are dropped.
func (f *BitcoinFetcher) FetchTransfers(ctx context.Context, address string, limit int) ([]Transfer, error) {
	endpoint := fmt.Sprintf("%s/addrs/%s/full?limit=%d", f.baseURL, address, limit)
	backoff := retry.WithMaxRetries(3, retry.NewExponential(3*time.Second))

	var payload blockcypherAddressResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("blockcypher rate limit hit"))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("blockcypher returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return json.Unmarshal(data, &payload)
	})
	if err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(payload.Txs))
	for _, tx := range payload.Txs {
		var inSats, outSats int64
		for _, input := range tx.Inputs {
			for _, addr := range input.Addresses {
				if addr == address {
					inSats += input.OutputValue
				}
			}
		}
		for _, output := range tx.Outputs {
			for _, addr := range output.Addresses {
				if addr == address {
					outSats += output.Value
				}
			}
		}
		netSats := outSats - inSats
		if netSats == 0 {
			continue
		}

		var timestamp time.Time
		if tx.Confirmed != "" {
			if t, err := time.Parse(time.RFC3339, tx.Confirmed); err == nil {
				timestamp = t.UTC()
			}
		}

		transfers = append(transfers, Transfer{
			TxHash:        tx.Hash,
			Amount:        decimal.NewFromInt(netSats).Div(satoshisPerBTC),
			Timestamp:     timestamp,
			Confirmations: tx.Confirmations,
		})
	}

	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.Before(transfers[j].Timestamp)
	})
	return transfers, nil
}
