package coingecko

// marketCoin is one element of the /coins/markets response. Only the fields
// the tracker needs are decoded.
type marketCoin struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
}

// historyResponse is the subset of /coins/{id}/history the tracker decodes.
// Prices are keyed by quote currency.
type historyResponse struct {
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// CoinIDs maps ticker symbols to CoinGecko coin identifiers. Symbols outside
// this map cannot be priced and are silently skipped.
var CoinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"XRP":  "ripple",
	"SOL":  "solana",
	"LINK": "chainlink",
	"BCH":  "bitcoin-cash",
	"UNI":  "uniswap",
	"LEO":  "leo-token",
	"WBT":  "whitebit",
	"WLFI": "world-liberty-financial",
}
