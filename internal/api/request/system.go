package request

// StoreAPIKeyRequest is the body of PUT /api/system/price-feed-key.
type StoreAPIKeyRequest struct {
	APIKey string `json:"apiKey"`
}
