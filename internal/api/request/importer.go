package request

// WalletRequest identifies one wallet in an import run request.
type WalletRequest struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

// RunImportRequest is the body of POST /api/import.
type RunImportRequest struct {
	Wallets []WalletRequest `json:"wallets"`
}
