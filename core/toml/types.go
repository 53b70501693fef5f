// Package toml provides fetching and parsing of stellar.toml files as
// specified in SEP-1. The Resolver discovers an anchor's transfer server
// and web authentication endpoints from its home domain, with a small TTL
// cache so repeated provider and login calls do not refetch the file.
package toml

// AnchorInfo represents the parsed contents of a stellar.toml file, limited
// to the fields needed for transfer server discovery and web authentication.
type AnchorInfo struct {
	// NetworkPassphrase identifies the Stellar network (testnet/mainnet).
	NetworkPassphrase string

	// SigningKey is the anchor's public key used for web authentication.
	SigningKey string

	// WebAuthEndpoint is the URL for Stellar Web Authentication (SEP-10).
	WebAuthEndpoint string

	// TransferServer is the URL for non-interactive deposit/withdrawal (SEP-6).
	TransferServer string

	// TransferServerSep24 is the URL for interactive deposit/withdrawal (SEP-24).
	TransferServerSep24 string

	// Currencies lists assets advertised by the anchor.
	Currencies []CurrencyInfo
}

// CurrencyInfo describes a Stellar asset advertised by an anchor.
type CurrencyInfo struct {
	// Code is the asset code (e.g., "USDC", "BTC").
	Code string

	// Issuer is the Stellar public key of the asset issuer.
	Issuer string

	// Status indicates if the asset is live, test, or disabled (optional).
	Status string

	// DisplayDecimals indicates the number of decimals to display (optional).
	DisplayDecimals int

	// AnchorAssetType indicates the asset type (e.g., "crypto", "fiat") (optional).
	AnchorAssetType string

	// Description provides a human-readable description of the asset (optional).
	Description string
}
