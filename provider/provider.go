// Package provider implements the client side of the deposit/withdraw
// transfer protocol: it normalizes a transfer server's /info metadata,
// gates per-asset operations on authentication, computes transfer fees,
// and watches transaction status until a terminal state.
//
// A provider instance is bound at construction to one transfer server, one
// account, and one direction. The two concrete variants, DepositProvider
// and WithdrawProvider, share this core and differ only in direction and
// in which side of the /info response FetchSupportedAssets returns.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go/keypair"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/core/net"
	"github.com/transfer-connect/sdk-go/errors"
	"github.com/transfer-connect/sdk-go/watcher"
)

// Provider is the capability set shared by both transfer directions.
// DepositProvider and WithdrawProvider implement it.
type Provider interface {
	// FetchInfo retrieves and normalizes the transfer server's asset
	// metadata. The stored info is fully replaced on every call.
	FetchInfo(ctx context.Context) (*transferconnect.Info, error)

	// FetchSupportedAssets refreshes info and returns the asset map for
	// the provider's direction.
	FetchSupportedAssets(ctx context.Context) (map[string]transferconnect.AssetInfo, error)

	// CheckAuth reports whether the asset requires a bearer token, failing
	// if info is unfetched, the asset is unsupported, or a required token
	// is missing.
	CheckAuth(assetCode string) (bool, error)

	// FetchTransactions lists transactions for an asset, filtered to the
	// provider's direction unless the request says otherwise.
	FetchTransactions(ctx context.Context, req transferconnect.TransactionsRequest) ([]transferconnect.Transaction, error)

	// FetchTransaction retrieves a single transaction.
	FetchTransaction(ctx context.Context, req transferconnect.TransactionRequest) (*transferconnect.Transaction, error)

	// FetchFinalFee computes the fee for an asset and amount using the
	// asset's advertised fee schedule.
	FetchFinalFee(ctx context.Context, req transferconnect.FeeRequest) (decimal.Decimal, error)

	// SetAuthToken installs the bearer token for authenticated requests.
	// An empty token clears it.
	SetAuthToken(token string)

	// WatchTransaction polls a transaction until it reaches a terminal
	// status, delivering outcomes through the callbacks.
	WatchTransaction(ctx context.Context, req transferconnect.TransactionRequest, cb watcher.Callbacks, opts ...watcher.Option) *watcher.Handle
}

// TransferProvider is the shared core embedded by the direction variants.
// Its transferServer, direction, and account are immutable after
// construction; info and authToken are guarded by mu.
type TransferProvider struct {
	transferServer string
	direction      transferconnect.Direction
	account        string

	httpClient *net.Client
	log        *logrus.Entry

	mu        sync.RWMutex
	info      *transferconnect.Info
	authToken string
}

// Option configures a TransferProvider.
type Option func(*TransferProvider)

// WithHTTPClient sets the underlying HTTP client for network requests.
func WithHTTPClient(client *net.Client) Option {
	return func(p *TransferProvider) {
		p.httpClient = client
	}
}

// WithLogger attaches a logrus entry for debug logging. The provider is
// silent without it.
func WithLogger(log *logrus.Entry) Option {
	return func(p *TransferProvider) {
		p.log = log
	}
}

// initTransferProvider validates the identity fields and initializes the
// shared core in place, so the variant structs never copy a constructed
// provider (it embeds an RWMutex).
func initTransferProvider(p *TransferProvider, transferServer, account string, direction transferconnect.Direction, opts []Option) error {
	if strings.TrimSpace(transferServer) == "" {
		return errors.NewProviderError(errors.VALIDATION_FAILED, "transfer server URL is required", nil)
	}
	if strings.TrimSpace(account) == "" {
		return errors.NewProviderError(errors.VALIDATION_FAILED, "account is required", nil)
	}
	if _, err := keypair.ParseAddress(account); err != nil {
		return errors.NewProviderError(errors.VALIDATION_FAILED, fmt.Sprintf("invalid account address %q", account), err)
	}

	p.transferServer = strings.TrimSuffix(transferServer, "/")
	p.direction = direction
	p.account = account
	p.httpClient = net.NewClient()

	for _, opt := range opts {
		opt(p)
	}

	return nil
}

// TransferServer returns the transfer server endpoint this provider talks to.
func (p *TransferProvider) TransferServer() string {
	return p.transferServer
}

// Direction returns the transfer direction fixed at construction.
func (p *TransferProvider) Direction() transferconnect.Direction {
	return p.direction
}

// Account returns the Stellar account this provider acts for.
func (p *TransferProvider) Account() string {
	return p.account
}

// SetAuthToken installs the bearer token obtained from web authentication.
// Passing an empty string clears the token. The token has no expiry logic
// here; re-authentication is the caller's concern.
func (p *TransferProvider) SetAuthToken(token string) {
	p.mu.Lock()
	p.authToken = token
	p.mu.Unlock()
}

func (p *TransferProvider) currentAuthToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authToken
}

func (p *TransferProvider) currentInfo() *transferconnect.Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info
}

// FetchInfo retrieves /info from the transfer server, normalizes it, and
// replaces any previously stored info in full.
func (p *TransferProvider) FetchInfo(ctx context.Context) (*transferconnect.Info, error) {
	resp, err := p.httpClient.Get(ctx, p.transferServer+"/info", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewProviderError(
			errors.SERVER_DATA_INVALID,
			fmt.Sprintf("info request returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderError(errors.SERVER_DATA_INVALID, "failed to read info response", err)
	}

	info, err := ParseInfo(raw)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.info = info
	p.mu.Unlock()

	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"deposit_assets":  len(info.Deposit),
			"withdraw_assets": len(info.Withdraw),
		}).Debug("fetched transfer server info")
	}

	return info, nil
}

// FetchTransactions lists the account's transactions for an asset. The
// result is filtered to the provider's direction (deposit providers see
// deposits, withdraw providers see withdrawals) unless
// req.ShowAllTransactions is set.
func (p *TransferProvider) FetchTransactions(ctx context.Context, req transferconnect.TransactionsRequest) ([]transferconnect.Transaction, error) {
	authRequired, err := p.checkAuth("fetchTransactions", req.AssetCode)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("asset_code", req.AssetCode)
	q.Set("account", p.account)
	if !req.NoOlderThan.IsZero() {
		q.Set("no_older_than", req.NoOlderThan.UTC().Format(time.RFC3339))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Kind != "" {
		q.Set("kind", string(req.Kind))
	}
	if req.PagingID != "" {
		q.Set("paging_id", req.PagingID)
	}
	if req.ShowAllTransactions {
		q.Set("show_all_transactions", "true")
	}

	resp, err := p.httpClient.Get(ctx, p.transferServer+"/transactions?"+q.Encode(), p.bearerHeaders(authRequired))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewProviderError(
			errors.SERVER_DATA_INVALID,
			fmt.Sprintf("transactions request returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var listResp struct {
		Transactions []transferconnect.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, errors.NewProviderError(errors.SERVER_DATA_INVALID, "failed to decode transactions response JSON", err)
	}

	if req.ShowAllTransactions {
		return listResp.Transactions, nil
	}

	kind := p.direction.TransactionKind()
	filtered := make([]transferconnect.Transaction, 0, len(listResp.Transactions))
	for _, tx := range listResp.Transactions {
		if tx.Kind == kind {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}

// FetchTransaction retrieves a single transaction by one of its identifiers.
func (p *TransferProvider) FetchTransaction(ctx context.Context, req transferconnect.TransactionRequest) (*transferconnect.Transaction, error) {
	return p.fetchTransaction(ctx, req, "fetchTransaction")
}

// fetchTransaction is shared by FetchTransaction and the watcher. The
// callSite distinguishes a fetch for display from a fetch for watching in
// error messages; the request itself is identical.
func (p *TransferProvider) fetchTransaction(ctx context.Context, req transferconnect.TransactionRequest, callSite string) (*transferconnect.Transaction, error) {
	authRequired, err := p.checkAuth(callSite, req.AssetCode)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	switch {
	case req.ID != "":
		q.Set("id", req.ID)
	case req.TxHash != "":
		q.Set("stellar_transaction_id", req.TxHash)
	case req.ExternalTxID != "":
		q.Set("external_transaction_id", req.ExternalTxID)
	default:
		return nil, errors.NewProviderError(
			errors.VALIDATION_FAILED,
			fmt.Sprintf("%s: a transaction identifier is required", callSite),
			nil,
		)
	}

	resp, err := p.httpClient.Get(ctx, p.transferServer+"/transaction?"+q.Encode(), p.bearerHeaders(authRequired))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewProviderError(
			errors.SERVER_DATA_INVALID,
			fmt.Sprintf("%s: transaction request returned status %d: %s", callSite, resp.StatusCode, string(body)),
			nil,
		)
	}

	var txResp struct {
		Transaction transferconnect.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&txResp); err != nil {
		return nil, errors.NewProviderError(errors.SERVER_DATA_INVALID, "failed to decode transaction response JSON", err)
	}

	return &txResp.Transaction, nil
}

// WatchTransaction polls the transaction until it reaches a terminal
// status. The returned Handle is the only record of the watch: each call
// owns its own handle, so concurrent watches never orphan one another.
// Errors from the authentication gate and from the network alike are
// delivered to cb.OnError, never returned.
func (p *TransferProvider) WatchTransaction(ctx context.Context, req transferconnect.TransactionRequest, cb watcher.Callbacks, opts ...watcher.Option) *watcher.Handle {
	fetch := func(ctx context.Context) (*transferconnect.Transaction, error) {
		return p.fetchTransaction(ctx, req, "watchTransaction")
	}
	if p.log != nil {
		opts = append([]watcher.Option{watcher.WithLogger(p.log)}, opts...)
	}
	return watcher.Watch(ctx, fetch, cb, opts...)
}

// bearerHeaders returns the Authorization header when the asset's gate
// requires it, nil otherwise.
func (p *TransferProvider) bearerHeaders(authRequired bool) map[string]string {
	if !authRequired {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + p.currentAuthToken()}
}
