// Package transferconnect provides a Go SDK for moving assets on and off
// the Stellar network through anchor transfer servers. It handles transfer
// server discovery (SEP-1), asset metadata normalization, per-asset
// authentication gating, fee computation, and transaction status watching,
// while delegating key custody, signing, and persistence to the caller.
package transferconnect

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction identifies which side of a transfer a provider handles.
// It is fixed when the provider is constructed.
type Direction string

const (
	// DirectionDeposit moves an off-chain asset onto the network.
	DirectionDeposit Direction = "deposit"

	// DirectionWithdraw moves an on-chain asset back off the network.
	DirectionWithdraw Direction = "withdraw"
)

// TransactionKind returns the transaction kind reported by transfer servers
// for this direction. Note the asymmetry: the withdraw direction produces
// "withdrawal" transactions on the wire.
func (d Direction) TransactionKind() TransactionKind {
	if d == DirectionWithdraw {
		return KindWithdrawal
	}
	return KindDeposit
}

// TransactionKind distinguishes deposit transactions from withdrawals.
type TransactionKind string

const (
	// KindDeposit marks an off-chain to on-chain transaction.
	KindDeposit TransactionKind = "deposit"

	// KindWithdrawal marks an on-chain to off-chain transaction.
	KindWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatus is the transfer server's reported lifecycle state.
//
// Statuses form an open enumeration: any value prefixed with "pending" is a
// non-terminal state, "completed" is the sole success terminal, and every
// other value is a failure terminal. The constants below cover the statuses
// transfer servers commonly report, but servers may emit others.
type TransactionStatus string

const (
	// StatusCompleted is the sole success terminal status.
	StatusCompleted TransactionStatus = "completed"

	// StatusPendingAnchor means the anchor is processing the transaction.
	StatusPendingAnchor TransactionStatus = "pending_anchor"

	// StatusPendingExternal means the off-chain leg (bank rail, fiat
	// payment) is in progress.
	StatusPendingExternal TransactionStatus = "pending_external"

	// StatusPendingStellar means the on-chain transaction is in progress.
	StatusPendingStellar TransactionStatus = "pending_stellar"

	// StatusPendingTrust means the user must establish a trustline before
	// the anchor can deliver the asset.
	StatusPendingTrust TransactionStatus = "pending_trust"

	// StatusPendingUser means the anchor is waiting on an action from the
	// user, such as accepting updated terms.
	StatusPendingUser TransactionStatus = "pending_user"

	// StatusPendingUserTransferStart means the anchor is waiting for the
	// user to send funds.
	StatusPendingUserTransferStart TransactionStatus = "pending_user_transfer_start"

	// StatusIncomplete means the transaction was abandoned before the
	// required information was collected.
	StatusIncomplete TransactionStatus = "incomplete"

	// StatusNoMarket means the anchor could not find a market to execute
	// the transfer.
	StatusNoMarket TransactionStatus = "no_market"

	// StatusTooSmall means the amount was below the asset's minimum.
	StatusTooSmall TransactionStatus = "too_small"

	// StatusTooLarge means the amount was above the asset's maximum.
	StatusTooLarge TransactionStatus = "too_large"

	// StatusError is a generic failure terminal.
	StatusError TransactionStatus = "error"
)

// IsPending reports whether the status belongs to the non-terminal
// "pending" family (pending_anchor, pending_external, and so on).
func (s TransactionStatus) IsPending() bool {
	return strings.HasPrefix(string(s), "pending")
}

// IsTerminal reports whether a watcher should stop polling at this status.
func (s TransactionStatus) IsTerminal() bool {
	return !s.IsPending()
}

// Succeeded reports whether the status is the success terminal.
func (s TransactionStatus) Succeeded() bool {
	return s == StatusCompleted
}

// Transaction is a single deposit or withdrawal as reported by a transfer
// server's /transaction and /transactions endpoints.
type Transaction struct {
	ID           string            `json:"id"`
	Kind         TransactionKind   `json:"kind"`
	Status       TransactionStatus `json:"status"`
	StatusETA    int               `json:"status_eta,omitempty"`
	MoreInfoURL  string            `json:"more_info_url,omitempty"`
	AmountIn     string            `json:"amount_in,omitempty"`
	AmountOut    string            `json:"amount_out,omitempty"`
	AmountFee    string            `json:"amount_fee,omitempty"`
	From         string            `json:"from,omitempty"`
	To           string            `json:"to,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	TxHash       string            `json:"stellar_transaction_id,omitempty"`
	ExternalTxID string            `json:"external_transaction_id,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// FeeType tags how a fee is computed for an asset.
type FeeType string

const (
	// FeeNone means the anchor charges no fee for the asset.
	FeeNone FeeType = "none"

	// FeeSimple means the fee is computed locally from a percent and a
	// fixed component.
	FeeSimple FeeType = "simple"

	// FeeComplex means only the anchor can compute the fee; it must be
	// fetched from the /fee endpoint.
	FeeComplex FeeType = "complex"
)

// Fee is an asset's fee schedule as advertised in the /info response.
// Percent and Fixed are only meaningful when Type is FeeSimple; absent
// components default to zero.
type Fee struct {
	Type    FeeType         `json:"type"`
	Percent decimal.Decimal `json:"percent"`
	Fixed   decimal.Decimal `json:"fixed"`
}

// AssetInfo is the normalized per-asset metadata for one direction.
type AssetInfo struct {
	Code                   string          `json:"-"`
	Enabled                bool            `json:"enabled"`
	AuthenticationRequired bool            `json:"authentication_required"`
	Fee                    Fee             `json:"fee"`
	MinAmount              decimal.Decimal `json:"min_amount"`
	MaxAmount              decimal.Decimal `json:"max_amount"`
}

// Info is the normalized transfer server metadata, keyed by direction and
// then by asset code. It is built once per FetchInfo call and fully
// replaced on refresh, never merged.
type Info struct {
	Deposit  map[string]AssetInfo `json:"deposit"`
	Withdraw map[string]AssetInfo `json:"withdraw"`
}

// Asset looks up the metadata for an asset code under a direction.
// The second return value reports whether the asset is supported; callers
// must treat false as "unsupported", not as a zero-fee default.
func (i *Info) Asset(d Direction, code string) (AssetInfo, bool) {
	var m map[string]AssetInfo
	switch d {
	case DirectionDeposit:
		m = i.Deposit
	case DirectionWithdraw:
		m = i.Withdraw
	}
	asset, ok := m[code]
	return asset, ok
}

// TransactionsRequest selects which transactions the /transactions endpoint
// should return.
type TransactionsRequest struct {
	// AssetCode is required.
	AssetCode string

	// NoOlderThan, when set, excludes transactions started before it.
	NoOlderThan time.Time

	// Limit caps the number of returned transactions; zero means the
	// server default.
	Limit int

	// Kind restricts results to one transaction kind on the server side.
	Kind TransactionKind

	// PagingID returns transactions prior to the given transaction ID.
	PagingID string

	// ShowAllTransactions disables the provider's direction filter so the
	// result includes both deposits and withdrawals.
	ShowAllTransactions bool
}

// TransactionRequest identifies a single transaction. Exactly one of the
// identifiers must be set; ID takes precedence.
type TransactionRequest struct {
	AssetCode    string
	ID           string
	TxHash       string
	ExternalTxID string
}

// FeeRequest asks for the fee the anchor will charge on a transfer.
type FeeRequest struct {
	AssetCode string
	Amount    decimal.Decimal

	// Type selects a fee schedule variant for anchors that price deposit
	// methods differently (for example "bank_account" vs "cash").
	Type string
}

// Signer is the minimal contract for proving control of a Stellar account
// during web authentication. The SDK does not manage keys or signing
// infrastructure; the caller provides a Signer and the SDK uses it.
type Signer interface {
	// PublicKey returns the Stellar address (G...) identifying this signer.
	PublicKey() string

	// SignTransaction signs a Stellar transaction envelope (base64 XDR).
	// The networkPassphrase is required for computing the correct
	// transaction hash. Returns the signed envelope as base64 XDR.
	SignTransaction(ctx context.Context, xdr string, networkPassphrase string) (string, error)
}
