package provider

import (
	"context"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/core/toml"
)

// WithdrawProvider moves on-chain assets back off the network. Its
// transactions carry the "withdrawal" kind on the wire.
type WithdrawProvider struct {
	TransferProvider
}

var _ Provider = (*WithdrawProvider)(nil)

// NewWithdrawProvider creates a withdraw provider for the given transfer
// server endpoint and Stellar account. Construction fails if either is
// empty or the account is not a valid Stellar address.
func NewWithdrawProvider(transferServer, account string, opts ...Option) (*WithdrawProvider, error) {
	p := &WithdrawProvider{}
	if err := initTransferProvider(&p.TransferProvider, transferServer, account, transferconnect.DirectionWithdraw, opts); err != nil {
		return nil, err
	}
	return p, nil
}

// NewWithdrawProviderFromDomain discovers the anchor's transfer server from
// its stellar.toml and builds a withdraw provider for it.
func NewWithdrawProviderFromDomain(ctx context.Context, resolver *toml.Resolver, homeDomain, account string, opts ...Option) (*WithdrawProvider, error) {
	transferServer, err := resolveTransferServer(ctx, resolver, homeDomain)
	if err != nil {
		return nil, err
	}
	return NewWithdrawProvider(transferServer, account, opts...)
}

// FetchSupportedAssets refreshes the transfer server info and returns the
// withdraw-side asset metadata.
func (p *WithdrawProvider) FetchSupportedAssets(ctx context.Context) (map[string]transferconnect.AssetInfo, error) {
	info, err := p.FetchInfo(ctx)
	if err != nil {
		return nil, err
	}
	return info.Withdraw, nil
}
