package provider

import (
	"context"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/core/toml"
	"github.com/transfer-connect/sdk-go/errors"
)

// DepositProvider moves off-chain assets onto the network. It lists,
// watches, and prices deposit transactions against one transfer server.
type DepositProvider struct {
	TransferProvider
}

var _ Provider = (*DepositProvider)(nil)

// NewDepositProvider creates a deposit provider for the given transfer
// server endpoint and Stellar account. Construction fails if either is
// empty or the account is not a valid Stellar address.
func NewDepositProvider(transferServer, account string, opts ...Option) (*DepositProvider, error) {
	p := &DepositProvider{}
	if err := initTransferProvider(&p.TransferProvider, transferServer, account, transferconnect.DirectionDeposit, opts); err != nil {
		return nil, err
	}
	return p, nil
}

// NewDepositProviderFromDomain discovers the anchor's transfer server from
// its stellar.toml and builds a deposit provider for it.
func NewDepositProviderFromDomain(ctx context.Context, resolver *toml.Resolver, homeDomain, account string, opts ...Option) (*DepositProvider, error) {
	transferServer, err := resolveTransferServer(ctx, resolver, homeDomain)
	if err != nil {
		return nil, err
	}
	return NewDepositProvider(transferServer, account, opts...)
}

// FetchSupportedAssets refreshes the transfer server info and returns the
// deposit-side asset metadata.
func (p *DepositProvider) FetchSupportedAssets(ctx context.Context) (map[string]transferconnect.AssetInfo, error) {
	info, err := p.FetchInfo(ctx)
	if err != nil {
		return nil, err
	}
	return info.Deposit, nil
}

// resolveTransferServer picks the anchor's transfer server endpoint from
// its stellar.toml, preferring the SEP-6 endpoint and falling back to the
// SEP-24 one.
func resolveTransferServer(ctx context.Context, resolver *toml.Resolver, homeDomain string) (string, error) {
	anchorInfo, err := resolver.Resolve(ctx, homeDomain)
	if err != nil {
		return "", err
	}
	switch {
	case anchorInfo.TransferServer != "":
		return anchorInfo.TransferServer, nil
	case anchorInfo.TransferServerSep24 != "":
		return anchorInfo.TransferServerSep24, nil
	default:
		return "", errors.NewCoreError(
			errors.TOML_INVALID,
			"anchor "+homeDomain+" does not advertise a transfer server",
			nil,
		)
	}
}
