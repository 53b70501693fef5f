package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/errors"
)

var oneHundred = decimal.NewFromInt(100)

// FetchFinalFee computes the fee the anchor will charge for transferring
// req.Amount of the asset:
//
//   - a none fee returns zero with no network call
//   - a simple fee is computed locally as percent/100 * amount + fixed
//   - a complex fee is fetched from the /fee endpoint and returned verbatim
//
// Fee lookup itself does not demand authentication, but when a bearer token
// is set it is attached to the /fee request for anchors that gate the
// endpoint.
func (p *TransferProvider) FetchFinalFee(ctx context.Context, req transferconnect.FeeRequest) (decimal.Decimal, error) {
	if strings.TrimSpace(req.AssetCode) == "" {
		return decimal.Zero, errors.NewProviderError(errors.VALIDATION_FAILED, "fetchFinalFee: asset code is required", nil)
	}

	info := p.currentInfo()
	if info == nil {
		return decimal.Zero, errors.NewProviderError(
			errors.INFO_NOT_FETCHED,
			"fetchFinalFee: transfer server info has not been fetched; call FetchInfo first",
			nil,
		)
	}

	asset, ok := info.Asset(p.direction, req.AssetCode)
	if !ok {
		return decimal.Zero, errors.NewProviderError(
			errors.ASSET_UNSUPPORTED,
			fmt.Sprintf("fetchFinalFee: asset %s is not supported for %s", req.AssetCode, p.direction),
			nil,
		).WithContext("asset_code", req.AssetCode)
	}

	switch asset.Fee.Type {
	case transferconnect.FeeNone:
		return decimal.Zero, nil
	case transferconnect.FeeSimple:
		return asset.Fee.Percent.Div(oneHundred).Mul(req.Amount).Add(asset.Fee.Fixed), nil
	case transferconnect.FeeComplex:
		return p.fetchFee(ctx, req)
	default:
		return decimal.Zero, errors.NewProviderError(
			errors.FEE_TYPE_INVALID,
			fmt.Sprintf("fetchFinalFee: unknown fee type %q for asset %s", asset.Fee.Type, req.AssetCode),
			nil,
		).WithContext("fee_type", string(asset.Fee.Type))
	}
}

// fetchFee asks the /fee endpoint to price the transfer.
func (p *TransferProvider) fetchFee(ctx context.Context, req transferconnect.FeeRequest) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("operation", string(p.direction))
	q.Set("asset_code", req.AssetCode)
	q.Set("amount", req.Amount.String())
	if req.Type != "" {
		q.Set("type", req.Type)
	}

	var headers map[string]string
	if token := p.currentAuthToken(); token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}

	resp, err := p.httpClient.Get(ctx, p.transferServer+"/fee?"+q.Encode(), headers)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, errors.NewProviderError(
			errors.SERVER_DATA_INVALID,
			fmt.Sprintf("fee request returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var feeResp struct {
		Fee decimal.Decimal `json:"fee"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feeResp); err != nil {
		return decimal.Zero, errors.NewProviderError(errors.SERVER_DATA_INVALID, "failed to decode fee response JSON", err)
	}

	return feeResp.Fee, nil
}
