package provider

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/errors"
)

// rawInfo mirrors the wire shape of the /info response. Callers never see
// these types; ParseInfo is the seam between the endpoint's JSON and the
// normalized representation.
type rawInfo struct {
	Deposit  map[string]rawAssetInfo `json:"deposit"`
	Withdraw map[string]rawAssetInfo `json:"withdraw"`
}

type rawAssetInfo struct {
	Enabled                bool            `json:"enabled"`
	AuthenticationRequired bool            `json:"authentication_required"`
	MinAmount              decimal.Decimal `json:"min_amount"`
	MaxAmount              decimal.Decimal `json:"max_amount"`

	// Newer servers advertise a tagged fee object; older ones advertise
	// flat fee_fixed/fee_percent fields. Either may be absent.
	Fee        *transferconnect.Fee `json:"fee"`
	FeeFixed   *decimal.Decimal     `json:"fee_fixed"`
	FeePercent *decimal.Decimal     `json:"fee_percent"`
}

// ParseInfo decodes a raw /info response into the normalized Info
// structure. It has no side effects and is idempotent: parsing the same
// bytes twice yields structurally equal results.
//
// Fee normalization: a tagged fee object passes through verbatim, flat
// fee_fixed/fee_percent fields become a simple fee, and an asset with
// neither gets a none fee. Unknown fee type tags are preserved here and
// rejected by FetchFinalFee, so a single malformed asset does not poison
// the whole info response.
func ParseInfo(raw []byte) (*transferconnect.Info, error) {
	var wire rawInfo
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.NewProviderError(errors.SERVER_DATA_INVALID, "failed to decode info response JSON", err)
	}

	return &transferconnect.Info{
		Deposit:  normalizeAssets(wire.Deposit),
		Withdraw: normalizeAssets(wire.Withdraw),
	}, nil
}

func normalizeAssets(assets map[string]rawAssetInfo) map[string]transferconnect.AssetInfo {
	out := make(map[string]transferconnect.AssetInfo, len(assets))
	for code, raw := range assets {
		out[code] = transferconnect.AssetInfo{
			Code:                   code,
			Enabled:                raw.Enabled,
			AuthenticationRequired: raw.AuthenticationRequired,
			Fee:                    normalizeFee(raw),
			MinAmount:              raw.MinAmount,
			MaxAmount:              raw.MaxAmount,
		}
	}
	return out
}

func normalizeFee(raw rawAssetInfo) transferconnect.Fee {
	if raw.Fee != nil {
		return *raw.Fee
	}

	if raw.FeeFixed != nil || raw.FeePercent != nil {
		fee := transferconnect.Fee{Type: transferconnect.FeeSimple}
		if raw.FeePercent != nil {
			fee.Percent = *raw.FeePercent
		}
		if raw.FeeFixed != nil {
			fee.Fixed = *raw.FeeFixed
		}
		return fee
	}

	return transferconnect.Fee{Type: transferconnect.FeeNone}
}
