package provider

import (
	"fmt"
	"strings"

	"github.com/transfer-connect/sdk-go/errors"
)

// CheckAuth reports whether the asset requires a bearer token on requests.
// It fails before any network call when the asset code is empty, info has
// not been fetched, the asset is unsupported for this direction, or the
// asset requires authentication and no token is set.
func (p *TransferProvider) CheckAuth(assetCode string) (bool, error) {
	return p.checkAuth("checkAuth", assetCode)
}

// checkAuth is the precondition gate run by every per-asset operation.
// callSite names the operation being gated and only flavors error messages;
// the checks themselves are identical everywhere.
func (p *TransferProvider) checkAuth(callSite, assetCode string) (bool, error) {
	if strings.TrimSpace(assetCode) == "" {
		return false, errors.NewProviderError(
			errors.VALIDATION_FAILED,
			fmt.Sprintf("%s: asset code is required", callSite),
			nil,
		)
	}

	info := p.currentInfo()
	if info == nil {
		return false, errors.NewProviderError(
			errors.INFO_NOT_FETCHED,
			fmt.Sprintf("%s: transfer server info has not been fetched; call FetchInfo first", callSite),
			nil,
		)
	}

	asset, ok := info.Asset(p.direction, assetCode)
	if !ok {
		return false, errors.NewProviderError(
			errors.ASSET_UNSUPPORTED,
			fmt.Sprintf("%s: asset %s is not supported for %s", callSite, assetCode, p.direction),
			nil,
		).WithContext("asset_code", assetCode)
	}

	if !asset.AuthenticationRequired {
		return false, nil
	}

	if p.currentAuthToken() == "" {
		return false, errors.NewProviderError(
			errors.AUTH_REQUIRED,
			fmt.Sprintf("%s: asset %s requires authentication and no auth token is set", callSite, assetCode),
			nil,
		).WithContext("asset_code", assetCode)
	}

	return true, nil
}
