package webauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/stellar/go/keypair"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/errors"
)

// Session is the result of a successful login. Its Token is the bearer
// token to install on a provider via SetAuthToken.
type Session struct {
	// HomeDomain is the anchor's domain (e.g., "testanchor.stellar.org").
	HomeDomain string

	// Account is the Stellar account address (G...) that was authenticated.
	Account string

	// Token is the authentication token for Authorization: Bearer headers.
	Token string

	// ObtainedAt records when the token was issued to this client. Token
	// lifetime is anchor policy; callers decide when to re-authenticate.
	ObtainedAt time.Time
}

// Login authenticates with an anchor using Stellar Web Authentication:
//
//  1. Discovers the anchor's WEB_AUTH_ENDPOINT via stellar.toml
//  2. Fetches an authentication challenge for the account
//  3. Signs the challenge transaction using the provided signer
//  4. Submits the signed transaction back to the anchor
//  5. Returns the issued token in a Session
func (c *Client) Login(ctx context.Context, account, homeDomain string, signer transferconnect.Signer) (*Session, error) {
	if _, err := keypair.ParseAddress(account); err != nil {
		return nil, errors.NewWebAuthError(errors.CHALLENGE_INVALID, fmt.Sprintf("invalid account address %q", account), err)
	}

	anchorInfo, err := c.tomlResolver.Resolve(ctx, homeDomain)
	if err != nil {
		return nil, errors.NewWebAuthError(
			errors.AUTH_UNSUPPORTED,
			fmt.Sprintf("failed to resolve stellar.toml for %s", homeDomain),
			err,
		)
	}

	if anchorInfo.WebAuthEndpoint == "" {
		return nil, errors.NewWebAuthError(
			errors.AUTH_UNSUPPORTED,
			fmt.Sprintf("anchor %s does not provide WEB_AUTH_ENDPOINT in stellar.toml", homeDomain),
			nil,
		)
	}

	challengeXDR, err := c.fetchChallenge(ctx, anchorInfo.WebAuthEndpoint, account)
	if err != nil {
		return nil, err
	}

	signedXDR, err := signer.SignTransaction(ctx, challengeXDR, c.networkPassphrase)
	if err != nil {
		return nil, errors.NewWebAuthError(errors.SIGNER_ERROR, "failed to sign challenge transaction", err)
	}

	token, err := c.submitChallenge(ctx, anchorInfo.WebAuthEndpoint, signedXDR)
	if err != nil {
		return nil, err
	}

	return &Session{
		HomeDomain: homeDomain,
		Account:    account,
		Token:      token,
		ObtainedAt: time.Now(),
	}, nil
}

func (c *Client) fetchChallenge(ctx context.Context, endpoint, account string) (string, error) {
	challengeURL := fmt.Sprintf("%s?account=%s", endpoint, account)
	resp, err := c.httpClient.Get(ctx, challengeURL, nil)
	if err != nil {
		return "", errors.NewWebAuthError(
			errors.CHALLENGE_FETCH_FAILED,
			fmt.Sprintf("failed to fetch challenge from %s", challengeURL),
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.NewWebAuthError(
			errors.CHALLENGE_FETCH_FAILED,
			fmt.Sprintf("challenge request returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var challengeResp struct {
		Transaction       string `json:"transaction"`
		NetworkPassphrase string `json:"network_passphrase"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&challengeResp); err != nil {
		return "", errors.NewWebAuthError(errors.CHALLENGE_INVALID, "failed to decode challenge response JSON", err)
	}

	if challengeResp.NetworkPassphrase != "" && challengeResp.NetworkPassphrase != c.networkPassphrase {
		return "", errors.NewWebAuthError(
			errors.CHALLENGE_INVALID,
			fmt.Sprintf("network passphrase mismatch: expected %s, got %s", c.networkPassphrase, challengeResp.NetworkPassphrase),
			nil,
		)
	}

	return challengeResp.Transaction, nil
}

func (c *Client) submitChallenge(ctx context.Context, endpoint, signedXDR string) (string, error) {
	submitBody, err := json.Marshal(map[string]string{"transaction": signedXDR})
	if err != nil {
		return "", errors.NewWebAuthError(errors.AUTH_REJECTED, "failed to marshal submit payload", err)
	}

	resp, err := c.httpClient.Post(ctx, endpoint, bytes.NewReader(submitBody), nil)
	if err != nil {
		return "", errors.NewWebAuthError(errors.AUTH_REJECTED, "failed to submit signed challenge", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.NewWebAuthError(
			errors.AUTH_REJECTED,
			fmt.Sprintf("auth submission returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errors.NewWebAuthError(errors.AUTH_REJECTED, "failed to decode token response JSON", err)
	}
	if tokenResp.Token == "" {
		return "", errors.NewWebAuthError(errors.AUTH_REJECTED, "anchor returned an empty token", nil)
	}

	return tokenResp.Token, nil
}
