package toml

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/transfer-connect/sdk-go/core/net"
	"github.com/transfer-connect/sdk-go/errors"
)

const (
	defaultCacheTTL   = 5 * time.Minute
	wellKnownPath     = "/.well-known/stellar.toml"
	maxCurrencyArrays = 100
	maxTomlSize       = 1024 * 1024
)

type cacheEntry struct {
	info      *AnchorInfo
	fetchedAt time.Time
}

// Resolver fetches and caches stellar.toml files by home domain.
type Resolver struct {
	client   *net.Client
	cache    map[string]*cacheEntry
	cacheTTL time.Duration
	mu       sync.RWMutex
}

// NewResolver creates a Resolver backed by the given HTTP client.
func NewResolver(client *net.Client) *Resolver {
	return &Resolver{
		client:   client,
		cache:    make(map[string]*cacheEntry),
		cacheTTL: defaultCacheTTL,
	}
}

// Resolve returns the anchor metadata for a home domain, fetching and
// parsing its stellar.toml unless a fresh cached copy exists. Domains
// resolve over https unless the caller passes an explicit http:// prefix
// (local development servers).
func (r *Resolver) Resolve(ctx context.Context, domain string) (*AnchorInfo, error) {
	r.mu.RLock()
	entry, exists := r.cache[domain]
	r.mu.RUnlock()

	if exists && time.Since(entry.fetchedAt) < r.cacheTTL {
		return entry.info, nil
	}

	url := domain
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	url = strings.TrimSuffix(url, "/") + wellKnownPath

	resp, err := r.client.Get(ctx, url, nil)
	if err != nil {
		return nil, errors.NewCoreError(errors.TOML_FETCH_FAILED, fmt.Sprintf("failed to fetch stellar.toml from %s", domain), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.NewCoreError(errors.TOML_FETCH_FAILED, fmt.Sprintf("stellar.toml fetch returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTomlSize))
	if err != nil {
		return nil, errors.NewCoreError(errors.TOML_FETCH_FAILED, "failed to read stellar.toml response", err)
	}

	info, err := r.parse(string(body))
	if err != nil {
		return nil, err
	}

	if info.SigningKey != "" && !strings.HasPrefix(info.SigningKey, "G") {
		return nil, errors.NewCoreError(errors.TOML_INVALID, fmt.Sprintf("invalid SIGNING_KEY format: %s", info.SigningKey), nil)
	}

	r.mu.Lock()
	r.cache[domain] = &cacheEntry{
		info:      info,
		fetchedAt: time.Now(),
	}
	r.mu.Unlock()

	return info, nil
}

// parse extracts the fields this SDK needs from stellar.toml content.
// It is a line-oriented scan, not a full TOML parser; quoted scalar values
// and [[CURRENCIES]] tables are all the SEP-1 fields read here use.
func (r *Resolver) parse(content string) (*AnchorInfo, error) {
	info := &AnchorInfo{}
	lines := strings.Split(content, "\n")

	var inCurrencies bool
	var currentCurrency *CurrencyInfo

	flush := func() {
		if currentCurrency != nil && currentCurrency.Code != "" {
			info.Currencies = append(info.Currencies, *currentCurrency)
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[[CURRENCIES]]") {
			flush()
			if len(info.Currencies) >= maxCurrencyArrays {
				break
			}
			inCurrencies = true
			currentCurrency = &CurrencyInfo{}
			continue
		}

		if strings.HasPrefix(line, "[") {
			flush()
			inCurrencies = false
			currentCurrency = nil
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, "\"'")

		if inCurrencies && currentCurrency != nil {
			switch key {
			case "code":
				currentCurrency.Code = value
			case "issuer":
				currentCurrency.Issuer = value
			case "status":
				currentCurrency.Status = value
			case "display_decimals":
				fmt.Sscanf(value, "%d", &currentCurrency.DisplayDecimals)
			case "anchor_asset_type":
				currentCurrency.AnchorAssetType = value
			case "description":
				currentCurrency.Description = value
			}
		} else {
			switch key {
			case "NETWORK_PASSPHRASE":
				info.NetworkPassphrase = value
			case "SIGNING_KEY":
				info.SigningKey = value
			case "WEB_AUTH_ENDPOINT":
				info.WebAuthEndpoint = value
			case "TRANSFER_SERVER":
				info.TransferServer = value
			case "TRANSFER_SERVER_SEP0024":
				info.TransferServerSep24 = value
			}
		}
	}

	flush()

	return info, nil
}
