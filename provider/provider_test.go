package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transferconnect "github.com/transfer-connect/sdk-go"
	"github.com/transfer-connect/sdk-go/errors"
	"github.com/transfer-connect/sdk-go/watcher"
)

const transactionsFixture = `{
	"transactions": [
		{"id": "d1", "kind": "deposit", "status": "completed"},
		{"id": "w1", "kind": "withdrawal", "status": "pending_external"},
		{"id": "d2", "kind": "deposit", "status": "pending_anchor"}
	]
}`

func TestNewProviderValidation(t *testing.T) {
	cases := []struct {
		name           string
		transferServer string
		account        string
	}{
		{"empty transfer server", "", testAccount},
		{"empty account", "https://transfer.example.com", ""},
		{"malformed account", "https://transfer.example.com", "not-an-address"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDepositProvider(tc.transferServer, tc.account)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.VALIDATION_FAILED))

			_, err = NewWithdrawProvider(tc.transferServer, tc.account)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.VALIDATION_FAILED))
		})
	}
}

func TestFetchInfoReplacesPreviousInfo(t *testing.T) {
	second := `{"deposit": {"EUR": {"enabled": true}}, "withdraw": {}}`
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/info", r.URL.Path)
		calls++
		if calls == 1 {
			w.Write([]byte(infoFixture))
			return
		}
		w.Write([]byte(second))
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)

	info, err := p.FetchInfo(context.Background())
	require.NoError(t, err)
	_, ok := info.Asset(transferconnect.DirectionDeposit, "USDC")
	assert.True(t, ok)

	info, err = p.FetchInfo(context.Background())
	require.NoError(t, err)
	_, ok = info.Asset(transferconnect.DirectionDeposit, "USDC")
	assert.False(t, ok, "refetch must replace info, not merge")
	_, ok = info.Asset(transferconnect.DirectionDeposit, "EUR")
	assert.True(t, ok)
}

func TestFetchSupportedAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(infoFixture))
	}))
	defer server.Close()

	dep, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)
	wit, err := NewWithdrawProvider(server.URL, testAccount)
	require.NoError(t, err)

	depositAssets, err := dep.FetchSupportedAssets(context.Background())
	require.NoError(t, err)
	assert.Len(t, depositAssets, 5)

	withdrawAssets, err := wit.FetchSupportedAssets(context.Background())
	require.NoError(t, err)
	assert.Len(t, withdrawAssets, 1)
}

func TestFetchTransactionsFiltersByDirection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "XLM", q.Get("asset_code"))
		assert.Equal(t, testAccount, q.Get("account"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(transactionsFixture))
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)
	seedInfo(t, &p.TransferProvider)

	txs, err := p.FetchTransactions(context.Background(), transferconnect.TransactionsRequest{AssetCode: "XLM"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, transferconnect.KindDeposit, tx.Kind)
	}
}

func TestFetchTransactionsShowAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("show_all_transactions"))
		w.Write([]byte(transactionsFixture))
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)
	seedInfo(t, &p.TransferProvider)

	txs, err := p.FetchTransactions(context.Background(), transferconnect.TransactionsRequest{
		AssetCode:           "XLM",
		ShowAllTransactions: true,
	})
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestFetchTransactionsWithdrawDirection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(transactionsFixture))
	}))
	defer server.Close()

	p, err := NewWithdrawProvider(server.URL, testAccount)
	require.NoError(t, err)
	seedInfo(t, &p.TransferProvider)

	txs, err := p.FetchTransactions(context.Background(), transferconnect.TransactionsRequest{AssetCode: "USDC"})
	// USDC withdraw requires auth.
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.AUTH_REQUIRED))

	p.SetAuthToken("jwt-token")
	txs, err = p.FetchTransactions(context.Background(), transferconnect.TransactionsRequest{AssetCode: "USDC"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, transferconnect.KindWithdrawal, txs[0].Kind)
}

func TestFetchTransactionsAttachesBearerWhenGated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		w.Write([]byte(transactionsFixture))
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)
	seedInfo(t, &p.TransferProvider)
	p.SetAuthToken("jwt-token")

	_, err = p.FetchTransactions(context.Background(), transferconnect.TransactionsRequest{AssetCode: "USDC"})
	require.NoError(t, err)
}

func TestFetchTransactionsGateRunsBeforeNetwork(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)

	_, err = p.FetchTransactions(context.Background(), transferconnect.TransactionsRequest{AssetCode: "XLM"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.INFO_NOT_FETCHED))
	assert.Zero(t, requests)
}

func TestFetchTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction", r.URL.Path)
		assert.Equal(t, "82fhs729f63dh0v4", r.URL.Query().Get("id"))
		w.Write([]byte(`{"transaction": {"id": "82fhs729f63dh0v4", "kind": "deposit", "status": "pending_external"}}`))
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)
	seedInfo(t, &p.TransferProvider)

	tx, err := p.FetchTransaction(context.Background(), transferconnect.TransactionRequest{
		AssetCode: "XLM",
		ID:        "82fhs729f63dh0v4",
	})
	require.NoError(t, err)
	assert.Equal(t, "82fhs729f63dh0v4", tx.ID)
	assert.Equal(t, transferconnect.StatusPendingExternal, tx.Status)
	assert.True(t, tx.Status.IsPending())
}

func TestFetchTransactionRequiresIdentifier(t *testing.T) {
	p := newTestDeposit(t)
	seedInfo(t, &p.TransferProvider)

	_, err := p.FetchTransaction(context.Background(), transferconnect.TransactionRequest{AssetCode: "XLM"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.VALIDATION_FAILED))
}

func TestWatchTransactionCallSiteInErrors(t *testing.T) {
	// The watcher's fetch runs the same gate but reports its own call site,
	// and gate failures are funneled to OnError.
	p := newTestDeposit(t)

	errCh := make(chan error, 1)
	h := p.WatchTransaction(context.Background(), transferconnect.TransactionRequest{
		AssetCode: "XLM",
		ID:        "tx1",
	}, watcher.Callbacks{
		OnError: func(tx *transferconnect.Transaction, err error) {
			errCh <- err
		},
	}, watcher.WithPollInterval(time.Millisecond))
	defer h.Cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.INFO_NOT_FETCHED))
		assert.Contains(t, err.Error(), "watchTransaction")
	case <-time.After(2 * time.Second):
		t.Fatal("watch error callback did not fire")
	}
}

func TestWatchTransactionEndToEnd(t *testing.T) {
	statuses := []string{"pending_anchor", "pending_anchor", "completed"}
	var call int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := statuses[call]
		if call < len(statuses)-1 {
			call++
		}
		w.Write([]byte(`{"transaction": {"id": "tx1", "kind": "deposit", "status": "` + status + `"}}`))
	}))
	defer server.Close()

	p, err := NewDepositProvider(server.URL, testAccount)
	require.NoError(t, err)
	seedInfo(t, &p.TransferProvider)

	var messages int
	success := make(chan *transferconnect.Transaction, 1)
	h := p.WatchTransaction(context.Background(), transferconnect.TransactionRequest{
		AssetCode: "XLM",
		ID:        "tx1",
	}, watcher.Callbacks{
		OnMessage: func(*transferconnect.Transaction) { messages++ },
		OnSuccess: func(tx *transferconnect.Transaction) { success <- tx },
		OnError: func(tx *transferconnect.Transaction, err error) {
			t.Errorf("unexpected error callback: tx=%v err=%v", tx, err)
		},
	}, watcher.WithPollInterval(time.Millisecond))

	select {
	case tx := <-success:
		assert.Equal(t, transferconnect.StatusCompleted, tx.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not complete")
	}
	<-h.Done()
	assert.Equal(t, 2, messages)
}
