package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinDash/internal/model"
)

var krakenNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newKrakenTest(t *testing.T, handler http.HandlerFunc) *KrakenProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p := NewKrakenProvider(server.URL, server.Client(), 2*time.Second)
	p.now = func() time.Time { return krakenNow }
	return p
}

func TestKraken_ListTradingPairs_FiltersByQuote(t *testing.T) {
	t.Parallel()

	p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AssetPairs", r.URL.Path)
		_, _ = w.Write([]byte(`{"error": [], "result": {
			"XXRPZUSD": {"altname": "XRPUSD", "wsname": "XRP/USD", "base": "XXRP", "quote": "ZUSD"},
			"ADAEUR":   {"altname": "ADAEUR", "wsname": "ADA/EUR", "base": "ADA", "quote": "ZEUR"},
			"ADAUSDT":  {"altname": "ADAUSDT", "wsname": "ADA/USDT", "base": "ADA", "quote": "USDT"}
		}}`))
	})

	pairs, err := p.ListTradingPairs(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"XXRP": "XXRPZUSD"}, pairs)
}

func TestKraken_ListTradingPairs_CollisionIsDeterministic(t *testing.T) {
	t.Parallel()

	p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": [], "result": {
			"XXBTZUSD": {"base": "XXBT", "quote": "ZUSD"},
			"XBTUSD":   {"base": "XXBT", "quote": "ZUSD"},
			"XBTAUSD":  {"base": "XXBT", "quote": "ZUSD"},
			"XETHZUSD": {"base": "XETH", "quote": "ZUSD"}
		}}`))
	})

	for i := 0; i < 5; i++ {
		pairs, err := p.ListTradingPairs(context.Background(), "USD")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"XXBT": "XBTUSD", "XETH": "XETHZUSD"}, pairs)
	}
}

func TestIndexByBase_TieBreaksLexically(t *testing.T) {
	t.Parallel()

	got := IndexByBase([]model.TradingPair{
		{PairKey: "BBBUSD", BaseAsset: "X"},
		{PairKey: "AAAUSD", BaseAsset: "X"},
	})
	assert.Equal(t, map[string]string{"X": "AAAUSD"}, got)
}

func TestKraken_TradingPairs(t *testing.T) {
	t.Parallel()

	p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": [], "result": {
			"XXBTZUSD": {"base": "XXBT", "quote": "ZUSD"},
			"DOTUSD":   {"base": "DOT"},
			"DOTEUR":   {"base": "DOT", "quote": "ZEUR"}
		}}`))
	})

	pairs, err := p.TradingPairs(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, []model.TradingPair{
		{PairKey: "DOTUSD", BaseAsset: "DOT", QuoteCurrency: "USD"},
		{PairKey: "XXBTZUSD", BaseAsset: "XXBT", QuoteCurrency: "ZUSD"},
	}, pairs)
}

func TestKraken_ListTradingPairs_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusBadGateway, ``},
		{"api error", http.StatusOK, `{"error": ["EGeneral:Temporary lockout"]}`},
		{"missing result", http.StatusOK, `{"error": []}`},
		{"bad result", http.StatusOK, `{"error": [], "result": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			pairs, err := p.ListTradingPairs(context.Background(), "USD")
			assert.ErrorIs(t, err, model.ErrProviderUnavailable)
			assert.Nil(t, pairs)
		})
	}
}

func TestKraken_FetchOHLC(t *testing.T) {
	t.Parallel()

	p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/OHLC", r.URL.Path)
		assert.Equal(t, "XXBTZUSD", q.Get("pair"))
		assert.Equal(t, "1440", q.Get("interval"))
		assert.Equal(t, strconv.FormatInt(krakenNow.AddDate(-10, 0, 0).Unix(), 10), q.Get("since"))
		_, _ = w.Write([]byte(`{"error": [], "result": {
			"XXBTZUSD": [
				[1704067200, "42000.1", "42500.0", "41800.0", "42300.5", "42150.2", "1234.5", 5678],
				[1703980800, "41000.0", "42100.0", "40900.0", "42000.1", "41500.0", "1000.0", 4000]
			],
			"last": 1704067200
		}}`))
	})

	bars, err := p.FetchOHLC(context.Background(), "XXBTZUSD", 1440)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Unix(1703980800, 0).UTC(), bars[0].Time, "bars are sorted ascending")
	last := bars[1]
	assert.Equal(t, model.OHLCBar{
		Time:       time.Unix(1704067200, 0).UTC(),
		Open:       42000.1,
		High:       42500.0,
		Low:        41800.0,
		Close:      42300.5,
		VWAP:       42150.2,
		Volume:     1234.5,
		TradeCount: 5678,
	}, last)
}

func TestKraken_FetchOHLC_CanonicalKey(t *testing.T) {
	t.Parallel()

	p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": [], "result": {
			"XXBTZUSD": [[1704067200, "1", "1", "1", "1", "1", "1", 1]],
			"last": 1704067200
		}}`))
	})

	bars, err := p.FetchOHLC(context.Background(), "XBTUSD", 1440)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestKraken_FetchOHLC_PropagatesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantMalformed bool
	}{
		{"status", http.StatusServiceUnavailable, `down`, false},
		{"unknown pair", http.StatusOK, `{"error": ["EQuery:Unknown asset pair"]}`, false},
		{"short row", http.StatusOK, `{"error": [], "result": {"P": [[1, "1", "1"]], "last": 1}}`, true},
		{"bad number", http.StatusOK, `{"error": [], "result": {"P": [[1, "x", "1", "1", "1", "1", "1", 1]], "last": 1}}`, true},
		{"no series", http.StatusOK, `{"error": [], "result": {"last": 1}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			bars, err := p.FetchOHLC(context.Background(), "P", 60)
			require.Error(t, err)
			assert.Nil(t, bars)
			assert.ErrorIs(t, err, model.ErrProviderUnavailable)
			assert.Equal(t, tt.wantMalformed, isMalformed(err))
		})
	}
}

func isMalformed(err error) bool {
	pe, ok := err.(*model.ProviderError)
	return ok && pe.Kind == model.ErrMalformedResponse
}

func TestKraken_ResolveFirstTradeDate(t *testing.T) {
	t.Parallel()

	p := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, strconv.Itoa(CoarsestGranularity), r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`{"error": [], "result": {"XXBTZUSD": [
			[1500000000, "1", "1", "1", "1", "1", "1", 1],
			[1380000000, "1", "1", "1", "1", "1", "1", 1]
		], "last": 1500000000}}`))
	})

	first, ok := p.ResolveFirstTradeDate(context.Background(), "XXBTZUSD")
	require.True(t, ok)
	assert.Equal(t, time.Unix(1380000000, 0).UTC(), first)
}

func TestKraken_ResolveFirstTradeDate_Absent(t *testing.T) {
	t.Parallel()

	empty := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": [], "result": {"XXBTZUSD": [], "last": 0}}`))
	})
	_, ok := empty.ResolveFirstTradeDate(context.Background(), "XXBTZUSD")
	assert.False(t, ok)

	failing := newKrakenTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, ok = failing.ResolveFirstTradeDate(context.Background(), "XXBTZUSD")
	assert.False(t, ok)
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	c := NewHTTPClient(7*time.Second, "http://proxy.local:3128")
	assert.Equal(t, 7*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	req, _ := http.NewRequest(http.MethodGet, "https://api.kraken.com", nil)
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:3128", u.Host)
}

func TestNewHTTPClient_InvalidProxyKeepsEnvironment(t *testing.T) {
	t.Parallel()

	_, err := ParseProxyURL("http://[::1")
	require.Error(t, err)

	c := NewHTTPClient(time.Second, "http://[::1")
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, reflect.ValueOf(http.ProxyFromEnvironment).Pointer(), reflect.ValueOf(tr.Proxy).Pointer())
}

func TestParseProxyURL_BareHost(t *testing.T) {
	t.Parallel()

	u, err := ParseProxyURL("proxy.local:3128")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "proxy.local:3128", u.Host)
}
