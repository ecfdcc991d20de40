package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CoinDash/internal/logger"
	"CoinDash/internal/model"
)

// NewHTTPClient builds the client shared by the provider adapters.
// proxyURL overrides the environment proxy when set. An invalid proxyURL is
// logged and the environment proxy is kept.
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if proxyURL != "" {
		u, err := ParseProxyURL(proxyURL)
		if err != nil {
			logger.With("collector").WithError(err).Warn("ignoring proxy setting")
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// ParseProxyURL parses a proxy address. A value without a scheme is read as http,
// the way the environment proxy variables are.
func ParseProxyURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", raw)
	}
	return u, nil
}

// getJSON issues a GET bounded by timeout and decodes a 200 response into out.
// Transport and status failures come back as unavailable, decode failures as malformed.
func getJSON(ctx context.Context, client *http.Client, provider, op, endpoint string, header http.Header, timeout time.Duration, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.NewUnavailable(provider, op, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.NewUnavailable(provider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.NewUnavailable(provider, op, fmt.Errorf("status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewMalformed(provider, op, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// parseNumber reads a JSON number or numeric string. ok is false for null, empty,
// unparsable or non-finite values.
func parseNumber(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// nullableNumber is parseNumber with a nil result for missing values.
func nullableNumber(raw json.RawMessage) *float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &v
}
