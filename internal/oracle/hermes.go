package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"registrar/pkg/platform/sentinel"
)

const (
	defaultHermesTimeout = 5 * time.Second
	maxHermesBody        = 1 << 20
)

// HermesFeed reads from a Pyth Hermes compatible HTTP endpoint.
type HermesFeed struct {
	baseURL string
	client  *http.Client
}

// HermesOption configures a HermesFeed.
type HermesOption func(*HermesFeed)

// WithHTTPClient overrides the default client.
func WithHTTPClient(c *http.Client) HermesOption {
	return func(h *HermesFeed) {
		if c != nil {
			h.client = c
		}
	}
}

// NewHermesFeed builds a client for baseURL, e.g. https://hermes.pyth.network.
func NewHermesFeed(baseURL string, opts ...HermesOption) *HermesFeed {
	h := &HermesFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultHermesTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HermesFeed) Latest(ctx context.Context, feedID string) (PriceReading, error) {
	q := url.Values{}
	q.Add("ids[]", feedID)
	q.Set("parsed", "true")
	endpoint := h.baseURL + "/v2/updates/price/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PriceReading{}, fmt.Errorf("build hermes request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return PriceReading{}, fmt.Errorf("hermes request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHermesBody))
	if err != nil {
		return PriceReading{}, fmt.Errorf("read hermes response: %w: %w", sentinel.ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return PriceReading{}, fmt.Errorf("feed %s: %w", feedID, sentinel.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return PriceReading{}, fmt.Errorf("hermes status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return parseHermes(body, feedID)
}

// parseHermes extracts the reading for feedID from a price update payload.
// Hermes encodes price and conf as decimal strings and may omit the 0x prefix
// on ids.
func parseHermes(body []byte, feedID string) (PriceReading, error) {
	if !gjson.ValidBytes(body) {
		return PriceReading{}, fmt.Errorf("hermes response is not JSON: %w", sentinel.ErrUnavailable)
	}
	want := strings.TrimPrefix(strings.ToLower(feedID), "0x")

	var entry gjson.Result
	gjson.GetBytes(body, "parsed").ForEach(func(_, item gjson.Result) bool {
		if strings.TrimPrefix(strings.ToLower(item.Get("id").String()), "0x") == want {
			entry = item
			return false
		}
		return true
	})
	if !entry.Exists() {
		return PriceReading{}, fmt.Errorf("feed %s missing from response: %w", feedID, sentinel.ErrNotFound)
	}

	price, err := strconv.ParseInt(entry.Get("price.price").String(), 10, 64)
	if err != nil {
		return PriceReading{}, fmt.Errorf("parse price: %w", err)
	}
	conf, err := strconv.ParseUint(entry.Get("price.conf").String(), 10, 64)
	if err != nil {
		return PriceReading{}, fmt.Errorf("parse conf: %w", err)
	}
	return PriceReading{
		FeedID:      feedID,
		Price:       price,
		Conf:        conf,
		Exponent:    int32(entry.Get("price.expo").Int()),
		PublishTime: entry.Get("price.publish_time").Int(),
	}, nil
}
