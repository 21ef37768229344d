package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// SourceUnavailable labels a fetch where every endpoint failed
const SourceUnavailable = "unavailable"

// FetchReferencePrice walks urls in order and returns the first usable spot
// price with a label for the source that produced it. When every endpoint fails
// the price is nil and the label is SourceUnavailable.
func (c *Client) FetchReferencePrice(ctx context.Context, urls []string) (*float64, string) {
	for _, u := range urls {
		body, err := c.getJSON(ctx, u)
		if err != nil {
			continue
		}
		label := sourceLabel(u)
		price, err := parsePrice(label, body)
		if err != nil {
			continue
		}
		return &price, label
	}
	return nil, SourceUnavailable
}

// sourceLabel names a source by its host
func sourceLabel(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "binance"):
		return "binance"
	case strings.Contains(lower, "coinbase"):
		return "coinbase"
	}
	if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return raw
}

// binanceTicker is {"symbol":"BTCUSDT","price":"67000.01"}
type binanceTicker struct {
	Price json.Number `json:"price"`
}

// coinbaseSpot is {"data":{"base":"BTC","currency":"USD","amount":"67000.01"}}
type coinbaseSpot struct {
	Data struct {
		Amount json.Number `json:"amount"`
	} `json:"data"`
}

func parsePrice(label string, body []byte) (float64, error) {
	switch label {
	case "binance":
		return parseBinance(body)
	case "coinbase":
		return parseCoinbase(body)
	}
	if p, err := parseBinance(body); err == nil {
		return p, nil
	}
	return parseCoinbase(body)
}

func parseBinance(body []byte) (float64, error) {
	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return 0, err
	}
	return positive(t.Price)
}

func parseCoinbase(body []byte) (float64, error) {
	var s coinbaseSpot
	if err := json.Unmarshal(body, &s); err != nil {
		return 0, err
	}
	return positive(s.Data.Amount)
}

func positive(n json.Number) (float64, error) {
	if n == "" {
		return 0, errors.New("missing price")
	}
	p, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, errors.New("price must be positive")
	}
	return p, nil
}
