package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rewired-gh/botia5m/internal/models"
)

// Fallback values used when no endpoint yields a matching market
const (
	FallbackSlug     = "btc-5m-fallback"
	FallbackQuestion = "BTC 5m up/down (fallback)"
	UnknownCloseTime = "unknown"
	defaultSlug      = "btc-5m"
	defaultQuestion  = "BTC 5m up/down"
)

// GammaMarket is the subset of a Gamma API market we read
type GammaMarket struct {
	Slug           string          `json:"slug"`
	Question       string          `json:"question"`
	Description    string          `json:"description"`
	EndDate        string          `json:"endDate"`
	LastTradePrice json.RawMessage `json:"lastTradePrice"` // number, numeric string, "" or null
}

// DiscoverMarket returns the first BTC 5-minute up/down market found across urls.
// It never fails: on total failure the fallback snapshot is returned.
func (c *Client) DiscoverMarket(ctx context.Context, urls []string) models.MarketSnapshot {
	for _, url := range urls {
		body, err := c.getJSON(ctx, url)
		if err != nil {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			continue
		}

		for _, raw := range items {
			var m GammaMarket
			if err := json.Unmarshal(raw, &m); err != nil {
				continue
			}
			if !isBTCFiveMinute(m) {
				continue
			}
			return snapshotFrom(m, raw)
		}
	}

	return FallbackSnapshot()
}

// FallbackSnapshot is the snapshot reported when discovery is unavailable
func FallbackSnapshot() models.MarketSnapshot {
	raw, _ := json.Marshal(map[string]string{"reason": models.ReasonDiscoveryUnavail})
	return models.MarketSnapshot{
		Slug:      FallbackSlug,
		Question:  FallbackQuestion,
		CloseTime: UnknownCloseTime,
		LastPrice: 0,
		Raw:       raw,
		Degraded:  true,
	}
}

func isBTCFiveMinute(m GammaMarket) bool {
	text := strings.ToLower(strings.Join([]string{m.Question, m.Slug, m.Description}, " "))
	if !strings.Contains(text, "btc") {
		return false
	}
	if !strings.Contains(text, "5m") && !strings.Contains(text, "5 min") {
		return false
	}
	return strings.Contains(text, "up") || strings.Contains(text, "down")
}

func snapshotFrom(m GammaMarket, raw json.RawMessage) models.MarketSnapshot {
	snap := models.MarketSnapshot{
		Slug:      m.Slug,
		Question:  m.Question,
		CloseTime: m.EndDate,
		Raw:       raw,
	}
	if snap.Slug == "" {
		snap.Slug = defaultSlug
	}
	if snap.Question == "" {
		snap.Question = defaultQuestion
	}
	if snap.CloseTime == "" {
		snap.CloseTime = UnknownCloseTime
	}
	snap.LastPrice = lenientPrice(m.LastTradePrice)
	return snap
}

// lenientPrice reads a price that may be quoted, empty or missing. Anything
// unusable counts as 0.
func lenientPrice(raw json.RawMessage) float64 {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	p, err := strconv.ParseFloat(text, 64)
	if err != nil || p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}
