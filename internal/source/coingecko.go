package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sony/gobreaker"
)

// CryptoItem is the staged shape of one coin quote.
type CryptoItem struct {
	Coin         string  `json:"coin"`
	PriceUSD     float64 `json:"price_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
}

// CoinGeckoSource fetches spot prices from the CoinGecko simple-price
// endpoint, which needs no API key.
type CoinGeckoSource struct {
	name    string
	baseURL string
	coins   []string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewCoinGeckoSource(client *http.Client, coins []string) *CoinGeckoSource {
	return &CoinGeckoSource{
		name:    "coingecko",
		baseURL: "https://api.coingecko.com/api/v3/simple/price",
		coins:   coins,
		client:  client,
		circuit: newBreaker("coingecko"),
	}
}

func (s *CoinGeckoSource) Name() string {
	return s.name
}

func (s *CoinGeckoSource) Fetch(ctx context.Context) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("ids", strings.Join(s.coins, ","))
	values.Set("vs_currencies", "usd")
	values.Set("include_24hr_change", "true")
	values.Set("include_market_cap", "true")

	req, err := http.NewRequest(http.MethodGet, s.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := doRequest(ctx, s.client, s.circuit, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	items := make([]CryptoItem, 0, len(payload))
	for coin, fields := range payload {
		items = append(items, CryptoItem{
			Coin:         coin,
			PriceUSD:     fields["usd"],
			MarketCapUSD: fields["usd_market_cap"],
			Change24hPct: fields["usd_24h_change"],
		})
	}

	// The upstream response is a map; order by coin id so staged payloads
	// are deterministic for the same data.
	sort.Slice(items, func(i, j int) bool { return items[i].Coin < items[j].Coin })

	return json.Marshal(items)
}
