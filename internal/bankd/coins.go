package bankd

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// coinSeed is one entry of the canned market. Prices are frozen; the chart
// endpoint synthesizes history around the current price.
type coinSeed struct {
	ID        string
	Symbol    string
	Name      string
	PriceUSD  float64
	MarketCap float64
	Change24h float64
}

var coinSeeds = []coinSeed{
	{"bitcoin", "btc", "Bitcoin", 67421.50, 1327000000000, 1.82},
	{"ethereum", "eth", "Ethereum", 3514.25, 422000000000, -0.64},
	{"tether", "usdt", "Tether", 1.00, 112000000000, 0.01},
	{"binancecoin", "bnb", "BNB", 586.30, 86500000000, 0.95},
	{"solana", "sol", "Solana", 142.78, 66300000000, 3.41},
	{"ripple", "xrp", "XRP", 0.5241, 29100000000, -1.12},
	{"dogecoin", "doge", "Dogecoin", 0.1234, 17800000000, 2.05},
	{"cardano", "ada", "Cardano", 0.4392, 15700000000, -0.33},
	{"tron", "trx", "TRON", 0.1189, 10400000000, 0.58},
	{"polkadot", "dot", "Polkadot", 6.12, 8800000000, -2.14},
}

func seedByID(id string) (coinSeed, bool) {
	for _, c := range coinSeeds {
		if c.ID == id {
			return c, true
		}
	}
	return coinSeed{}, false
}

func imageURL(id string) string {
	return "https://assets.fakecombank.dev/coins/" + id + ".png"
}

func (c coinSeed) details() map[string]interface{} {
	return map[string]interface{}{
		"id":     c.ID,
		"symbol": c.Symbol,
		"name":   c.Name,
		"image": map[string]string{
			"thumb": imageURL(c.ID),
			"small": imageURL(c.ID),
			"large": imageURL(c.ID),
		},
		"market_data": map[string]interface{}{
			"current_price":               map[string]float64{"usd": c.PriceUSD},
			"price_change_percentage_24h": c.Change24h,
			"market_cap":                  map[string]float64{"usd": c.MarketCap},
		},
	}
}

func (c coinSeed) marketRow() map[string]interface{} {
	return map[string]interface{}{
		"id":                          c.ID,
		"symbol":                      c.Symbol,
		"name":                        c.Name,
		"image":                       imageURL(c.ID),
		"current_price":               c.PriceUSD,
		"market_cap":                  c.MarketCap,
		"price_change_percentage_24h": c.Change24h,
	}
}

// GetTopCoins handles GET /coins/top50
func (h *Handlers) GetTopCoins(w http.ResponseWriter, r *http.Request) {
	seeds := make([]coinSeed, len(coinSeeds))
	copy(seeds, coinSeeds)
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].MarketCap > seeds[j].MarketCap })

	rows := make([]map[string]interface{}, 0, len(seeds))
	for _, c := range seeds {
		rows = append(rows, c.marketRow())
	}
	respondJSON(w, rows, http.StatusOK)
}

// GetTrendingCoins handles GET /coins/trending
func (h *Handlers) GetTrendingCoins(w http.ResponseWriter, r *http.Request) {
	items := make([]map[string]interface{}, 0, 5)
	for i, c := range coinSeeds {
		if i == 5 {
			break
		}
		items = append(items, map[string]interface{}{
			"item": map[string]interface{}{
				"id":              c.ID,
				"symbol":          c.Symbol,
				"name":            c.Name,
				"thumb":           imageURL(c.ID),
				"market_cap_rank": i + 1,
				"price_btc":       c.PriceUSD / coinSeeds[0].PriceUSD,
			},
		})
	}
	respondJSON(w, map[string]interface{}{"coins": items}, http.StatusOK)
}

// GetCoinDetails handles GET /coins/details/{id}
func (h *Handlers) GetCoinDetails(w http.ResponseWriter, r *http.Request) {
	coin, ok := seedByID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, "Không tìm thấy loại tiền điện tử", http.StatusNotFound)
		return
	}
	respondJSON(w, coin.details(), http.StatusOK)
}

// GetMarketChart handles GET /coins/{id}/chart. The series is a sine wave
// around the frozen price so charts render with believable movement.
func (h *Handlers) GetMarketChart(w http.ResponseWriter, r *http.Request) {
	coin, ok := seedByID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, "Không tìm thấy loại tiền điện tử", http.StatusNotFound)
		return
	}

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 7
	}

	points := days * 24
	now := time.Now().UTC()
	prices := make([][2]float64, 0, points)
	for i := 0; i < points; i++ {
		at := now.Add(-time.Duration(points-i) * time.Hour)
		wobble := 1 + 0.03*math.Sin(float64(i)/9)
		prices = append(prices, [2]float64{float64(at.UnixMilli()), coin.PriceUSD * wobble})
	}
	respondJSON(w, map[string]interface{}{"prices": prices}, http.StatusOK)
}

// SearchCoins handles GET /coins/search
func (h *Handlers) SearchCoins(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	matches := make([]map[string]interface{}, 0)
	for i, c := range coinSeeds {
		if q == "" || strings.Contains(c.ID, q) || strings.Contains(c.Symbol, q) || strings.Contains(strings.ToLower(c.Name), q) {
			matches = append(matches, map[string]interface{}{
				"id":              c.ID,
				"symbol":          c.Symbol,
				"name":            c.Name,
				"thumb":           imageURL(c.ID),
				"market_cap_rank": i + 1,
			})
		}
	}
	respondJSON(w, map[string]interface{}{"coins": matches}, http.StatusOK)
}
