package marketdata

// Response shapes mirror the upstream market-data provider that the wallet
// service proxies, so only the fields the client reads are declared.

// CoinDetails is the full per-coin record
type CoinDetails struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	Image      CoinImage  `json:"image"`
	MarketData MarketData `json:"market_data"`
}

// CoinImage carries the coin's artwork URLs
type CoinImage struct {
	Thumb string `json:"thumb"`
	Small string `json:"small"`
	Large string `json:"large"`
}

// MarketData contains the market figures the client displays
type MarketData struct {
	CurrentPrice             map[string]float64 `json:"current_price"`
	PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
	MarketCap                map[string]float64 `json:"market_cap"`
}

// CoinMarket is one row of a coin list ordered by market cap
type CoinMarket struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

// TrendingResponse lists coins trending by search volume
type TrendingResponse struct {
	Coins []TrendingCoin `json:"coins"`
}

// TrendingCoin wraps one trending entry
type TrendingCoin struct {
	Item TrendingItem `json:"item"`
}

// TrendingItem is the trending entry payload
type TrendingItem struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Thumb         string  `json:"thumb"`
	MarketCapRank int     `json:"market_cap_rank"`
	PriceBTC      float64 `json:"price_btc"`
}

// MarketChart is a price-history series of [epoch-millis, value] pairs
type MarketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// SearchResponse lists coins matching a keyword
type SearchResponse struct {
	Coins []SearchCoin `json:"coins"`
}

// SearchCoin is one keyword match
type SearchCoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Thumb         string `json:"thumb"`
	MarketCapRank int    `json:"market_cap_rank"`
}
