package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"options-income-screener/internal/screener/config"
	"options-income-screener/internal/screener/dto"
	"options-income-screener/pkg/common"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/redis"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MarketDataRepository defines the interface for market data operations.
// Fetch methods return nil with no error when the provider has no data.
type MarketDataRepository interface {
	GetPriceHistory(ctx context.Context, symbol string, lookbackDays int) (*dto.PriceSeries, error)
	GetOptionChain(ctx context.Context, symbol string) (*dto.OptionChain, error)
	GetSpotPrice(ctx context.Context, symbol string) (float64, error)
	GetIVHistory(ctx context.Context, symbol string, lookbackDays int) ([]float64, error)
	GetEarningsDate(ctx context.Context, symbol string) (*time.Time, error)
	GetDividendYield(ctx context.Context, symbol string) (*float64, error)
	APICallCount() int64
	ResetAPICallCount()
}

// NewMarketDataRepository creates a Polygon-style REST market data repository
// with request pacing, in-process TTL caching and a Redis last-price mirror.
func NewMarketDataRepository(cfg *config.Config, log *logger.Logger, redisClient *redis.Client, earnings EarningsCalendarRepository) MarketDataRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Polygon.MaxRequestPerMinute)
	timeout := cfg.Polygon.RequestTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	cacheTTL := cfg.Polygon.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}
	return &marketDataRepository{
		cfg:            cfg,
		log:            log,
		redis:          redisClient,
		earnings:       earnings,
		httpClient:     &http.Client{Timeout: timeout},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		cache:          gocache.New(cacheTTL, 2*cacheTTL),
	}
}

type marketDataRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	redis          *redis.Client
	earnings       EarningsCalendarRepository
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	cache          *gocache.Cache
	apiCalls       atomic.Int64
}

type aggsResponse struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		Timestamp int64   `json:"t"`
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
	ResultsCount int `json:"resultsCount"`
}

type chainResponse struct {
	Results []struct {
		Details struct {
			Ticker         string  `json:"ticker"`
			ContractType   string  `json:"contract_type"`
			StrikePrice    float64 `json:"strike_price"`
			ExpirationDate string  `json:"expiration_date"`
		} `json:"details"`
		LastQuote struct {
			Bid float64 `json:"bid"`
			Ask float64 `json:"ask"`
		} `json:"last_quote"`
		LastTrade struct {
			Price float64 `json:"price"`
		} `json:"last_trade"`
		Greeks struct {
			Delta float64 `json:"delta"`
			Gamma float64 `json:"gamma"`
			Theta float64 `json:"theta"`
			Vega  float64 `json:"vega"`
		} `json:"greeks"`
		ImpliedVolatility float64 `json:"implied_volatility"`
		OpenInterest      int64   `json:"open_interest"`
		Day               struct {
			Volume int64 `json:"volume"`
		} `json:"day"`
		UnderlyingAsset struct {
			Price float64 `json:"price"`
		} `json:"underlying_asset"`
	} `json:"results"`
}

type dividendsResponse struct {
	Results []struct {
		CashAmount float64 `json:"cash_amount"`
		Frequency  int     `json:"frequency"`
	} `json:"results"`
}

// GetPriceHistory fetches daily bars for a symbol, ascending by date.
func (r *marketDataRepository) GetPriceHistory(ctx context.Context, symbol string, lookbackDays int) (*dto.PriceSeries, error) {
	cacheKey := fmt.Sprintf("prices:%s:%d", symbol, lookbackDays)
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.(*dto.PriceSeries), nil
	}

	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays)
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=5000&apiKey=%s",
		r.cfg.Polygon.BaseURL, symbol, from.Format("2006-01-02"), to.Format("2006-01-02"), r.cfg.Polygon.APIKey)

	body, err := r.sendRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history for %s: %w", symbol, err)
	}

	var resp aggsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode price history for %s: %w", symbol, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	series := &dto.PriceSeries{Symbol: symbol, Bars: make([]dto.PriceBar, 0, len(resp.Results))}
	for _, bar := range resp.Results {
		series.Bars = append(series.Bars, dto.PriceBar{
			Date:   time.UnixMilli(bar.Timestamp),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}

	r.cache.Set(cacheKey, series, gocache.DefaultExpiration)
	r.mirrorLastPrice(ctx, symbol, series.LastClose())
	return series, nil
}

// GetOptionChain fetches the full option chain snapshot for a symbol.
func (r *marketDataRepository) GetOptionChain(ctx context.Context, symbol string) (*dto.OptionChain, error) {
	cacheKey := fmt.Sprintf("chain:%s", symbol)
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.(*dto.OptionChain), nil
	}

	url := fmt.Sprintf("%s/v3/snapshot/options/%s?limit=250&apiKey=%s",
		r.cfg.Polygon.BaseURL, symbol, r.cfg.Polygon.APIKey)

	body, err := r.sendRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option chain for %s: %w", symbol, err)
	}

	var resp chainResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode option chain for %s: %w", symbol, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	chain := &dto.OptionChain{Underlying: symbol, AsOf: time.Now()}
	for _, c := range resp.Results {
		expiry, err := time.Parse("2006-01-02", c.Details.ExpirationDate)
		if err != nil {
			continue
		}
		side := dto.OptionSideCall
		if c.Details.ContractType == "put" {
			side = dto.OptionSidePut
		}
		if chain.SpotPrice == 0 && c.UnderlyingAsset.Price > 0 {
			chain.SpotPrice = c.UnderlyingAsset.Price
		}
		chain.Contracts = append(chain.Contracts, dto.OptionContract{
			Symbol:       c.Details.Ticker,
			Underlying:   symbol,
			Side:         side,
			Strike:       c.Details.StrikePrice,
			Expiry:       expiry,
			Bid:          c.LastQuote.Bid,
			Ask:          c.LastQuote.Ask,
			LastPrice:    c.LastTrade.Price,
			Delta:        c.Greeks.Delta,
			Gamma:        c.Greeks.Gamma,
			Theta:        c.Greeks.Theta,
			Vega:         c.Greeks.Vega,
			IV:           c.ImpliedVolatility,
			OpenInterest: c.OpenInterest,
			Volume:       c.Day.Volume,
		})
	}

	r.cache.Set(cacheKey, chain, gocache.DefaultExpiration)
	return chain, nil
}

// GetSpotPrice returns the latest close for a symbol, preferring the Redis mirror.
func (r *marketDataRepository) GetSpotPrice(ctx context.Context, symbol string) (float64, error) {
	if r.redis != nil {
		key := fmt.Sprintf(common.RedisKeyLastSpotPrice, symbol)
		if val, err := r.redis.Get(ctx, key).Result(); err == nil {
			if price, perr := strconv.ParseFloat(val, 64); perr == nil && price > 0 {
				return price, nil
			}
		}
	}

	series, err := r.GetPriceHistory(ctx, symbol, 7)
	if err != nil {
		return 0, err
	}
	if series == nil {
		return 0, nil
	}
	return series.LastClose(), nil
}

// GetIVHistory reconstructs a daily ATM IV history proxy from close-to-close
// volatility when the provider exposes no direct IV history endpoint.
func (r *marketDataRepository) GetIVHistory(ctx context.Context, symbol string, lookbackDays int) ([]float64, error) {
	series, err := r.GetPriceHistory(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	if series == nil || len(series.Bars) < 22 {
		return nil, nil
	}

	closes := series.Closes()
	var history []float64
	for i := 21; i < len(closes); i++ {
		window := closes[i-21 : i+1]
		returns := make([]float64, 0, 21)
		for j := 1; j < len(window); j++ {
			if window[j-1] != 0 {
				returns = append(returns, window[j]/window[j-1]-1)
			}
		}
		if len(returns) > 1 {
			history = append(history, annualizedStdev(returns))
		}
	}
	return history, nil
}

// GetEarningsDate returns the next earnings date, delegating to the calendar source.
func (r *marketDataRepository) GetEarningsDate(ctx context.Context, symbol string) (*time.Time, error) {
	cacheKey := fmt.Sprintf("earnings:%s", symbol)
	if cached, ok := r.cache.Get(cacheKey); ok {
		date, _ := cached.(*time.Time)
		return date, nil
	}

	date, err := r.earnings.GetNextEarningsDate(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.cache.Set(cacheKey, date, gocache.DefaultExpiration)
	return date, nil
}

// GetDividendYield estimates the trailing annual dividend yield, nil when the
// symbol pays no dividend.
func (r *marketDataRepository) GetDividendYield(ctx context.Context, symbol string) (*float64, error) {
	url := fmt.Sprintf("%s/v3/reference/dividends?ticker=%s&limit=1&apiKey=%s",
		r.cfg.Polygon.BaseURL, symbol, r.cfg.Polygon.APIKey)

	body, err := r.sendRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dividends for %s: %w", symbol, err)
	}

	var resp dividendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode dividends for %s: %w", symbol, err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Frequency == 0 {
		return nil, nil
	}

	spot, err := r.GetSpotPrice(ctx, symbol)
	if err != nil || spot <= 0 {
		return nil, err
	}

	annual := resp.Results[0].CashAmount * float64(resp.Results[0].Frequency)
	yield := annual / spot
	return &yield, nil
}

// APICallCount returns the number of provider requests made since the last reset.
func (r *marketDataRepository) APICallCount() int64 {
	return r.apiCalls.Load()
}

// ResetAPICallCount zeroes the per-run request counter.
func (r *marketDataRepository) ResetAPICallCount() {
	r.apiCalls.Store(0)
}

func (r *marketDataRepository) sendRequest(ctx context.Context, url string) ([]byte, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	r.apiCalls.Add(1)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (r *marketDataRepository) mirrorLastPrice(ctx context.Context, symbol string, price float64) {
	if r.redis == nil || price <= 0 {
		return
	}
	key := fmt.Sprintf(common.RedisKeyLastSpotPrice, symbol)
	if err := r.redis.Set(ctx, key, strconv.FormatFloat(price, 'f', 4, 64), 24*time.Hour).Err(); err != nil {
		r.log.DebugContext(ctx, "Failed to mirror last price to redis",
			logger.StringField("symbol", symbol), logger.ErrorField(err))
	}
}

func annualizedStdev(returns []float64) float64 {
	m := 0.0
	for _, v := range returns {
		m += v
	}
	m /= float64(len(returns))
	var ss float64
	for _, v := range returns {
		d := v - m
		ss += d * d
	}
	variance := ss / float64(len(returns)-1)
	return math.Sqrt(variance) * math.Sqrt(252)
}
