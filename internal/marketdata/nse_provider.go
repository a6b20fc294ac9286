package marketdata

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
	"github.com/tidwall/gjson"
)

// Request headers (the NSE site rejects non-browser clients)
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"
	maxBodyBytes   = 4 << 20
)

// NSEConfig configures an NSEProvider
type NSEConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Seed       int64
	Now        func() time.Time
}

// NSEProvider fetches quotes from the public NSE quote API. The API needs
// the cookies handed out by the home page, so a session is bootstrapped
// before the first request and re-established after every failure.
type NSEProvider struct {
	baseURL    string
	client     *http.Client
	retries    int
	retryDelay time.Duration
	now        func() time.Time

	sessionMu sync.RWMutex
	cookies   []*http.Cookie
	hasSess   bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewNSEProvider creates a new NSE provider
func NewNSEProvider(cfg NSEConfig) *NSEProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &NSEProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     client,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		now:        now,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Name implements Provider
func (p *NSEProvider) Name() string {
	return "nse"
}

// Quote implements Provider
func (p *NSEProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	s := models.NormalizeSymbol(symbol)
	if err := models.ValidateSymbol(s); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/quote-equity?symbol=%s", p.baseURL, url.QueryEscape(s))
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data for %s: %w", s, err)
	}

	quote, err := parseQuote(body, s)
	if err != nil {
		return nil, err
	}
	quote.LastUpdated = p.now().UTC()
	return quote, nil
}

// History implements Provider. NSE exposes no free daily history endpoint,
// so bars are synthesised around the live quote.
func (p *NSEProvider) History(ctx context.Context, symbol string, period string) ([]models.Bar, error) {
	days, err := PeriodDays(period)
	if err != nil {
		return nil, err
	}
	quote, err := p.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return GenerateHistory(p.rng, quote.Price, days, p.now()), nil
}

func parseQuote(body []byte, symbol string) (*models.Quote, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed JSON for %s", ErrInvalidResponse, symbol)
	}
	root := gjson.ParseBytes(body)
	priceInfo := root.Get("priceInfo")
	if !priceInfo.Exists() {
		// NSE answers unknown symbols with an empty object
		if !root.Get("info").Exists() {
			return nil, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("%w: no priceInfo for %s", ErrInvalidResponse, symbol)
	}

	quote := &models.Quote{
		Symbol:        orDefault(root.Get("info.symbol").String(), symbol),
		Name:          orDefault(root.Get("info.companyName").String(), "N/A"),
		Price:         priceInfo.Get("lastPrice").Float(),
		Change:        priceInfo.Get("change").Float(),
		ChangePercent: priceInfo.Get("pChange").Float(),
		Open:          priceInfo.Get("open").Float(),
		High:          priceInfo.Get("intraDayHighLow.max").Float(),
		Low:           priceInfo.Get("intraDayHighLow.min").Float(),
		Volume:        priceInfo.Get("totalTradedVolume").Int(),
		Sector:        orDefault(root.Get("industryInfo.sector").String(), "N/A"),
		Industry:      orDefault(root.Get("industryInfo.industry").String(), "N/A"),
	}
	if err := quote.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, symbol, err)
	}
	return quote, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// get performs a GET with retries, re-initialising the session between attempts
func (p *NSEProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	if !p.sessionReady() {
		p.initSession(ctx)
	}

	var lastErr error
	for attempt := 0; attempt < p.retries; attempt++ {
		if attempt > 0 {
			logger.Warn("NSE request failed, retrying",
				logger.Int("attempt", attempt),
				logger.String("url", endpoint),
				logger.ErrorField(lastErr),
			)
			p.initSession(ctx)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}

		body, status, err := p.do(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		if status == http.StatusNotFound {
			return nil, models.ErrSymbolNotFound
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("http %d", status)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

func (p *NSEProvider) do(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	setBrowserHeaders(req)

	p.sessionMu.RLock()
	for _, c := range p.cookies {
		req.AddCookie(c)
	}
	p.sessionMu.RUnlock()

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (p *NSEProvider) sessionReady() bool {
	p.sessionMu.RLock()
	defer p.sessionMu.RUnlock()
	return p.hasSess
}

// initSession visits the home page and keeps its cookies. Failure is
// logged and the request proceeds without cookies.
func (p *NSEProvider) initSession(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		logger.Error("Failed to initialize NSE session", logger.ErrorField(err))
		return
	}
	setBrowserHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Error("Failed to initialize NSE session", logger.ErrorField(err))
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()

	p.sessionMu.Lock()
	p.cookies = resp.Cookies()
	p.hasSess = true
	p.sessionMu.Unlock()
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Connection", "keep-alive")
}
