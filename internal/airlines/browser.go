package airlines

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/dharmasatrya/awardsearch/internal/capture"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/session"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
)

// BrowserConfig parameterizes one airline's browser-driven strategy. The
// lifecycle, capture wiring, and credential minting are shared; only the
// URLs, selectors, and response parsing differ per airline.
type BrowserConfig struct {
	StrategyName string
	Target       string

	// SearchURL builds the results page URL for the criteria.
	SearchURL func(models.SearchCriteria) string

	// APIPath and APIMethod identify the network call the results page is
	// expected to make; its body is the strategy's raw result.
	APIPath   string
	APIMethod string

	// NoResultSelector matches the airline's "no flights found" banner.
	// BlockedSelector matches its anti-bot challenge page.
	NoResultSelector string
	BlockedSelector  string

	// Parse turns the captured API body into offers.
	Parse func(body []byte, criteria models.SearchCriteria) ([]models.Offer, error)

	NavigateTimeout time.Duration
	CaptureTimeout  time.Duration
}

func (c *BrowserConfig) defaults() {
	if c.APIMethod == "" {
		c.APIMethod = "GET"
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 30 * time.Second
	}
}

// BrowserStrategy drives a stealth browser through an airline's search
// page and captures the results API call the page makes. It is the
// expensive last rung of a chain, and the only one that mints fresh
// session credentials for the replay strategies above it.
type BrowserStrategy struct {
	config BrowserConfig
	logger *slog.Logger
}

func NewBrowserStrategy(config BrowserConfig, logger *slog.Logger) *BrowserStrategy {
	config.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserStrategy{
		config: config,
		logger: logger,
	}
}

func (s *BrowserStrategy) Name() string {
	return s.config.StrategyName
}

// Run owns one browser for the duration of the search and releases it on
// every exit path.
func (s *BrowserStrategy) Run(ctx context.Context, criteria models.SearchCriteria, deps strategy.Deps) ([]models.Offer, error) {
	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		browser.Close()
		l.Cleanup()
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}
	defer page.Close()

	recorder := capture.NewRecorder(page, deps.Capture, s.logger)
	recorder.Start()
	defer recorder.Stop()

	searchURL := s.config.SearchURL(criteria)

	// The wait is registered before navigation starts; the results call
	// routinely completes while the page is still loading. Its budget
	// therefore covers both phases.
	type awaited struct {
		body []byte
		err  error
	}
	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()
	waitCh := make(chan awaited, 1)
	go func() {
		body, err := deps.Capture.AwaitMatchingResponse(waitCtx,
			capture.MatchURL(s.config.APIPath, s.config.APIMethod),
			s.config.NavigateTimeout+s.config.CaptureTimeout)
		waitCh <- awaited{body: body, err: err}
	}()

	navCtx, cancel := context.WithTimeout(ctx, s.config.NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(searchURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", searchURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.logger.Warn("page load wait timed out, capture may still succeed",
			"url", searchURL, "err", err)
	}

	captured := <-waitCh
	if captured.err != nil {
		// The page itself often says why nothing arrived: an explicit
		// empty-results banner is a confirmed absence, not a failure.
		if kind := s.classifyPage(page); kind != nil {
			return nil, kind
		}
		return nil, captured.err
	}

	offers, err := s.config.Parse(captured.body, criteria)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return nil, models.ErrNoAvailability
	}

	if err := s.mintCredential(ctx, page, criteria, deps.Sessions); err != nil {
		s.logger.Warn("failed to persist session credential",
			"target", s.config.Target, "err", err)
	}

	return offers, nil
}

// classifyPage inspects the rendered page for a no-result banner or a
// block page. Returns nil when the page says nothing useful.
func (s *BrowserStrategy) classifyPage(page *rod.Page) error {
	html, err := page.HTML()
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	if s.config.NoResultSelector != "" && doc.Find(s.config.NoResultSelector).Length() > 0 {
		return models.ErrNoAvailability
	}
	if s.config.BlockedSelector != "" && doc.Find(s.config.BlockedSelector).Length() > 0 {
		return models.ErrCaptureFailed
	}
	return nil
}

// mintCredential snapshots the cookie jar and user agent of a page that
// just completed a successful search, so the replay strategies can reuse
// it without a browser.
func (s *BrowserStrategy) mintCredential(ctx context.Context, page *rod.Page, criteria models.SearchCriteria, store *session.Store) error {
	cookies, err := page.Cookies(nil)
	if err != nil {
		return err
	}
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}

	userAgent := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	if res, err := page.Eval(`() => navigator.userAgent`); err == nil {
		userAgent = res.Value.Str()
	}

	headers := []session.Header{
		{Name: "User-Agent", Value: userAgent},
		{Name: "Accept", Value: "application/json"},
		{Name: "Cookie", Value: strings.Join(pairs, "; ")},
	}

	payload, err := json.Marshal(map[string]any{
		"origin":        criteria.Origin,
		"destination":   criteria.Destination,
		"departureDate": criteria.DepartureDate,
		"passengers":    criteria.Adults,
	})
	if err != nil {
		return err
	}

	_, err = store.Insert(ctx, s.config.Target, headers, payload)
	return err
}

var _ strategy.Strategy = (*BrowserStrategy)(nil)
