package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/supplier-scraper/internal/supplier"
)

const maxDetachedAttempts = 3

// ErrPageDetached marks the transient class of failures where the page or
// its frame went away mid-render.
var ErrPageDetached = errors.New("page detached")

// contentSelectors is the generic "something rendered" wait.
const contentSelectors = "h1, .product-name, img, body"

type Options struct {
	Headless bool
	// AllowHeadful lets a supplier profile request a visible browser.
	AllowHeadful      bool
	ExecutablePath    string
	NavigationTimeout time.Duration
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	Locale            string
	TimezoneID        string
	ExtraHeaders      map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:          true,
		NavigationTimeout: 45 * time.Second,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		Locale:            "fr-FR",
		TimezoneID:        "Europe/Paris",
		ExtraHeaders: map[string]string{
			"Accept-Language": "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
		},
	}
}

// Renderer renders pages in a fresh browser per call. Only the playwright
// driver is shared between calls.
type Renderer struct {
	pw     *playwright.Playwright
	opts   *Options
	logger *slog.Logger
}

func New(opts *Options, logger *slog.Logger) (*Renderer, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &Renderer{
		pw:     pw,
		opts:   opts,
		logger: logger.With("component", "browser"),
	}, nil
}

func (r *Renderer) Close() error {
	if r.pw == nil {
		return nil
	}
	if err := r.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Render returns the HTML of rawURL after running the profile's choreography.
// The browser is closed on every return path, and when ctx is cancelled.
func (r *Renderer) Render(ctx context.Context, rawURL string, profile supplier.RenderProfile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	browser, err := r.pw.Chromium.Launch(r.launchOptions(profile))
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		browser.Close()
	})
	defer func() {
		stop()
		if err := browser.Close(); err != nil {
			r.logger.Debug("failed to close browser", "error", err)
		}
	}()

	bctx, err := r.newStealthContext(browser)
	if err != nil {
		return "", err
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	navigated := false
	return retryDetached(ctx, r.logger, rawURL, func(int) (string, error) {
		reload := !needsNavigation(navigated, page.URL())
		if err := r.load(page, rawURL, reload); err != nil {
			return "", err
		}
		navigated = true
		return r.renderPage(ctx, page, rawURL, profile)
	})
}

// retryDetached runs render up to maxDetachedAttempts times while it fails
// with a detached page. Any other error is returned at once.
func retryDetached(ctx context.Context, logger *slog.Logger, rawURL string, render func(attempt int) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxDetachedAttempts; attempt++ {
		html, err := render(attempt)
		if err == nil {
			return html, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if !isDetached(err) {
			return "", err
		}
		lastErr = err
		logger.Warn("page detached, retrying", "url", rawURL, "attempt", attempt, "error", err)
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrPageDetached, maxDetachedAttempts, lastErr)
}

// needsNavigation reports whether a retry has to go to the target again
// instead of reloading. A page that never finished navigating is still blank.
func needsNavigation(navigated bool, currentURL string) bool {
	return !navigated || isBlank(currentURL)
}

func isBlank(pageURL string) bool {
	return pageURL == "" || pageURL == "about:blank"
}

func (r *Renderer) launchOptions(profile supplier.RenderProfile) playwright.BrowserTypeLaunchOptions {
	headless := r.opts.Headless
	if profile.Headful && r.opts.AllowHeadful {
		headless = false
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--disable-accelerated-2d-canvas",
			"--disable-gpu",
			"--disable-blink-features=AutomationControlled",
			"--disable-features=IsolateOrigins,site-per-process",
		},
	}
	if r.opts.ExecutablePath != "" {
		opts.ExecutablePath = playwright.String(r.opts.ExecutablePath)
	}
	return opts
}

// load navigates to rawURL, or reloads the current document when reload is
// set. A page left on about:blank is an error.
func (r *Renderer) load(page playwright.Page, rawURL string, reload bool) error {
	if reload {
		if _, err := page.Reload(playwright.PageReloadOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   r.timeoutMillis(),
		}); err != nil {
			return fmt.Errorf("failed to reload page: %w", err)
		}
	} else if err := r.navigate(page, rawURL); err != nil {
		return err
	}

	if isBlank(page.URL()) {
		return fmt.Errorf("page did not leave about:blank for %s", rawURL)
	}
	return nil
}

func (r *Renderer) renderPage(ctx context.Context, page playwright.Page, rawURL string, profile supplier.RenderProfile) (string, error) {
	if err := r.humanize(ctx, page); err != nil {
		return "", err
	}
	if err := sleep(ctx, profile.SettleDelay); err != nil {
		return "", err
	}

	if err := page.Locator(contentSelectors).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(profile.SelectorTimeout.Milliseconds())),
	}); err != nil {
		if isDetached(err) {
			return "", err
		}
		r.logger.Debug("content wait timed out, continuing", "url", rawURL)
	}

	if profile.Thumbnails != nil {
		if err := r.expandThumbnails(ctx, page, *profile.Thumbnails); err != nil {
			return "", err
		}
	}
	if len(profile.ReadMore) > 0 {
		if err := r.expandReadMore(page, profile.ReadMore); err != nil {
			return "", err
		}
	}

	if err := sleep(ctx, profile.FinalDelay); err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// navigate waits for DOMContentLoaded and falls back to the load event.
func (r *Renderer) navigate(page playwright.Page, rawURL string) error {
	_, err := page.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   r.timeoutMillis(),
	})
	if err == nil {
		return nil
	}
	if isDetached(err) {
		return err
	}

	r.logger.Debug("domcontentloaded navigation failed, retrying with load", "url", rawURL, "error", err)
	if _, err := page.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   r.timeoutMillis(),
	}); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	return nil
}

func (r *Renderer) humanize(ctx context.Context, page playwright.Page) error {
	if err := page.Mouse().Move(100, 100); err != nil {
		return fmt.Errorf("failed to move mouse: %w", err)
	}
	if err := sleep(ctx, time.Second); err != nil {
		return err
	}
	if err := page.Mouse().Move(200, 200); err != nil {
		return fmt.Errorf("failed to move mouse: %w", err)
	}
	return nil
}

// expandThumbnails clicks gallery thumbnails so lazy images get loaded. A
// missing gallery or a failed click is not an error.
func (r *Renderer) expandThumbnails(ctx context.Context, page playwright.Page, exp supplier.ThumbnailExpansion) error {
	thumbs := page.Locator(exp.Selector)
	if err := thumbs.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(exp.Wait.Milliseconds())),
	}); err != nil {
		if isDetached(err) {
			return err
		}
		r.logger.Debug("no thumbnails found", "selector", exp.Selector)
		return nil
	}

	all, err := thumbs.All()
	if err != nil {
		if isDetached(err) {
			return err
		}
		return nil
	}

	clicked := 0
	for i, thumb := range all {
		if exp.Max > 0 && i >= exp.Max {
			break
		}
		if err := thumb.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
			if isDetached(err) {
				return err
			}
			r.logger.Debug("thumbnail click failed", "index", i, "error", err)
		} else {
			clicked++
		}
		if err := sleep(ctx, exp.Delay); err != nil {
			return err
		}
	}

	r.logger.Debug("thumbnails expanded", "found", len(all), "clicked", clicked)
	return nil
}

// expandReadMore clicks the first visible "read more" control.
func (r *Renderer) expandReadMore(page playwright.Page, selectors []string) error {
	for _, sel := range selectors {
		btn := page.Locator(sel).First()
		visible, err := btn.IsVisible()
		if err != nil {
			if isDetached(err) {
				return err
			}
			continue
		}
		if !visible {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
			if isDetached(err) {
				return err
			}
			r.logger.Debug("read more click failed", "selector", sel, "error", err)
			continue
		}
		return nil
	}
	return nil
}

func (r *Renderer) timeoutMillis() *float64 {
	return playwright.Float(float64(r.opts.NavigationTimeout.Milliseconds()))
}

// isDetached classifies the transient "frame went away" failures.
func isDetached(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPageDetached) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"detached",
		"execution context was destroyed",
		"target closed",
		"has been closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
