package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => false });
window.chrome = { runtime: {} };
const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
  parameters.name === 'notifications'
    ? Promise.resolve({ state: Notification.permission })
    : originalQuery(parameters)
);
`

// newStealthContext opens an isolated context that hides the usual
// automation fingerprints.
func (r *Renderer) newStealthContext(browser playwright.Browser) (playwright.BrowserContext, error) {
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(r.opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(r.opts.Locale),
		TimezoneId:        playwright.String(r.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  r.opts.ViewportWidth,
			Height: r.opts.ViewportHeight,
		},
		ExtraHttpHeaders: r.opts.ExtraHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to install stealth script: %w", err)
	}
	return bctx, nil
}
