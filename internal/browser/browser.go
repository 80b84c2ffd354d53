// Package browser loads quiz pages with a headless Chromium instance so
// JavaScript-rendered content is visible to the agent.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

// ErrPageLoad wraps page navigation and rendering failures.
var ErrPageLoad = errors.New("browser: page load failed")

// Page is the rendered result of loading a URL.
type Page struct {
	// URL is the final URL after redirects; also the base for relative links.
	URL   string
	HTML  string
	Text  string
	Links []string
}

// Manager owns the shared browser process. Pages are loaded in fresh tabs.
// Safe for concurrent use; initialization is lazy.
type Manager struct {
	headless bool
	timeout  time.Duration

	mu          sync.Mutex
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	initialized bool
}

// NewManager creates a browser manager. timeout applies per page load.
func NewManager(headless bool, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{headless: headless, timeout: timeout}
}

func (m *Manager) init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	log.Info("Initializing headless browser")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so a missing binary fails here,
	// not on the first job.
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return fmt.Errorf("%w: browser start: %v", ErrPageLoad, err)
	}

	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserStop = browserStop
	m.initialized = true
	log.Info("Browser initialized")
	return nil
}

// Close shuts the browser process down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return
	}
	m.browserStop()
	m.allocCancel()
	m.initialized = false
	log.Info("Browser closed")
}

// LoadPage renders url in a new tab and returns the final URL, HTML,
// visible text and all absolute links.
func (m *Manager) LoadPage(ctx context.Context, url string) (*Page, error) {
	if err := m.init(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	parent := m.browserCtx
	m.mu.Unlock()

	tabCtx, closeTab := chromedp.NewContext(parent)
	defer closeTab()

	loadCtx, cancel := context.WithTimeout(tabCtx, m.timeout)
	defer cancel()

	// Propagate caller cancellation (question budget) into the tab.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-loadCtx.Done():
		}
	}()

	log.Info("Loading page: %s", url)

	var finalURL, html, text string
	err := chromedp.Run(loadCtx,
		chromedp.EmulateViewport(1280, 720),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Give client-side rendering a moment to settle.
		chromedp.Sleep(time.Second),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout after %s loading %s", ErrPageLoad, m.timeout, url)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}

	links, err := ExtractLinks(html, finalURL)
	if err != nil {
		log.Warn("Failed to extract links from %s: %v", finalURL, err)
		links = nil
	}

	log.Info("Page loaded (%d chars, %d links)", len(html), len(links))

	return &Page{
		URL:   finalURL,
		HTML:  html,
		Text:  text,
		Links: links,
	}, nil
}
