package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Darunesh1/tds-quiz-solver/internal/browser"
)

// PageLoader is the browser surface the scrape tool needs.
type PageLoader interface {
	LoadPage(ctx context.Context, url string) (*browser.Page, error)
}

// ScrapePageTool renders a page in the headless browser and extracts
// its text, optionally narrowed to a CSS selector.
type ScrapePageTool struct {
	browser PageLoader
}

type scrapePageArgs struct {
	URL      string `json:"url"`
	Selector string `json:"selector,omitempty"`
}

// NewScrapePageTool creates a scraping tool backed by the shared browser.
func NewScrapePageTool(loader PageLoader) *ScrapePageTool {
	return &ScrapePageTool{browser: loader}
}

func (t *ScrapePageTool) Name() string {
	return "scrape_page"
}

func (t *ScrapePageTool) Description() string {
	return `Load a URL in the headless browser (JavaScript is executed) and return
the visible text. Pass a CSS selector to narrow the result to specific
elements, e.g. "table" or "#data". Use send_request instead for raw JSON
APIs that need no rendering.`
}

func (t *ScrapePageTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "The URL to load"
			},
			"selector": {
				"type": "string",
				"description": "Optional CSS selector to extract specific elements"
			}
		},
		"required": ["url"]
	}`)
}

func (t *ScrapePageTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var scrapeArgs scrapePageArgs
	if err := json.Unmarshal(args, &scrapeArgs); err != nil {
		return errorResult("Failed to parse arguments: %v", err), nil
	}
	if scrapeArgs.URL == "" {
		return errorResult("url is required"), nil
	}

	page, err := t.browser.LoadPage(ctx, scrapeArgs.URL)
	if err != nil {
		return errorResult("Failed to load page: %v", err), nil
	}

	if scrapeArgs.Selector != "" {
		text, _, err := browser.SelectText(page.HTML, scrapeArgs.Selector)
		if err != nil {
			return errorResult("Selector failed: %v", err), nil
		}
		if text == "" {
			return errorResult("No elements matched selector %q", scrapeArgs.Selector), nil
		}
		return ToolResult{Content: truncateOutput(text)}, nil
	}

	return ToolResult{Content: truncateOutput(fmt.Sprintf("URL: %s\n%s", page.URL, page.Text))}, nil
}
