package browser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// submitURLPatterns match the ways quiz pages reference their submit
// endpoint inside raw HTML.
var submitURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)submit["']?\s*:\s*["']([^"']+)`),
	regexp.MustCompile(`(?i)action\s*=\s*["']([^"']*submit[^"']*)`),
	regexp.MustCompile(`(?i)data-submit-url\s*=\s*["']([^"']+)`),
}

// submitTextPattern matches "submit to: http..." in visible page text.
var submitTextPattern = regexp.MustCompile(`(?i)submit\s+to:?\s+(https?://\S+)`)

// instructionSelectors are tried in order when extracting the problem
// statement; the body text is the fallback.
var instructionSelectors = []string{
	".instructions", "#instructions", ".problem", "#problem", "main", "article",
}

// ExtractLinks returns all hrefs in html resolved against baseURL.
func ExtractLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links, nil
}

// FindSubmitURL looks for the quiz submit endpoint, in order of trust:
// a form action attribute, known HTML patterns, then visible text.
// Returns "" when nothing matches.
func FindSubmitURL(html, text string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if action, ok := doc.Find("form[action]").First().Attr("action"); ok {
			if action = strings.TrimSpace(action); action != "" {
				return action
			}
		}
	}

	for _, pattern := range submitURLPatterns {
		if match := pattern.FindStringSubmatch(html); match != nil {
			return strings.TrimSpace(match[1])
		}
	}

	if match := submitTextPattern.FindStringSubmatch(text); match != nil {
		return strings.TrimRight(match[1], ".,;")
	}

	return ""
}

// ResolveSubmitURL turns a discovered submit reference into an absolute
// URL. Empty references default to /submit on the page origin.
func ResolveSubmitURL(baseURL, submitURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	submitURL = strings.TrimSpace(submitURL)
	if submitURL == "" {
		return fmt.Sprintf("%s://%s/submit", base.Scheme, base.Host), nil
	}
	if strings.HasPrefix(submitURL, "http://") || strings.HasPrefix(submitURL, "https://") {
		return submitURL, nil
	}

	ref, err := url.Parse(submitURL)
	if err != nil {
		return "", fmt.Errorf("parse submit url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// ExtractInstructions pulls the problem statement out of the page,
// preferring dedicated containers over the whole body.
func ExtractInstructions(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, selector := range instructionSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if len(text) > 20 {
			return text
		}
	}

	return strings.TrimSpace(doc.Find("body").Text())
}

// SelectText returns the combined text and HTML of nodes matching the
// CSS selector. Used by the scrape tool's selector mode.
func SelectText(html, selector string) (text string, outer string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	var textParts, htmlParts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		textParts = append(textParts, strings.TrimSpace(sel.Text()))
		if h, err := goquery.OuterHtml(sel); err == nil {
			htmlParts = append(htmlParts, h)
		}
	})
	return strings.Join(textParts, "\n"), strings.Join(htmlParts, "\n"), nil
}
