package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"reviewlens/internal/model"
	"reviewlens/internal/util"
	"reviewlens/internal/worker"
)

const defaultMaxFeedBody = 4 << 20

// HTMLFeed fetches reviews from a site exposing a crawlable review
// listing. It honors robots.txt and a per-domain rate limit; pages are
// parsed with a class-based walk tolerant of markup variation.
type HTMLFeed struct {
	name      string
	baseURL   string
	userAgent string
	maxBody   int64
	client    *http.Client
	robots    *util.RobotsChecker
	limiter   *worker.Limiter
}

// NewHTMLFeed creates a feed source. baseURL must contain a %s verb for
// the url-escaped query.
func NewHTMLFeed(name, baseURL string, cfg model.HTTPConfig, limiter *worker.Limiter) *HTMLFeed {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "ReviewLens/1.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxFeedBody
	}
	return &HTMLFeed{
		name:      name,
		baseURL:   baseURL,
		userAgent: userAgent,
		maxBody:   maxBody,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		robots:  util.NewRobotsChecker(userAgent, timeout),
		limiter: limiter,
	}
}

func (h *HTMLFeed) Name() string { return h.name }

// Fetch downloads and parses the review listing for the query.
func (h *HTMLFeed) Fetch(ctx context.Context, query string) (*Result, error) {
	pageURL := fmt.Sprintf(h.baseURL, url.QueryEscape(query))

	allowed, crawlDelay, err := h.robots.CanFetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", pageURL)
	}

	if h.limiter != nil {
		if err := h.limiter.WaitWithDelay(ctx, pageURL, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return h.parse(string(body))
}

// parse extracts reviews from the listing markup. Expected shape is a
// container with class "review" holding children classed review-text,
// review-rating, review-date, review-author, plus optional verified and
// helpful-count markers.
func (h *HTMLFeed) parse(content string) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	result := &Result{}
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "img" && result.ImageURL == "" && hasClass(n, "product-image") {
				result.ImageURL = attrValue(n, "src")
			}
			if hasClass(n, "review") {
				if review, ok := h.parseReview(n); ok {
					result.Reviews = append(result.Reviews, review)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return result, nil
}

func (h *HTMLFeed) parseReview(n *html.Node) (model.Review, bool) {
	text := strings.TrimSpace(textOfClass(n, "review-text"))
	if len(text) < 10 {
		return model.Review{}, false
	}

	review := model.Review{
		Source:     h.name,
		Text:       text,
		ReviewerID: strings.TrimSpace(textOfClass(n, "review-author")),
	}
	review.ID = model.ReviewID(h.name, review.ReviewerID, text)

	if raw := strings.TrimSpace(textOfClass(n, "review-rating")); raw != "" {
		// "4.0 out of 5" and bare "4.0" both appear in the wild
		first := strings.Fields(raw)[0]
		if rating, err := strconv.ParseFloat(first, 64); err == nil && rating >= 1.0 && rating <= 5.0 {
			review.Rating = &rating
		}
	}

	if raw := strings.TrimSpace(textOfClass(n, "review-date")); raw != "" {
		for _, layout := range []string{"2006-01-02", "January 2, 2006", time.RFC3339} {
			if date, err := time.Parse(layout, raw); err == nil {
				review.Date = &date
				break
			}
		}
	}

	if raw := strings.TrimSpace(textOfClass(n, "helpful-count")); raw != "" {
		if votes, err := strconv.Atoi(strings.Fields(raw)[0]); err == nil && votes >= 0 {
			review.HelpfulVotes = votes
		}
	}

	review.VerifiedPurchase = findClass(n, "verified") != nil

	return review, true
}

// textOfClass returns the text content of the first descendant with the
// given class.
func textOfClass(n *html.Node, class string) string {
	target := findClass(n, class)
	if target == nil {
		return ""
	}
	return nodeText(target)
}

func findClass(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && hasClass(c, class) {
			return c
		}
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
