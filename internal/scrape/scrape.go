// Package scrape extracts a role title and company name from a job
// posting page, best source first: JSON-LD JobPosting structured data,
// then OpenGraph/Twitter meta tags, then the page title.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nrahman/jobtrack/internal/apperror"
)

const (
	// maxBodyBytes caps how much of a posting page is read. Postings
	// put their structured data in <head>, so half a megabyte is ample.
	maxBodyBytes  = 512 * 1024
	scrapeTimeout = 8 * time.Second

	userAgent = "Mozilla/5.0 (compatible; jobtrack/1.0)"
)

// Posting is the extracted result. Empty fields mean that detail was
// not discoverable; extraction is best-effort, not validation.
type Posting struct {
	Role    string `json:"role"`
	Company string `json:"company"`
	URL     string `json:"url"`
}

type Scraper struct {
	client *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{client: &http.Client{}}
}

func newScraperWithClient(client *http.Client) *Scraper {
	return &Scraper{client: client}
}

// Scrape fetches rawURL and extracts posting details. Network and
// parse failures surface as ErrUpstream; the page simply lacking
// recognizable data is not an error and yields empty fields.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*Posting, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, apperror.ValidationFailed("url", "must be an http(s) URL")
	}

	ctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperror.ValidationFailed("url", "malformed URL")
	}
	// Some boards serve a bot-wall to default Go user agents.
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperror.Upstream("fetching posting page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.Upstream(fmt.Sprintf("posting page returned status %d", resp.StatusCode), nil)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.Upstream("parsing posting page", err)
	}

	posting := extract(doc)
	posting.URL = rawURL
	return posting, nil
}

// page holds everything one tree walk collects.
type page struct {
	ldScripts []string
	ogTitle   string
	ogSite    string
	twTitle   string
	title     string
}

func extract(doc *html.Node) *Posting {
	var p page
	walk(doc, &p)

	for _, script := range p.ldScripts {
		if role, company, ok := fromJSONLD(script); ok {
			return &Posting{Role: role, Company: company}
		}
	}

	metaTitle := p.ogTitle
	if metaTitle == "" {
		metaTitle = p.twTitle
	}
	if metaTitle != "" {
		role, company := splitTitle(metaTitle)
		if company == "" {
			company = p.ogSite
		}
		return &Posting{Role: role, Company: company}
	}

	if p.title != "" {
		role, company := splitTitle(p.title)
		return &Posting{Role: role, Company: company}
	}
	return &Posting{}
}

func walk(n *html.Node, p *page) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script":
			if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
				p.ldScripts = append(p.ldScripts, n.FirstChild.Data)
			}
		case "meta":
			content := attr(n, "content")
			switch {
			case attr(n, "property") == "og:title":
				p.ogTitle = content
			case attr(n, "property") == "og:site_name":
				p.ogSite = content
			case attr(n, "name") == "twitter:title":
				p.twTitle = content
			}
		case "title":
			if p.title == "" && n.FirstChild != nil {
				p.title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, p)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ldNode is the subset of schema.org JobPosting we read. Type is
// decoded loosely because @type may be a string or an array.
type ldNode struct {
	Type               json.RawMessage `json:"@type"`
	Graph              []ldNode        `json:"@graph"`
	Title              string          `json:"title"`
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
}

// fromJSONLD looks for a JobPosting node in one ld+json script, which
// may hold a single object, an array, or an @graph collection.
func fromJSONLD(raw string) (role, company string, ok bool) {
	raw = strings.TrimSpace(raw)

	var nodes []ldNode
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			return "", "", false
		}
	} else {
		var single ldNode
		if err := json.Unmarshal([]byte(raw), &single); err != nil {
			return "", "", false
		}
		nodes = append([]ldNode{single}, single.Graph...)
	}

	for _, n := range nodes {
		if !isJobPosting(n.Type) {
			continue
		}
		if n.Title == "" && n.HiringOrganization.Name == "" {
			continue
		}
		return strings.TrimSpace(n.Title), strings.TrimSpace(n.HiringOrganization.Name), true
	}
	return "", "", false
}

func isJobPosting(raw json.RawMessage) bool {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s == "JobPosting"
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		for _, s := range list {
			if s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

// boardSuffixes are trailing "| LinkedIn"-style site names stripped
// from titles before splitting.
var boardSuffixes = []string{
	"LinkedIn", "Indeed.com", "Indeed", "Glassdoor", "Greenhouse",
	"Lever", "Wellfound", "ZipRecruiter", "Careers",
}

var titleSeparators = []string{" at ", " @ ", " - ", " – ", " — ", " | "}

// splitTitle breaks "Senior Engineer at Acme" (or "- Acme", "| Acme")
// into role and company. A title with no separator is all role.
func splitTitle(title string) (role, company string) {
	title = strings.TrimSpace(title)
	title = stripBoardSuffix(title)

	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+len(sep):])
		}
	}
	return title, ""
}

func stripBoardSuffix(title string) string {
	for _, sep := range []string{" | ", " - ", " – "} {
		for _, board := range boardSuffixes {
			if strings.HasSuffix(title, sep+board) {
				return strings.TrimSpace(strings.TrimSuffix(title, sep+board))
			}
		}
	}
	return title
}
