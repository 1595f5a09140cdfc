package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/gocolly/colly/v2"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
)

// descriptionJoiner separates the short card blurb from the long-form
// body pulled off the detail page.
const descriptionJoiner = "More description about MCP server"

// card is the partial listing extracted from the directory's index page,
// before the detail page has been fetched.
type card struct {
	Title         string
	Link          string
	CreatedBy     string
	Description   string
	BaselineStars string
}

// Scraper fetches the directory listing page, fans out one worker per
// card to validate and enrich it from its detail page, and returns the
// accepted listings. Cards that fail validation or extraction are
// dropped and logged, never fatal.
type Scraper struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewScraper builds a scraper rooted at the directory's base URL
// (e.g. https://www.mcpserverfinder.com). A nil httpClient gets a
// 10-second-timeout default, matching the detail fetch budget.
func NewScraper(baseURL string, httpClient *http.Client, logger *log.Logger) *Scraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Scraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Run scrapes the listing page at path (e.g. /servers) and returns one
// Listing per card that passed the existence check and detail
// extraction. Result order is completion order, not page order.
func (s *Scraper) Run(ctx context.Context, listingPath string) ([]catalog.Listing, error) {
	cards, err := s.collectCards(listingPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing page parsed", "cards", len(cards))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		listings []catalog.Listing
		seen     = make(map[string]bool, len(cards))
	)

	for _, c := range cards {
		wg.Add(1)
		go func(c card) {
			defer wg.Done()

			listing, err := s.processCard(ctx, c)
			if err != nil {
				s.logger.Warn("card skipped", "link", c.Link, "err", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if seen[listing.Link] {
				s.logger.Warn("duplicate card dropped", "link", listing.Link)
				return
			}
			seen[listing.Link] = true
			listings = append(listings, *listing)
		}(c)
	}

	wg.Wait()

	return listings, nil
}

// collectCards crawls the listing page and extracts the candidate cards.
func (s *Scraper) collectCards(listingPath string) ([]card, error) {
	var (
		cards    []card
		crawlErr error
	)

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetClient(s.httpClient)

	c.OnHTML("div.p-6", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText("a.text-xl"))
		href := e.ChildAttr("a.text-xl", "href")
		if title == "" || href == "" {
			return
		}

		cards = append(cards, card{
			Title:         title,
			Link:          s.baseURL + href,
			CreatedBy:     strings.TrimSpace(e.ChildText("p.text-sm.text-muted-foreground.truncate")),
			Description:   strings.TrimSpace(e.ChildText("p.text-muted-foreground.mb-4.line-clamp-2")),
			BaselineStars: strings.TrimSpace(e.DOM.Find("span.flex.items-center.mr-3").First().Text()),
		})
	})

	c.OnError(func(_ *colly.Response, err error) {
		crawlErr = err
	})

	if err := c.Visit(s.baseURL + listingPath); err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}
	c.Wait()

	if crawlErr != nil {
		return nil, fmt.Errorf("fetch listing page: %w", crawlErr)
	}

	return cards, nil
}

// processCard validates the card's detail link and enriches the listing
// from the detail page.
func (s *Scraper) processCard(ctx context.Context, c card) (*catalog.Listing, error) {
	if err := s.validateLink(ctx, c.Link); err != nil {
		return nil, err
	}

	detail, err := s.fetchDetail(ctx, c.Link)
	if err != nil {
		return nil, err
	}

	stars := detail.Stars
	if stars == "" {
		stars = c.BaselineStars
	}

	description := c.Description
	if detail.Body != "" {
		description = description + descriptionJoiner + detail.Body
	}

	listing := &catalog.Listing{
		Title:       c.Title,
		Link:        c.Link,
		CreatedBy:   c.CreatedBy,
		Description: description,
		Stars:       stars,
		Categories:  detail.Categories,
		Language:    detail.Language,
		GithubLink:  detail.GithubLink,
	}
	listing.Normalize()

	return listing, nil
}

// validateLink issues a lightweight existence check against the detail
// URL; non-success statuses reject the card.
func (s *Scraper) validateLink(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("build existence check: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("existence check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("existence check: status %d", resp.StatusCode)
	}

	return nil
}

// detailPage holds everything extracted from a card's detail page.
// Missing fields stay at their zero value; Normalize fills sentinels.
type detailPage struct {
	Categories []string
	Language   string
	GithubLink string
	Stars      string
	Body       string
}

// fetchDetail downloads and parses a detail page.
func (s *Scraper) fetchDetail(ctx context.Context, url string) (*detailPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build detail request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch detail page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	return parseDetail(doc), nil
}

// parseDetail extracts the detail-page fields. Each extraction is
// independent: a missing section leaves its field empty rather than
// failing the card.
func parseDetail(doc *goquery.Document) *detailPage {
	d := &detailPage{}

	doc.Find("div.flex.flex-wrap span").Each(func(_ int, sel *goquery.Selection) {
		if tag := strings.TrimSpace(sel.Text()); tag != "" {
			d.Categories = append(d.Categories, tag)
		}
	})

	doc.Find("h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) != "Language:" {
			return true
		}
		d.Language = strings.TrimSpace(sel.NextAllFiltered("p").First().Text())
		return false
	})

	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(strings.TrimSpace(sel.Text()), "View on Github") {
			return true
		}
		d.GithubLink, _ = sel.Attr("href")
		return false
	})

	doc.Find("div.flex.items-center").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Find("h3").First().Text()) != "Stars:" {
			return true
		}
		d.Stars = strings.TrimSpace(sel.Find("p").First().Text())
		return false
	})

	d.Body = strings.TrimSpace(doc.Find("div.prose").First().Text())

	return d
}
