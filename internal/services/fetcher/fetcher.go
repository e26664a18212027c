package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

const (
	// maxBodySnippet caps the extracted body text carried into
	// classification.
	maxBodySnippet = 5000

	// removedElements are stripped before text extraction: chrome, not
	// content.
	removedElements = "script, style, nav, footer, header, aside, noscript, iframe, svg"
)

// Service probes bookmark targets and extracts page metadata. Fetch
// results are cached by canonical URL so re-imports of the same archive
// stay off the network.
type Service struct {
	config      *common.FetcherConfig
	cache       interfaces.MetadataCache
	limiter     *domainLimiter
	headClient  *http.Client
	probeClient *http.Client
	fetchClient *http.Client
	logger      arbor.ILogger
}

// NewService creates a metadata fetcher. The cache may be nil, in which
// case every Fetch goes to the network.
func NewService(config *common.FetcherConfig, cache interfaces.MetadataCache, logger arbor.ILogger) interfaces.FetcherService {
	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if len(via) >= config.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
		}
		return nil
	}

	return &Service{
		config:  config,
		cache:   cache,
		limiter: newDomainLimiter(config.RequestDelay),
		headClient: &http.Client{
			Timeout:       config.HeadTimeout,
			CheckRedirect: redirectPolicy,
		},
		probeClient: &http.Client{
			Timeout:       config.ProbeTimeout,
			CheckRedirect: redirectPolicy,
		},
		fetchClient: &http.Client{
			Timeout:       config.FetchTimeout,
			CheckRedirect: redirectPolicy,
		},
		logger: logger,
	}
}

// Validate probes reachability. Internal addresses and browser-internal
// schemes pass without touching the network; remote targets get a cheap
// HEAD with a GET fallback for servers that reject HEAD.
func (s *Service) Validate(ctx context.Context, rawURL string) bool {
	if common.IsInternalURL(rawURL) {
		return true
	}
	if !common.IsFetchableURL(rawURL) {
		return false
	}

	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return false
	}

	if ok, retryWithGet := s.probeHead(ctx, rawURL); !retryWithGet {
		return ok
	}
	return s.probeGet(ctx, rawURL)
}

// probeHead returns (valid, retryWithGet). Transport failure and any
// error status fall through to the GET probe: plenty of servers reject
// HEAD outright (405, or 403 for bot traffic) yet answer GET normally.
func (s *Service) probeHead(ctx context.Context, rawURL string) (bool, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, false
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.headClient.Do(req)
	if err != nil {
		return false, true
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, true
	}
	return true, false
}

// probeGet is the fallback reachability check. Headers are enough; the
// body is discarded unread. Server errors are the only failures here
// because many sites answer GET with 403/404 for bot traffic yet work
// fine in a browser.
func (s *Service) probeGet(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.probeClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}

// Fetch retrieves the page and extracts display metadata. A nil return
// means transport failure; the bookmark is stored without enrichment.
// refresh skips the cache lookup so stale metadata goes back to the
// network; the fresh result still overwrites the cached entry.
func (s *Service) Fetch(ctx context.Context, rawURL string, refresh bool) *models.PageMetadata {
	if !common.IsFetchableURL(rawURL) {
		return nil
	}

	canonical := common.NormalizeURL(rawURL)
	if s.cache != nil && !refresh {
		if meta, ok := s.cache.Get(canonical); ok {
			s.logger.Debug().Str("url", canonical).Msg("Metadata cache hit")
			return meta
		}
	}

	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.fetchClient.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", rawURL).Msg("Page fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	body := io.Reader(resp.Body)
	if s.config.MaxBodySize > 0 {
		body = io.LimitReader(resp.Body, int64(s.config.MaxBodySize))
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil
	}

	meta := s.extract(doc)
	meta.FetchedAt = time.Now()

	if s.cache != nil {
		if err := s.cache.Set(canonical, meta); err != nil {
			s.logger.Warn().Err(err).Str("url", canonical).Msg("Failed to cache metadata")
		}
	}
	return meta
}

// extract pulls display metadata out of the parsed document.
func (s *Service) extract(doc *goquery.Document) *models.PageMetadata {
	meta := &models.PageMetadata{}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		meta.MetaDescription = strings.TrimSpace(desc)
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		meta.OGTitle = strings.TrimSpace(og)
	}
	if og, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
		meta.OGDescription = strings.TrimSpace(og)
	}
	if og, ok := doc.Find("meta[property='og:image']").Attr("content"); ok {
		meta.OGImage = strings.TrimSpace(og)
	}

	// Strip page chrome before taking the body snippet
	doc.Find(removedElements).Remove()
	meta.BodyText = snippet(doc.Find("body").Text(), maxBodySnippet)

	return meta
}

// snippet whitespace-normalizes text and caps its length.
func snippet(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if len(normalized) > limit {
		normalized = normalized[:limit]
	}
	return normalized
}
