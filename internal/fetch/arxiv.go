// Package fetch ingests new papers from arXiv listing pages into the blob
// store and the paper repository.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matome-io/matome/internal/blob"
	"github.com/matome-io/matome/internal/models"
	"github.com/matome-io/matome/internal/store"
)

const (
	pdfBaseURL     = "https://export.arxiv.org/pdf/"
	userAgent      = "matome/1.0 (+https://github.com/matome-io/matome)"
	requestTimeout = 30 * time.Second

	// arXiv asks crawlers for at most a short burst of requests per second.
	downloadsPerSecond = 4
)

var (
	pdfHeader = []byte("%PDF")
	dateExpr  = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
)

// Fetcher downloads the PDFs listed on an arXiv category page, stores them as
// blobs, and records their metadata for the extraction stage to pick up.
type Fetcher struct {
	client  *http.Client
	blobs   blob.Store
	papers  store.PaperStore
	limiter *rate.Limiter
	pdfBase string
	logger  *zap.Logger
}

// NewFetcher wires a Fetcher. A nil client gets a default with a 30s timeout.
func NewFetcher(client *http.Client, blobs blob.Store, papers store.PaperStore, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Fetcher{
		client:  client,
		blobs:   blobs,
		papers:  papers,
		limiter: rate.NewLimiter(downloadsPerSecond, downloadsPerSecond),
		pdfBase: pdfBaseURL,
		logger:  logger,
	}
}

// entry is one paper parsed from a listing page.
type entry struct {
	id          string
	title       string
	publishedAt time.Time
}

// Fetch scans the listing page at listingURL and ingests up to limit new
// papers. Each paper failure is isolated and recorded; the listing fetch
// itself failing aborts the run.
func (f *Fetcher) Fetch(ctx context.Context, listingURL string, limit int) (models.StageResult, error) {
	result := models.NewStageResult()

	entries, err := f.scanListing(ctx, listingURL)
	if err != nil {
		return result, fmt.Errorf("scan listing %s: %w", listingURL, err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if len(entries) == 0 {
		f.logger.Info("no papers found on listing page", zap.String("url", listingURL))
		return result, nil
	}

	f.logger.Info("ingesting papers", zap.Int("count", len(entries)))
	for _, e := range entries {
		if err := f.ingest(ctx, e); err != nil {
			f.logger.Warn("ingest failed", zap.String("paper_id", e.id), zap.Error(err))
			result.Failed = append(result.Failed, e.id)
			continue
		}
		f.logger.Info("ingested paper", zap.String("paper_id", e.id), zap.String("title", e.title))
		result.Successful = append(result.Successful, e.id)
	}
	result.Processed = len(entries)
	return result, nil
}

// scanListing parses an arXiv listing page into entries. Listing pages pair a
// <dt> (identifier links) with a <dd> (title and dateline).
func (f *Fetcher) scanListing(ctx context.Context, listingURL string) ([]entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %s", resp.Status)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var entries []entry
	seen := map[string]struct{}{}
	doc.Find("dl > dt").Each(func(_ int, dt *goquery.Selection) {
		e, ok := parseEntry(dt, dt.Next())
		if !ok {
			return
		}
		if _, dup := seen[e.id]; dup {
			return
		}
		seen[e.id] = struct{}{}
		entries = append(entries, e)
	})
	return entries, nil
}

func parseEntry(dt, dd *goquery.Selection) (entry, bool) {
	link := dt.Find(`a[href*="/abs/"]`).First()
	id := strings.TrimSpace(link.Text())
	id = strings.TrimPrefix(id, "arXiv:")
	if id == "" {
		if href, exists := link.Attr("href"); exists {
			id = strings.TrimPrefix(href, "/abs/")
		}
	}
	if id == "" {
		return entry{}, false
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	publishedAt := time.Now().UTC()
	dateText := dd.Find(".list-dateline").First().Text()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	return entry{id: id, title: title, publishedAt: publishedAt}, true
}

// ingest downloads one PDF, validates it, uploads it, and records metadata.
func (f *Fetcher) ingest(ctx context.Context, e entry) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := f.downloadPDF(ctx, f.pdfBase+e.id)
	if err != nil {
		return err
	}

	uri, err := f.blobs.Put(ctx, "arxiv_papers/"+e.id+".pdf", data, "application/pdf")
	if err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}

	paper := models.Paper{
		PaperID:     e.id,
		Title:       e.title,
		GCSURL:      uri,
		PublishedAt: e.publishedAt,
	}
	if err := f.papers.UpsertMetadata(ctx, paper); err != nil {
		return fmt.Errorf("record metadata: %w", err)
	}
	return nil
}

func (f *Fetcher) downloadPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "pdf") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, fmt.Errorf("response is not a PDF")
	}
	return data, nil
}
