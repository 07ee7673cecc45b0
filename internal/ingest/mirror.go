package ingest

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/andresuchdata/popsync/internal/fetch"
	"github.com/rs/zerolog/log"
)

// DefaultMirrorPrefix namespaces mirrored listing files in the bucket.
const DefaultMirrorPrefix = "part1"

var hrefPattern = regexp.MustCompile(`(?i)href="([^"]+)"`)

// Mirror copies every file linked from a directory listing page into object
// storage through a ChangeAwareStore.
type Mirror struct {
	fetcher fetch.Fetcher
	store   *ChangeAwareStore
	prefix  string
}

func NewMirror(fetcher fetch.Fetcher, store *ChangeAwareStore, prefix string) *Mirror {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultMirrorPrefix
	}
	return &Mirror{fetcher: fetcher, store: store, prefix: prefix}
}

// Mirror fetches the listing at baseURL and stores each linked file. It
// returns how many files were fetched successfully, whether or not their
// write was skipped as unchanged. A file that fails to fetch is logged and
// skipped; a failed write aborts the run.
func (m *Mirror) Mirror(ctx context.Context, baseURL string) (int, error) {
	if strings.TrimSpace(baseURL) == "" {
		log.Info().Msg("mirror: base url not set, skipping")
		return 0, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("mirror: parse base url %q: %w", baseURL, err)
	}

	index, err := m.fetcher.Fetch(ctx, baseURL)
	if err != nil {
		return 0, fmt.Errorf("mirror: fetch listing: %w", err)
	}

	count := 0
	for _, href := range ExtractHrefs(string(index)) {
		if !isFileEntry(href) {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			log.Warn().Err(err).Str("href", href).Msg("mirror: unparseable href, skipping")
			continue
		}
		resolved := base.ResolveReference(ref)
		if !strings.EqualFold(resolved.Host, base.Host) {
			log.Warn().Str("href", href).Msg("mirror: link points to another host, skipping")
			continue
		}
		fileURL := resolved.String()

		content, err := m.fetcher.Fetch(ctx, fileURL)
		if err != nil {
			log.Warn().Err(err).Str("url", fileURL).Msg("mirror: fetch failed")
			continue
		}

		if _, err := m.store.PutIfChanged(ctx, m.keyFor(href, ref), content); err != nil {
			return count, fmt.Errorf("mirror: %w", err)
		}
		count++
	}

	log.Info().Int("files", count).Str("url", baseURL).Msg("mirror: done")
	return count, nil
}

// keyFor names the stored object after the href as written in the listing.
// Absolute URLs contribute only their path.
func (m *Mirror) keyFor(href string, ref *url.URL) string {
	name := href
	if ref.IsAbs() || ref.Host != "" {
		name = ref.EscapedPath()
	}
	return m.prefix + "/" + strings.TrimLeft(name, "/")
}

// ExtractHrefs returns every href attribute value in listing, in document
// order. The listing is scanned as flat text.
func ExtractHrefs(listing string) []string {
	matches := hrefPattern.FindAllStringSubmatch(listing, -1)
	hrefs := make([]string, 0, len(matches))
	for _, match := range matches {
		hrefs = append(hrefs, html.UnescapeString(match[1]))
	}
	return hrefs
}

// isFileEntry rejects sub-index links and the sort/anchor links index pages
// emit ("?C=N;O=D", "#top").
func isFileEntry(href string) bool {
	switch {
	case strings.HasSuffix(href, "/"):
		return false
	case strings.HasPrefix(href, "?"), strings.HasPrefix(href, "#"):
		return false
	case path.Base(href) == "." || path.Base(href) == "..":
		return false
	}
	return true
}
