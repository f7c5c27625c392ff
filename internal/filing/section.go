package filing

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/edinet"
)

// Section headings that mark the equipment chapter of an annual report.
var sectionMarkers = []string{
	"主要な設備の状況",
	"設備の状況",
}

// PropertySectionText downloads the filing archive and returns the plain text
// of the equipment section. Archives are cached permanently: a published
// filing never changes.
func (s *Searcher) PropertySectionText(ctx context.Context, docID string) (string, error) {
	data, found, err := s.cache.Get(ctx, cache.NamespaceDocument, docID)
	if err != nil {
		return "", err
	}
	if !found {
		data, err = s.client.DownloadDocument(ctx, docID, edinet.FormatZIP)
		if err != nil {
			return "", model.NewExternalServiceError("edinet", err)
		}
		if err := s.cache.Put(ctx, cache.NamespaceDocument, docID, data, cache.Permanent()); err != nil {
			return "", err
		}
	}

	text, err := extractSection(data)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", model.NotFoundf("no equipment section in %s", docID)
	}
	zap.L().Debug("filing: extracted section text", zap.String("doc_id", docID), zap.Int("runes", len([]rune(text))))
	return text, nil
}

// extractSection scans the archive's HTML members for the equipment chapter
// and concatenates their stripped text.
func extractSection(archive []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", eris.Wrap(err, "filing: open archive")
	}

	var parts []string
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if !strings.HasSuffix(name, ".htm") && !strings.HasSuffix(name, ".html") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", eris.Wrapf(err, "filing: open %s", f.Name)
		}
		raw, err := io.ReadAll(rc)
		rc.Close() //nolint:errcheck
		if err != nil {
			return "", eris.Wrapf(err, "filing: read %s", f.Name)
		}

		html := string(raw)
		if !containsMarker(html) {
			continue
		}
		parts = append(parts, stripHTML(html))
	}
	return strings.Join(parts, "\n"), nil
}

func containsMarker(html string) bool {
	for _, m := range sectionMarkers {
		if strings.Contains(html, m) {
			return true
		}
	}
	return false
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML removes markup and collapses whitespace runs to single spaces.
func stripHTML(html string) string {
	html = scriptRe.ReplaceAllString(html, " ")
	html = tagRe.ReplaceAllString(html, " ")
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&amp;", "&")
	return strings.Join(strings.Fields(html), " ")
}
