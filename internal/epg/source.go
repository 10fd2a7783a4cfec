package epg

import (
	"context"
	"fmt"
	"io"

	"github.com/tvdeck/tvdeck/internal/urlutil"
)

// URLSource is a GuideSource backed by an arbitrary XMLTV URL (http(s)://
// or file://), overriding the provider's own xmltv.php endpoint.
type URLSource struct {
	url     string
	fetcher *urlutil.ResourceFetcher
}

// NewURLSource validates the URL and builds the source.
func NewURLSource(url string) (*URLSource, error) {
	if err := urlutil.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("xmltv source: %w", err)
	}
	return &URLSource{url: url, fetcher: urlutil.NewDefaultResourceFetcher()}, nil
}

// GetXMLTVReader opens the XMLTV document.
func (s *URLSource) GetXMLTVReader(ctx context.Context) (io.ReadCloser, error) {
	return s.fetcher.Fetch(ctx, s.url)
}
