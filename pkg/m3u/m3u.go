// Package m3u reads and writes extended M3U playlists with EXTINF metadata.
package m3u

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Entry is a single channel in a playlist.
type Entry struct {
	// Duration is the track duration in seconds, -1 for live streams.
	Duration int

	// TvgID is the EPG channel identifier.
	TvgID string

	// TvgName is the name from the tvg-name attribute.
	TvgName string

	// TvgLogo is the channel logo URL.
	TvgLogo string

	// GroupTitle is the category from the group-title attribute.
	GroupTitle string

	// Title is the display title after the EXTINF attributes.
	Title string

	// URL is the stream URL.
	URL string
}

// Parser streams entries to a callback as they are read.
type Parser struct {
	// OnEntry is called for each parsed entry.
	OnEntry func(entry *Entry) error

	// OnError is called for recoverable line-level errors. Nil means the
	// bad line is skipped silently.
	OnError func(lineNum int, err error)
}

var (
	extinfRegex = regexp.MustCompile(`^#EXTINF:\s*(-?\d+)\s*(.*)$`)
	attrRegex   = regexp.MustCompile(`([a-zA-Z0-9_-]+)=(?:"([^"]*)"|([^\s,]+))`)
)

// Parse reads a playlist, invoking OnEntry per channel. Lines that fail to
// parse are reported through OnError and skipped.
func (p *Parser) Parse(r io.Reader) error {
	if p.OnEntry == nil {
		return fmt.Errorf("OnEntry callback is required")
	}

	scanner := bufio.NewScanner(r)
	// Long provider URLs need a generous line buffer.
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)

	var current *Entry
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#EXTM3U") {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			entry, err := parseExtinf(line)
			if err != nil {
				if p.OnError != nil {
					p.OnError(lineNum, err)
				}
				current = nil
				continue
			}
			current = entry
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		// A bare line following EXTINF is the stream URL.
		if current == nil {
			continue
		}
		current.URL = line
		if err := p.OnEntry(current); err != nil {
			return fmt.Errorf("entry callback at line %d: %w", lineNum, err)
		}
		current = nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading playlist: %w", err)
	}
	return nil
}

func parseExtinf(line string) (*Entry, error) {
	m := extinfRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("malformed EXTINF line: %s", line)
	}

	entry := &Entry{}
	entry.Duration, _ = strconv.Atoi(m[1])

	rest := m[2]
	for _, attr := range attrRegex.FindAllStringSubmatch(rest, -1) {
		value := attr[2]
		if value == "" {
			value = attr[3]
		}
		switch strings.ToLower(attr[1]) {
		case "tvg-id":
			entry.TvgID = value
		case "tvg-name":
			entry.TvgName = value
		case "tvg-logo":
			entry.TvgLogo = value
		case "group-title":
			entry.GroupTitle = value
		}
	}

	// The display title follows the last comma outside the attributes.
	if i := strings.LastIndex(rest, ","); i >= 0 {
		entry.Title = strings.TrimSpace(rest[i+1:])
	}
	return entry, nil
}

// Writer emits an extended M3U playlist.
type Writer struct {
	w             io.Writer
	headerWritten bool
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the #EXTM3U header. WriteEntry calls it implicitly.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(w.w, "#EXTM3U"); err != nil {
		return fmt.Errorf("writing playlist header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteEntry writes one channel.
func (w *Writer) WriteEntry(entry *Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var attrs []string
	if entry.TvgID != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-id="%s"`, escapeQuotes(entry.TvgID)))
	}
	if entry.TvgName != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-name="%s"`, escapeQuotes(entry.TvgName)))
	}
	if entry.TvgLogo != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-logo="%s"`, escapeQuotes(entry.TvgLogo)))
	}
	if entry.GroupTitle != "" {
		attrs = append(attrs, fmt.Sprintf(`group-title="%s"`, escapeQuotes(entry.GroupTitle)))
	}

	line := fmt.Sprintf("#EXTINF:%d", entry.Duration)
	if len(attrs) > 0 {
		line += " " + strings.Join(attrs, " ")
	}
	line += "," + entry.Title

	if _, err := fmt.Fprintln(w.w, line); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	if _, err := fmt.Fprintln(w.w, entry.URL); err != nil {
		return fmt.Errorf("writing entry URL: %w", err)
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
