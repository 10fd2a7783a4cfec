package xmltv

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="one.example">
    <display-name>Channel One</display-name>
    <icon src="http://example.com/one.png"/>
  </channel>
  <channel id="two.example">
    <display-name>Channel Two</display-name>
  </channel>
  <programme start="20260102090000 +0000" stop="20260102100000 +0000" channel="one.example">
    <title>Morning News</title>
    <desc>Headlines &amp; weather.</desc>
    <category>News</category>
  </programme>
  <programme start="20260102100000 +0000" stop="20260102110000 +0000" channel="one.example">
    <title>Quiz Hour</title>
  </programme>
  <programme start="20260102090000 +0000" stop="20260102120000 +0000" channel="orphan.example">
    <title>Nobody Watches</title>
  </programme>
</tv>`

func TestParser_Parse(t *testing.T) {
	var channels []*Channel
	var programmes []*Programme

	p := &Parser{
		OnChannel: func(ch *Channel) error {
			channels = append(channels, ch)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}

	if err := p.Parse(strings.NewReader(sampleXMLTV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}
	if channels[0].ID != "one.example" {
		t.Errorf("unexpected channel ID: %q", channels[0].ID)
	}
	if channels[0].DisplayName != "Channel One" {
		t.Errorf("unexpected display name: %q", channels[0].DisplayName)
	}
	if channels[0].Icon != "http://example.com/one.png" {
		t.Errorf("unexpected icon: %q", channels[0].Icon)
	}

	if len(programmes) != 3 {
		t.Fatalf("expected 3 programmes, got %d", len(programmes))
	}
	first := programmes[0]
	if first.Start != "20260102090000 +0000" {
		t.Errorf("start should be kept raw, got %q", first.Start)
	}
	if first.Stop != "20260102100000 +0000" {
		t.Errorf("stop should be kept raw, got %q", first.Stop)
	}
	if first.Title != "Morning News" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.Description != "Headlines & weather." {
		t.Errorf("entity not decoded: %q", first.Description)
	}
	if first.Category != "News" {
		t.Errorf("unexpected category: %q", first.Category)
	}
}

func TestParser_ParseCompressed_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(sampleXMLTV)); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	var count int
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			count++
			return nil
		},
	}
	if err := p.ParseCompressed(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 programmes, got %d", count)
	}
}

func TestParser_ParseCompressed_Plain(t *testing.T) {
	var count int
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			count++
			return nil
		},
	}
	if err := p.ParseCompressed(strings.NewReader(sampleXMLTV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 channels, got %d", count)
	}
}

func TestParser_MalformedMarkupTolerated(t *testing.T) {
	// Providers emit sloppy XML; the decoder is non-strict.
	doc := `<tv>
  <programme start="20260102090000 +0000" stop="20260102100000 +0000" channel="a">
    <title>One & Two</title>
  </programme>
</tv>`

	var programmes []*Programme
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}
	if err := p.Parse(strings.NewReader(doc)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(programmes) != 1 {
		t.Fatalf("expected 1 programme, got %d", len(programmes))
	}
	if programmes[0].Title != "One & Two" {
		t.Errorf("unexpected title: %q", programmes[0].Title)
	}
}

func TestParseAll(t *testing.T) {
	channels, programmes, err := ParseAll(strings.NewReader(sampleXMLTV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(channels) != 2 || len(programmes) != 3 {
		t.Errorf("got %d channels / %d programmes", len(channels), len(programmes))
	}
}
