package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"webappinfo/internal/webapp"
)

func TestManifest_Apply(t *testing.T) {
	base := mustURL(t, "https://example.com/static/manifest.json")
	m, err := ParseManifest(base, strings.NewReader(`{
		"short_name": "Short",
		"description": "From manifest",
		"start_url": "../",
		"display": "browser",
		"icons": [
			{"src": "icon.png", "sizes": "48x48 96x96"},
			{"src": "any.svg", "sizes": "any"},
			{"src": "javascript:void(0)"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}

	info := &webapp.WebApplicationInfo{IsBookmarkApp: true}
	m.Apply(info)

	want := &webapp.WebApplicationInfo{
		Title:       "Short",
		Description: "From manifest",
		AppURL:      "https://example.com/",
		Icons: []webapp.IconInfo{
			{URL: "https://example.com/static/icon.png", Width: 96, Height: 96},
			{URL: "https://example.com/static/any.svg"},
		},
		IsBookmarkApp: true,
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestManifest_Apply_SkipsKnownURLs(t *testing.T) {
	m, err := ParseManifest(mustURL(t, "https://example.com/manifest.json"), strings.NewReader(`{
		"icons": [
			{"src": "/a.png", "sizes": "512x512"},
			{"src": "/b.png", "sizes": "192x192"},
			{"src": "/b.png", "sizes": "512x512"}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	info := &webapp.WebApplicationInfo{Icons: []webapp.IconInfo{{URL: "https://example.com/a.png", Width: 32, Height: 32}}}
	m.Apply(info)

	want := []webapp.IconInfo{
		{URL: "https://example.com/a.png", Width: 32, Height: 32},
		{URL: "https://example.com/b.png", Width: 192, Height: 192},
	}
	if diff := cmp.Diff(want, info.Icons); diff != "" {
		t.Errorf("Icons mismatch (-want +got):\n%s", diff)
	}
}

func TestManifest_Apply_ShortNameKeepsPageTitle(t *testing.T) {
	m, err := ParseManifest(mustURL(t, "https://example.com/m.json"), strings.NewReader(`{"short_name": "S"}`))
	if err != nil {
		t.Fatal(err)
	}
	info := &webapp.WebApplicationInfo{Title: "Page", AppURL: "https://example.com/"}
	m.Apply(info)
	if info.Title != "Page" {
		t.Errorf("Title = %q, want Page", info.Title)
	}
	if info.AppURL != "https://example.com/" {
		t.Errorf("AppURL = %q, want unchanged", info.AppURL)
	}
}

func TestManifest_Apply_Display(t *testing.T) {
	for _, display := range []string{"standalone", "fullscreen", "minimal-ui"} {
		m, err := ParseManifest(nil, strings.NewReader(`{"display": "`+display+`"}`))
		if err != nil {
			t.Fatal(err)
		}
		info := &webapp.WebApplicationInfo{IsBookmarkApp: true}
		m.Apply(info)
		if info.IsBookmarkApp {
			t.Errorf("display %q: IsBookmarkApp = true, want false", display)
		}
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	if _, err := ParseManifest(nil, strings.NewReader(`[1,2`)); err == nil {
		t.Error("ParseManifest() should fail on invalid json")
	}
}
