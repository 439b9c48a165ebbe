package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"webappinfo/internal/webapp"
)

// Manifest is the subset of a W3C web app manifest that maps onto
// WebApplicationInfo.
type Manifest struct {
	Name        string         `json:"name"`
	ShortName   string         `json:"short_name"`
	Description string         `json:"description"`
	StartURL    string         `json:"start_url"`
	Display     string         `json:"display"`
	Icons       []ManifestIcon `json:"icons"`

	base *url.URL
}

// ManifestIcon is one entry of a manifest's icons array.
type ManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// ParseManifest decodes a manifest. Relative URLs inside it are resolved
// against base, the manifest's own URL.
func ParseManifest(base *url.URL, r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.base = base
	return &m, nil
}

// Apply merges the manifest into info. Manifest values win over page
// values where both exist; icons are appended after the page's icons.
func (m *Manifest) Apply(info *webapp.WebApplicationInfo) {
	switch {
	case m.Name != "":
		info.Title = m.Name
	case m.ShortName != "" && info.Title == "":
		info.Title = m.ShortName
	}

	if m.Description != "" {
		info.Description = m.Description
	}

	if m.StartURL != "" {
		if u := resolve(m.base, m.StartURL); u != "" {
			info.AppURL = u
		}
	}

	switch m.Display {
	case "standalone", "fullscreen", "minimal-ui":
		info.IsBookmarkApp = false
	}

	for _, ic := range m.Icons {
		src := resolve(m.base, ic.Src)
		if src == "" {
			continue
		}
		sz := largestSize(parseSizes(ic.Sizes))
		addIcon(info, webapp.IconInfo{URL: src, Width: sz[0], Height: sz[1]})
	}
}

// parseSizes parses a sizes attribute ("16x16 32x32", "any"). It always
// returns at least one entry; unknown sizes are 0x0.
func parseSizes(s string) [][2]int {
	var out [][2]int
	for _, f := range strings.Fields(strings.ToLower(s)) {
		w, h, ok := parseSize(f)
		if ok {
			out = append(out, [2]int{w, h})
		}
	}
	if len(out) == 0 {
		out = append(out, [2]int{0, 0})
	}
	return out
}

// largestSize returns the entry of sizes with the largest area, the first
// one on ties.
func largestSize(sizes [][2]int) [2]int {
	best := sizes[0]
	for _, sz := range sizes[1:] {
		if sz[0]*sz[1] > best[0]*best[1] {
			best = sz
		}
	}
	return best
}

func parseSize(s string) (int, int, bool) {
	ws, hs, found := strings.Cut(s, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
