package webapp

import (
	"errors"
	"fmt"
	"net/url"
)

// IconInfo describes a single icon candidate of a web application.
//
// Width and Height are descriptive: they may come from a declared sizes
// attribute and need not match the decoded Data.
type IconInfo struct {
	URL    string `yaml:"url" json:"url"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	Data   []byte `yaml:"-" json:"-"` // Encoded image bytes
}

// WebApplicationInfo holds the metadata of a web application.
// The zero value is the default: no title, no icons, both flags false.
type WebApplicationInfo struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	AppURL      string `yaml:"app_url" json:"app_url"`

	// Icons in the order they were discovered
	Icons []IconInfo `yaml:"icons,omitempty" json:"icons,omitempty"`

	IsBookmarkApp    bool `yaml:"is_bookmark_app" json:"is_bookmark_app"`
	IsOfflineEnabled bool `yaml:"is_offline_enabled" json:"is_offline_enabled"`
}

var (
	// ErrInvalidAppURL is returned by Validate when AppURL is not an absolute http(s) URL.
	ErrInvalidAppURL = errors.New("app url must be an absolute http or https url")
	// ErrInvalidIcon is returned by Validate for icons with negative dimensions.
	ErrInvalidIcon = errors.New("icon dimensions must not be negative")
)

// New returns a default-initialized WebApplicationInfo.
func New() *WebApplicationInfo {
	return &WebApplicationInfo{}
}

// HasData reports whether the icon carries image bytes.
func (i IconInfo) HasData() bool {
	return len(i.Data) > 0
}

// Area returns Width*Height.
func (i IconInfo) Area() int {
	return i.Width * i.Height
}

// Clone returns a copy of the icon that does not share its Data buffer.
func (i IconInfo) Clone() IconInfo {
	if i.Data != nil {
		data := make([]byte, len(i.Data))
		copy(data, i.Data)
		i.Data = data
	}
	return i
}

// AddIcon appends an icon, keeping discovery order.
func (w *WebApplicationInfo) AddIcon(icon IconInfo) {
	w.Icons = append(w.Icons, icon)
}

// Clone returns a deep copy of w. The copy owns its icon slice and every
// icon's Data, so either value can be mutated without affecting the other.
func (w WebApplicationInfo) Clone() WebApplicationInfo {
	if w.Icons != nil {
		icons := make([]IconInfo, len(w.Icons))
		for i, icon := range w.Icons {
			icons[i] = icon.Clone()
		}
		w.Icons = icons
	}
	return w
}

// LargestIcon returns the icon with the largest area. On ties the first
// one wins.
func (w WebApplicationInfo) LargestIcon() (IconInfo, bool) {
	if len(w.Icons) == 0 {
		return IconInfo{}, false
	}
	best := w.Icons[0]
	for _, icon := range w.Icons[1:] {
		if icon.Area() > best.Area() {
			best = icon
		}
	}
	return best, true
}

// IconForSize returns the smallest icon covering a px by px square, that is
// at least px wide and px high, falling back to the largest icon when none
// is big enough.
func (w WebApplicationInfo) IconForSize(px int) (IconInfo, bool) {
	var (
		best  IconInfo
		found bool
	)
	for _, icon := range w.Icons {
		if icon.Width < px || icon.Height < px {
			continue
		}
		if !found || icon.Area() < best.Area() {
			best = icon
			found = true
		}
	}
	if found {
		return best, true
	}
	return w.LargestIcon()
}

// Validate checks the fields an installer relies on. The type itself never
// enforces these; only consumers that need them call Validate.
func (w WebApplicationInfo) Validate() error {
	u, err := url.Parse(w.AppURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAppURL, w.AppURL)
	}
	for i, icon := range w.Icons {
		if icon.Width < 0 || icon.Height < 0 {
			return fmt.Errorf("icon %d (%s): %w", i, icon.URL, ErrInvalidIcon)
		}
	}
	return nil
}
