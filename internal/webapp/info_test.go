package webapp

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
)

// TestIconInfo_Default tests that a new icon has zeroed dimensions
func TestIconInfo_Default(t *testing.T) {
	var icon IconInfo
	if icon.Width != 0 || icon.Height != 0 {
		t.Errorf("IconInfo{} = %dx%d, want 0x0", icon.Width, icon.Height)
	}
	if icon.HasData() {
		t.Error("IconInfo{}.HasData() = true, want false")
	}
}

// TestWebApplicationInfo_Default tests that both flags start false
func TestWebApplicationInfo_Default(t *testing.T) {
	for name, info := range map[string]*WebApplicationInfo{
		"zero": {},
		"New":  New(),
	} {
		if info.IsBookmarkApp {
			t.Errorf("%s: IsBookmarkApp = true, want false", name)
		}
		if info.IsOfflineEnabled {
			t.Errorf("%s: IsOfflineEnabled = true, want false", name)
		}
		if info.Title != "" || info.AppURL != "" || len(info.Icons) != 0 {
			t.Errorf("%s: expected empty title, url and icons, got %+v", name, info)
		}
	}
}

func TestWebApplicationInfo_AddIcon(t *testing.T) {
	info := New()
	info.AddIcon(IconInfo{URL: "a.png", Width: 16, Height: 16})
	info.AddIcon(IconInfo{URL: "b.png", Width: 32, Height: 32})

	want := []IconInfo{
		{URL: "a.png", Width: 16, Height: 16},
		{URL: "b.png", Width: 32, Height: 32},
	}
	if diff := cmp.Diff(want, info.Icons); diff != "" {
		t.Errorf("Icons mismatch (-want +got):\n%s", diff)
	}
}

func TestWebApplicationInfo_Clone(t *testing.T) {
	orig := WebApplicationInfo{
		Title:  "App",
		AppURL: "https://example.com/",
		Icons: []IconInfo{
			{URL: "https://example.com/icon.png", Width: 48, Height: 48, Data: []byte{1, 2, 3}},
		},
		IsBookmarkApp: true,
	}

	clone := orig.Clone()
	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("Clone mismatch (-orig +clone):\n%s", diff)
	}

	clone.Icons[0].Data[0] = 9
	clone.Icons[0].Width = 1
	clone.AddIcon(IconInfo{URL: "extra"})

	if orig.Icons[0].Data[0] != 1 {
		t.Error("mutating clone data changed the original")
	}
	if orig.Icons[0].Width != 48 {
		t.Error("mutating clone icon changed the original")
	}
	if len(orig.Icons) != 1 {
		t.Errorf("len(orig.Icons) = %d, want 1", len(orig.Icons))
	}
}

// Property test: a clone is equal to the source and shares no icon data
func TestProperty_CloneIndependent(t *testing.T) {
	f := func(title string, data []byte, w, h int) bool {
		orig := WebApplicationInfo{Title: title, Icons: []IconInfo{{Width: w, Height: h, Data: data}}}
		clone := orig.Clone()
		if !cmp.Equal(orig, clone) {
			return false
		}
		if len(data) > 0 {
			clone.Icons[0].Data[0]++
			return orig.Icons[0].Data[0] != clone.Icons[0].Data[0]
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Errorf("Property test failed: %v", err)
	}
}

func TestWebApplicationInfo_Clone_NilIcons(t *testing.T) {
	clone := WebApplicationInfo{Title: "x"}.Clone()
	if clone.Icons != nil {
		t.Errorf("Clone of nil icons = %v, want nil", clone.Icons)
	}
}

func TestWebApplicationInfo_LargestIcon(t *testing.T) {
	info := WebApplicationInfo{Icons: []IconInfo{
		{URL: "16", Width: 16, Height: 16},
		{URL: "64a", Width: 64, Height: 64},
		{URL: "64b", Width: 64, Height: 64},
		{URL: "32", Width: 32, Height: 32},
	}}
	got, ok := info.LargestIcon()
	if !ok || got.URL != "64a" {
		t.Errorf("LargestIcon() = %q, %v; want 64a, true", got.URL, ok)
	}

	if _, ok := (WebApplicationInfo{}).LargestIcon(); ok {
		t.Error("LargestIcon() on empty info reported ok")
	}
}

func TestWebApplicationInfo_IconForSize(t *testing.T) {
	info := WebApplicationInfo{Icons: []IconInfo{
		{URL: "128", Width: 128, Height: 128},
		{URL: "32", Width: 32, Height: 32},
		{URL: "48", Width: 48, Height: 48},
		{URL: "banner", Width: 64, Height: 16},
	}}

	tests := []struct {
		px   int
		want string
	}{
		{16, "32"},
		{60, "128"}, // banner is wide enough but too short
		{32, "32"},
		{40, "48"},
		{100, "128"},
		{512, "128"}, // none big enough, falls back to largest
	}
	for _, tt := range tests {
		got, ok := info.IconForSize(tt.px)
		if !ok || got.URL != tt.want {
			t.Errorf("IconForSize(%d) = %q, %v; want %q", tt.px, got.URL, ok, tt.want)
		}
	}
}

func TestWebApplicationInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		info    WebApplicationInfo
		wantErr error
	}{
		{"valid", WebApplicationInfo{AppURL: "https://example.com/app"}, nil},
		{"empty url", WebApplicationInfo{}, ErrInvalidAppURL},
		{"relative url", WebApplicationInfo{AppURL: "/app"}, ErrInvalidAppURL},
		{"ftp url", WebApplicationInfo{AppURL: "ftp://example.com"}, ErrInvalidAppURL},
		{"negative icon", WebApplicationInfo{
			AppURL: "http://example.com",
			Icons:  []IconInfo{{Width: -1}},
		}, ErrInvalidIcon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
