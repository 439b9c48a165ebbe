package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"webappinfo/internal/webapp"
)

func TestApplyArg(t *testing.T) {
	info := &webapp.WebApplicationInfo{}

	for _, kv := range [][2]string{
		{"title", "Nginx"},
		{"desc", "Web server"},
		{"url", "http://localhost:80/"},
		{"bookmark", "true"},
		{"offline", "1"},
	} {
		if err := applyArg(info, kv[0], kv[1]); err != nil {
			t.Fatalf("applyArg(%s) error = %v", kv[0], err)
		}
	}

	if info.Title != "Nginx" || info.Description != "Web server" || info.AppURL != "http://localhost:80/" {
		t.Errorf("unexpected info %+v", info)
	}
	if !info.IsBookmarkApp || !info.IsOfflineEnabled {
		t.Errorf("flags not applied: %+v", info)
	}

	if err := applyArg(info, "offline", "maybe"); err == nil {
		t.Error("applyArg(offline=maybe) should fail")
	}
	if err := applyArg(info, "color", "red"); err == nil {
		t.Error("applyArg(unknown) should fail")
	}
}

func TestApplyArg_Icon(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 24, 12))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "icon.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	info := &webapp.WebApplicationInfo{}
	if err := applyArg(info, "icon", path); err != nil {
		t.Fatalf("applyArg(icon) error = %v", err)
	}
	if len(info.Icons) != 1 {
		t.Fatalf("len(Icons) = %d, want 1", len(info.Icons))
	}
	if ic := info.Icons[0]; ic.Width != 24 || ic.Height != 12 || !ic.HasData() {
		t.Errorf("icon = %dx%d (data %v), want 24x12 with data", ic.Width, ic.Height, ic.HasData())
	}

	if err := applyArg(info, "icon", filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("applyArg(icon=missing) should fail")
	}
}
