package icon

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappinfo/internal/webapp"
)

func TestFetcher_Fetch_Caches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("icon-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(WithHTTPClient(srv.Client()))
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/a.png")
	require.NoError(t, err)
	first[0] = 'X'

	second, err := f.Fetch(ctx, srv.URL+"/a.png")
	require.NoError(t, err)

	assert.Equal(t, "icon-bytes", string(second), "cached bytes must not alias caller buffers")
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_Fetch_NoCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := NewFetcher(WithHTTPClient(srv.Client()), WithCacheTTL(0))
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_Fetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			w.Write(make([]byte, 64))
		}
	}))
	defer srv.Close()

	f := NewFetcher(WithHTTPClient(srv.Client()), WithMaxBytes(32))

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrHTTPStatus)

	_, err = f.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetcher_FetchAll(t *testing.T) {
	_, png48 := coloredRectangle(t, 48, 48, color.White)
	ico := pngICO(t, 16, 32)

	mux := http.NewServeMux()
	mux.HandleFunc("/icon.png", func(w http.ResponseWriter, r *http.Request) { w.Write(png48) })
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) { w.Write(ico) })
	mux.HandleFunc("/garbage.png", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("nope")) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, inline := coloredRectangle(t, 8, 8, color.Black)
	info := &webapp.WebApplicationInfo{
		AppURL: srv.URL,
		Icons: []webapp.IconInfo{
			{URL: srv.URL + "/icon.png", Width: 192, Height: 192},
			{URL: srv.URL + "/missing.png"},
			{URL: srv.URL + "/garbage.png"},
			{URL: srv.URL + "/favicon.ico"},
			{URL: "inline", Data: inline},
		},
	}

	f := NewFetcher(WithHTTPClient(srv.Client()))
	require.NoError(t, f.FetchAll(context.Background(), info))

	type dim struct {
		url  string
		w, h int
	}
	var got []dim
	for _, ic := range info.Icons {
		assert.Equal(t, FormatPNG, DetectFormat(ic.Data), ic.URL)
		got = append(got, dim{ic.URL, ic.Width, ic.Height})
	}
	assert.Equal(t, []dim{
		{srv.URL + "/icon.png", 48, 48},
		{srv.URL + "/favicon.ico", 16, 16},
		{srv.URL + "/favicon.ico", 32, 32},
		{"inline", 8, 8},
	}, got)
}

func TestFetcher_FetchAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	info := &webapp.WebApplicationInfo{Icons: []webapp.IconInfo{{URL: "http://127.0.0.1:1/icon.png"}}}
	err := NewFetcher().FetchAll(ctx, info)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, info.Icons, 1, "icons are left untouched on cancellation")
}
