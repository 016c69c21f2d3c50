package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_SetsUserAgentAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "clinic-bot", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), "clinic-bot", 0, 4)
	for range 3 {
		p, err := f.Fetch(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, p.Status)
		assert.Contains(t, string(p.Body), "ok")
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_LimitsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	p, err := NewFetcher(srv.Client(), "ua", 100, 0).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, p.Body, 100)
}

func TestFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "cloudflare",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("cf-ray", "abc")
				w.WriteHeader(http.StatusForbidden)
			},
			want: "blocked (cloudflare)",
		},
		{
			name: "captcha",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<div class="g-recaptcha"></div>`))
			},
			want: "blocked (captcha)",
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: "status 404",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewFetcher(srv.Client(), "ua", 0, 4).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"clinic.example", "https://clinic.example/", false},
		{"http://clinic.example/about#team", "http://clinic.example/about", false},
		{" https://clinic.example ", "https://clinic.example/", false},
		{"", "", true},
		{"https://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := normalizeURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestProber(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{"head ok", func(w http.ResponseWriter, _ *http.Request) {}, true},
		{"head refused, get ok", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		}, true},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewProber(srv.Client(), "ua", time.Second)
			assert.Equal(t, tt.want, p.Reachable(context.Background(), srv.URL))
		})
	}
}

func TestProber_InvalidAndClosed(t *testing.T) {
	p := NewProber(nil, "ua", time.Second)
	assert.False(t, p.Reachable(context.Background(), ""))

	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()
	assert.False(t, p.Reachable(context.Background(), target))
}

func TestPathMatcher(t *testing.T) {
	m := NewPathMatcher([]string{"/blog/*", "/privacy*", "/*.pdf", " "})

	tests := []struct {
		path string
		want bool
	}{
		{"/blog/post", true},
		{"/Blog/2024/01/post", true},
		{"/blog", true},
		{"/privacy-policy", true},
		{"/brochure.pdf", true},
		{"/services", false},
		{"/blogger", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Excluded(&url.URL{Path: tt.path}))
		})
	}

	var nilMatcher *PathMatcher
	assert.False(t, nilMatcher.Excluded(&url.URL{Path: "/blog/x"}))
}
