package coverart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"
)

// newTestServer serves a two-release search, one listing and one image
func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/ws/2/release", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("fmt") != "json" || q.Get("format") != "Vinyl" || q.Get("type") != "album" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		if q.Get("offset") == "100" {
			fmt.Fprint(w, `{"count":250,"offset":100,"releases":[{"id":"mbid-3"}]}`)
			return
		}
		fmt.Fprint(w, `{"count":250,"offset":0,"releases":[{"id":"mbid-1"},{"id":"mbid-2"}]}`)
	})
	mux.HandleFunc("/release/mbid-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"images":[
			{"front":true,"image":"%[1]s/img/1001.jpg","thumbnails":{"small":"%[1]s/img/1001-250.jpg","large":"%[1]s/img/1001-500.jpg"}},
			{"front":false,"image":"%[1]s/img/1002.jpg","thumbnails":{}}
		]}`, server.URL)
	})
	mux.HandleFunc("/release/mbid-2", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprint(w, "jpeg-bytes:"+filepath.Base(r.URL.Path))
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClientWithHTTP(server.Client(), rate.NewLimiter(rate.Inf, 1))
	client.MusicBrainzURL = server.URL + "/ws/2/release"
	client.CoverArtURL = server.URL + "/release"
	return server, client
}

func TestReleaseCountAndPages(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	count, err := client.ReleaseCount(ctx)
	if err != nil {
		t.Fatalf("ReleaseCount failed: %v", err)
	}
	if count != 250 {
		t.Errorf("count = %d, want 250", count)
	}

	first, err := client.Releases(ctx, 0)
	if err != nil {
		t.Fatalf("Releases(0) failed: %v", err)
	}
	if strings.Join(first, ",") != "mbid-1,mbid-2" {
		t.Errorf("page 0 = %v", first)
	}

	second, err := client.Releases(ctx, 1)
	if err != nil {
		t.Fatalf("Releases(1) failed: %v", err)
	}
	if len(second) != 1 || second[0] != "mbid-3" {
		t.Errorf("page 1 = %v", second)
	}
}

func TestFrontImageURLs(t *testing.T) {
	server, client := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		size string
		want string
	}{
		{"", server.URL + "/img/1001.jpg"},
		{"small", server.URL + "/img/1001-250.jpg"},
		{"large", server.URL + "/img/1001-500.jpg"},
	}
	for _, tt := range tests {
		urls, err := client.FrontImageURLs(ctx, "mbid-1", tt.size)
		if err != nil {
			t.Fatalf("FrontImageURLs(%q) failed: %v", tt.size, err)
		}
		if len(urls) != 1 || urls[0] != tt.want {
			t.Errorf("FrontImageURLs(%q) = %v, want [%s]", tt.size, urls, tt.want)
		}
	}

	if _, err := client.FrontImageURLs(ctx, "mbid-2", ""); !errors.Is(err, ErrNoCoverArt) {
		t.Errorf("missing release error = %v, want ErrNoCoverArt", err)
	}
}

func TestDownload(t *testing.T) {
	server, client := newTestServer(t)
	dir := filepath.Join(t.TempDir(), "images")

	path, err := client.Download(context.Background(), server.URL+"/img/1001.jpg", dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if path != filepath.Join(dir, "1001.jpg") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "jpeg-bytes:1001.jpg" {
		t.Errorf("content = %q", data)
	}

	if _, err := client.Download(context.Background(), server.URL+"/", dir); err == nil {
		t.Error("expected error for URL without a file name")
	}
}

func TestRetryOnServiceUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"count":7,"releases":[]}`)
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.Client(), rate.NewLimiter(rate.Inf, 1))
	client.MusicBrainzURL = server.URL

	count, err := client.ReleaseCount(context.Background())
	if err != nil {
		t.Fatalf("ReleaseCount failed: %v", err)
	}
	if count != 7 || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("count = %d after %d calls, want 7 after 3", count, calls)
	}

	client.MaxRetries = 0
	atomic.StoreInt32(&calls, 0)
	if _, err := client.ReleaseCount(context.Background()); err == nil {
		t.Error("expected error when retries are exhausted")
	}
}

func TestValidateImageSize(t *testing.T) {
	for _, size := range []string{"", "small", "large"} {
		if err := ValidateImageSize(size); err != nil {
			t.Errorf("ValidateImageSize(%q) = %v", size, err)
		}
	}
	if err := ValidateImageSize("huge"); err == nil {
		t.Error("expected error for unknown size")
	}
}
