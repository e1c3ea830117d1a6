package imagecache

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/arcanaland/lumen/internal/deck"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	unsafeChar = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// Sanitize turns a card name into a file name stem
func Sanitize(name string) string {
	return unsafeChar.ReplaceAllString(whitespace.ReplaceAllString(name, "_"), "")
}

// AssetPath returns the pre-generated asset file name for a card
func AssetPath(v deck.Variant, name string) string {
	return string(v) + "_" + Sanitize(name) + ".png"
}

// AssetProber checks the static asset store. It never writes.
type AssetProber interface {
	// Probe returns the reference of the asset at path and whether it exists.
	Probe(ctx context.Context, path string) (string, bool)
}

// NewProber picks a prober for root: http(s) URLs are probed with HEAD,
// anything else is treated as a directory.
func NewProber(root string) AssetProber {
	if u, err := url.Parse(root); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return &HTTPProber{Root: root}
	}
	return DirProber{Root: root}
}

// HTTPProber probes assets served over HTTP
type HTTPProber struct {
	Root   string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context, path string) (string, bool) {
	ref := strings.TrimSuffix(p.Root, "/") + "/" + path

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return "", false
	}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}
	return ref, true
}

// DirProber probes assets in a local directory
type DirProber struct {
	Root string
}

func (p DirProber) Probe(ctx context.Context, path string) (string, bool) {
	if p.Root == "" {
		return "", false
	}
	full := filepath.Join(p.Root, path)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
