package imageloader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/domain/entity"
	"memecoin_tracker/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	maxRedirects  = 5
	maxImageBytes = 10 << 20
)

// resolverImpl implements port.ImageResolver with fasthttp probes whose results are cached.
type resolverImpl struct {
	client    *fasthttp.Client
	templates []string
	imagesDir string
	probes    *cache.Cache
	logger    *zap.Logger
}

// NewImageResolver creates a resolver trying the list image first, then each template in order.
func NewImageResolver(cfg config.ImageSourcesConfig, imagesDir string, logger *zap.Logger) port.ImageResolver {
	timeout := cfg.ProbeTimeout()
	return &resolverImpl{
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxImageBytes,
		},
		templates: cfg.Templates,
		imagesDir: imagesDir,
		probes:    cache.New(cfg.CacheTTL(), 2*cfg.CacheTTL()),
		logger:    logger.Named("ImageResolver"),
	}
}

// Candidates returns the URLs tried for token, in order.
func Candidates(token entity.TokenSummary, templates []string) []string {
	var urls []string
	if token.ImageURL != "" {
		urls = append(urls, token.ImageURL)
	}
	sym := strings.ToLower(strings.TrimSpace(token.Symbol))
	if sym == "" {
		return urls
	}
	for _, tmpl := range templates {
		urls = append(urls, strings.ReplaceAll(tmpl, config.SymbolPlaceholder, sym))
	}
	return urls
}

// Resolve implements port.ImageResolver.
func (r *resolverImpl) Resolve(ctx context.Context, token entity.TokenSummary) string {
	for _, candidate := range Candidates(token, r.templates) {
		if ctx.Err() != nil {
			return ""
		}
		if r.reachable(candidate) {
			r.logger.Debug("Resolved image", zap.String("tokenID", token.ID), zap.String("url", candidate))
			return candidate
		}
	}
	r.logger.Info("No reachable image source", zap.String("tokenID", token.ID), zap.String("symbol", token.Symbol))
	return ""
}

func (r *resolverImpl) reachable(url string) bool {
	if ok, found := r.probes.Get(url); found {
		return ok.(bool)
	}

	status, _, err := r.get(url)
	ok := err == nil && status >= 200 && status < 300
	if err != nil {
		r.logger.Debug("Image probe failed", zap.String("url", url), zap.Error(err))
	}
	r.probes.SetDefault(url, ok)
	return ok
}

// Download implements port.ImageResolver. The image bytes are written unmodified.
func (r *resolverImpl) Download(ctx context.Context, url, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid token id %q for image file", id)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	status, body, err := r.get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download image from %s: %w", url, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("failed to download image from %s: status %d", url, status)
	}

	path := filepath.Join(r.imagesDir, id+".png")
	if err := utils.WriteFileAtomic(path, body); err != nil {
		return "", fmt.Errorf("failed to store image for %s: %w", id, err)
	}
	r.logger.Info("Downloaded image", zap.String("tokenID", id), zap.String("path", path), zap.Int("bytes", len(body)))
	return path, nil
}

func (r *resolverImpl) get(url string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	start := time.Now()
	if err := r.client.DoRedirects(req, resp, maxRedirects); err != nil {
		return 0, nil, err
	}
	r.logger.Debug("Image request done",
		zap.String("url", url),
		zap.Int("statusCode", resp.StatusCode()),
		zap.Duration("took", time.Since(start)))
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}
