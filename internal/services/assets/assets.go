package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/imageutil"

	"go.uber.org/zap"
)

const maxAssetBytes = 25 << 20

var (
	ErrEmptyReference = errors.New("asset reference is empty")
	ErrFetchFailed    = errors.New("asset fetch failed")
)

type Fetcher interface {
	Fetch(ctx context.Context, ref types.AssetRef) (types.Image, error)
}

// HTTPFetcher resolves asset references over HTTP. References that resolve
// to the studio's own origin are fetched with the service token; anything
// else is fetched anonymously.
type HTTPFetcher struct {
	client        *http.Client
	origin        *url.URL
	uploadBaseURL string
	serviceToken  string
	maxDimension  int
	logger        *zap.Logger
}

func NewHTTPFetcher(cfg *config.AssetsConfig, logger *zap.Logger) (*HTTPFetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("assets config is not set")
	}

	origin, err := url.Parse(strings.TrimSuffix(cfg.PublicOrigin, "/"))
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid assets.public_origin %q", cfg.PublicOrigin)
	}

	uploadBase := strings.TrimSuffix(cfg.UploadBaseUrl, "/")
	if uploadBase == "" {
		uploadBase = origin.String() + "/uploads"
	}

	return &HTTPFetcher{
		client:        &http.Client{Timeout: 60 * time.Second},
		origin:        origin,
		uploadBaseURL: uploadBase,
		serviceToken:  cfg.ServiceToken,
		maxDimension:  cfg.MaxDimension,
		logger:        logger,
	}, nil
}

// Resolve turns a reference into an absolute URL and reports whether it
// points at the studio's own origin.
func (f *HTTPFetcher) Resolve(ref types.AssetRef) (string, bool, error) {
	var raw string
	switch {
	case ref.UploadID != "":
		raw = f.uploadBaseURL + "/" + url.PathEscape(ref.UploadID)
	case ref.Path != "":
		raw = f.origin.String() + "/" + strings.TrimPrefix(ref.Path, "/")
	case ref.URL != "":
		raw = ref.URL
	default:
		return "", false, ErrEmptyReference
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid asset url %q: %w", raw, err)
	}

	// Protocol-relative and scheme-less URLs are treated as same-origin paths.
	if u.Host == "" {
		u = f.origin.ResolveReference(u)
	}

	sameOrigin := strings.EqualFold(u.Scheme, f.origin.Scheme) && strings.EqualFold(u.Host, f.origin.Host)
	return u.String(), sameOrigin, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref types.AssetRef) (types.Image, error) {
	target, sameOrigin, err := f.Resolve(ref)
	if err != nil {
		return types.Image{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return types.Image{}, err
	}
	if sameOrigin && f.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.serviceToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return types.Image{}, fmt.Errorf("%w: %s: %w", ErrFetchFailed, ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Image{}, fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, ref, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return types.Image{}, fmt.Errorf("%w: %s: %w", ErrFetchFailed, ref, err)
	}
	if len(data) > maxAssetBytes {
		return types.Image{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetchFailed, ref, maxAssetBytes)
	}

	// The body is sniffed rather than trusting the Content-Type header.
	mime, err := imageutil.Detect(data)
	if err != nil {
		return types.Image{}, fmt.Errorf("%s: %w", ref, err)
	}

	img, err := imageutil.Downscale(types.Image{Data: data, MIMEType: mime}, f.maxDimension)
	if err != nil {
		f.logger.Warn("failed to downscale asset, using original", zap.String("ref", ref.String()), zap.Error(err))
		return types.Image{Data: data, MIMEType: mime}, nil
	}

	return img, nil
}
