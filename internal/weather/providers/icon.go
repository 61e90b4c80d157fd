package providers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sony/gobreaker"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/i474232898/current-conditions/internal/weather"
)

// maxIconBytes bounds how much of an icon response is read.
const maxIconBytes = 2 << 20

// IconFetcher downloads and decodes condition icons.
type IconFetcher struct {
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIconFetcher(httpCfg HTTPClientConfig) *IconFetcher {
	return &IconFetcher{
		httpCfg: httpCfg,
		circuit: newBreaker("icon"),
	}
}

// FetchIcon downloads iconURL and checks that it is a decodable image.
func (f *IconFetcher) FetchIcon(ctx context.Context, iconURL string) (weather.Icon, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, iconURL, nil)
	}

	resp, err := doRequestWithResilience(ctx, "fetch icon", f.httpCfg, f.circuit, buildRequest)
	if err != nil {
		return weather.Icon{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil {
		return weather.Icon{}, &weather.NetworkError{Op: "fetch icon", URL: iconURL, Err: err}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return weather.Icon{}, &weather.ParseError{Op: "fetch icon", URL: iconURL, Err: fmt.Errorf("decode image: %w", err)}
	}

	return weather.Icon{
		URL:         iconURL,
		ContentType: mimetype.Detect(data).String(),
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        data,
	}, nil
}
