package samplehttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/sampler"
	"github.com/go-audio/wav"
)

// maxSampleBytes bounds a single sample download.
const maxSampleBytes = 32 << 20

// ErrInvalidWAV is returned for a body that is not a PCM WAV file.
var ErrInvalidWAV = errors.New("not a valid WAV file")

// Client implements sampler.Fetcher by downloading and decoding WAV files.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a sample fetcher. A zero timeout means none.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the file at fullURL and decodes it.
func (c *Client) Fetch(ctx context.Context, fullURL string) (*sampler.Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sample request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sample server error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSampleBytes))
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}

	sample, err := Decode(fullURL, body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("sample decoded",
		"url", fullURL,
		"sample_rate", sample.SampleRate,
		"channels", sample.Channels,
		"frames", sample.Frames,
	)
	return sample, nil
}

// Decode parses a PCM WAV file into a sample.
func Decode(url string, data []byte) (*sampler.Sample, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("decode wav: %d channels", channels)
	}

	return &sampler.Sample{
		URL:        url,
		SampleRate: buf.Format.SampleRate,
		Channels:   channels,
		BitDepth:   int(dec.BitDepth),
		Frames:     len(buf.Data) / channels,
		PCM:        buf.Data,
	}, nil
}
