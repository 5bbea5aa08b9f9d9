package gsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
)

// ErrEmptyDataset is returned when the dataset holds no station.
var ErrEmptyDataset = errors.New("dataset has no stations")

// Loader implements engine.DatasetLoader for a GSIM.json file served over
// HTTP(S) or read from the local filesystem.
type Loader struct {
	source     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLoader creates a loader for source, either an http(s) URL or a path.
// A zero timeout means none.
func NewLoader(source string, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		source: source,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Load fetches, decodes and normalizes the dataset. Every failure is a
// *domain.DatasetLoadError.
func (l *Loader) Load(ctx context.Context) ([]*domain.Station, error) {
	rc, err := l.open(ctx)
	if err != nil {
		return nil, &domain.DatasetLoadError{Source: l.source, Err: err}
	}
	defer rc.Close()

	stations, err := Decode(rc)
	if err != nil {
		return nil, &domain.DatasetLoadError{Source: l.source, Err: err}
	}
	l.logger.Debug("dataset decoded", "source", l.source, "stations", len(stations))
	return stations, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(l.source)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return l.fetch(ctx, u.String())
		case "file":
			return os.Open(u.Path)
		}
	}
	return os.Open(l.source)
}

func (l *Loader) fetch(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dataset server error: status %d: %s", resp.StatusCode, body)
	}
	return resp.Body, nil
}

// Decode reads the object keyed by station id and returns the stations in
// id order, normalized by Normalize.
func Decode(r io.Reader) ([]*domain.Station, error) {
	var raw map[string]*domain.Station
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return Normalize(raw)
}

// Normalize converts the id-keyed map to a slice sorted by id, assigns
// each station its index, clears has_been_selected, and rewrites every
// size to carry the dataset-wide extrema.
func Normalize(raw map[string]*domain.Station) ([]*domain.Station, error) {
	ids := make([]string, 0, len(raw))
	for id, st := range raw {
		if st == nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrEmptyDataset
	}
	sort.Strings(ids)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, id := range ids {
		v := raw[id].Data.Size.Val
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	stations := make([]*domain.Station, len(ids))
	for i, id := range ids {
		st := raw[id]
		if st.Info.ID == "" {
			st.Info.ID = id
		}
		st.Info.Index = i
		st.Info.HasBeenSelected = false
		st.Data.Size = domain.Size{Min: lo, Max: hi, Val: st.Data.Size.Val}
		stations[i] = st
	}
	return stations, nil
}
