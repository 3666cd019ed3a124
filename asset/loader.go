package asset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/mtclare/Storm-Machine/constant"
	"github.com/mtclare/Storm-Machine/core"
)

// maxAssetBytes caps a single fetched asset
const maxAssetBytes = 64 << 20

// Result reports the outcome of one asset
type Result struct {
	Layer   core.Layer
	Index   int // Position within the layer's locator list
	Locator string
	Buffer  *beep.Buffer
	Err     error
}

// OK reports whether the asset decoded
func (r Result) OK() bool {
	return r.Err == nil && r.Buffer != nil
}

// Loader fetches and decodes manifest assets into in-memory buffers
type Loader struct {
	format  beep.Format
	workers int
	client  *http.Client
	logger  *log.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithWorkers bounds concurrent fetches
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithHTTPClient overrides the client used for http(s) locators
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger sets the destination for per-asset diagnostics
func WithLogger(lg *log.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a loader producing buffers in format
func NewLoader(format beep.Format, opts ...LoaderOption) *Loader {
	l := &Loader{
		format:  format,
		workers: constant.DefaultLoaderWorkers,
		client:  &http.Client{Timeout: constant.AssetFetchTimeout},
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type job struct {
	layer   core.Layer
	index   int
	locator string
}

// Load fetches every asset in m concurrently. Each outcome is passed to report
// as it completes (calls are serialized) and the full set is returned in
// layer/index order. A failed asset never prevents the others from loading.
func (l *Loader) Load(ctx context.Context, m Manifest, report func(Result)) []Result {
	var jobs []job
	for _, layer := range core.Layers {
		for i, loc := range m.Locators(layer) {
			jobs = append(jobs, job{layer: layer, index: i, locator: loc})
		}
	}

	results := make([]Result, 0, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, l.workers)

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				l.record(&mu, &results, report, Result{Layer: j.layer, Index: j.index, Locator: j.locator, Err: ctx.Err()})
				return
			}

			buf, err := l.loadOne(ctx, j.locator)
			l.record(&mu, &results, report, Result{
				Layer:   j.layer,
				Index:   j.index,
				Locator: j.locator,
				Buffer:  buf,
				Err:     err,
			})
		}(j)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool {
		if results[a].Layer != results[b].Layer {
			return results[a].Layer < results[b].Layer
		}
		return results[a].Index < results[b].Index
	})
	return results
}

func (l *Loader) record(mu *sync.Mutex, results *[]Result, report func(Result), r Result) {
	mu.Lock()
	defer mu.Unlock()

	if r.Err != nil {
		l.logger.Printf("[asset] %s %s: %v", r.Layer, r.Locator, r.Err)
	} else {
		l.logger.Printf("[asset] %s %s: %d frames", r.Layer, r.Locator, r.Buffer.Len())
	}

	*results = append(*results, r)
	if report != nil {
		report(r)
	}
}

// loadOne fetches, decodes and buffers a single locator
func (l *Loader) loadOne(ctx context.Context, locator string) (*beep.Buffer, error) {
	data, err := l.fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	return l.Decode(locator, data)
}

// Decode turns raw file bytes into a buffer in the loader's format.
// The codec is chosen from the locator's extension.
func (l *Loader) Decode(locator string, data []byte) (*beep.Buffer, error) {
	streamer, format, err := decode(extension(locator), data)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != l.format.SampleRate {
		s = beep.Resample(constant.ResampleQuality, format.SampleRate, l.format.SampleRate, streamer)
	}

	buf := beep.NewBuffer(l.format)
	buf.Append(s)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, locator, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAsset, locator)
	}
	return buf, nil
}

func decode(ext string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(data))

	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch ext {
	case ".wav":
		s, format, err = wav.Decode(bytes.NewReader(data))
	case ".mp3":
		s, format, err = mp3.Decode(rc)
	case ".ogg", ".oga":
		s, format, err = vorbis.Decode(rc)
	case ".flac":
		s, format, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return s, format, nil
}

// fetch reads a locator fully into memory
func (l *Loader) fetch(ctx context.Context, locator string) ([]byte, error) {
	if isRemote(locator) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, locator, resp.StatusCode)
		}
		return readLimited(resp.Body)
	}

	f, err := os.Open(strings.TrimPrefix(locator, "file://"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("%w: asset exceeds %d bytes", ErrFetch, maxAssetBytes)
	}
	return data, nil
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// extension returns the lower-cased file extension, ignoring URL queries
func extension(locator string) string {
	p := locator
	if isRemote(locator) {
		if u, err := url.Parse(locator); err == nil {
			p = u.Path
		}
	}
	return strings.ToLower(path.Ext(p))
}

// Summary counts loaded and failed assets per layer
type Summary struct {
	Loaded [core.LayerCount]int
	Failed [core.LayerCount]int
}

// Summarize tallies results
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if !r.Layer.Valid() {
			continue
		}
		if r.OK() {
			s.Loaded[r.Layer]++
		} else {
			s.Failed[r.Layer]++
		}
	}
	return s
}

func (s Summary) String() string {
	parts := make([]string, 0, core.LayerCount)
	for _, l := range core.Layers {
		parts = append(parts, fmt.Sprintf("%s=%d/%d", l, s.Loaded[l], s.Loaded[l]+s.Failed[l]))
	}
	return strings.Join(parts, " ")
}
