// Package assetloader implements the timeout-bounded asset loading from
// spec §5: "asset loading bounded by timeout... individual asset failures
// logged, loader substitutes fallback".
//
// Grounded on common/types.go's ImportedTexture.Decode (stdlib
// image/png + image/jpeg, registered via blank import), extended with
// golang.org/x/image's bmp and tiff decoders so the loader accepts a
// wider asset corpus than the teacher's glTF-embedded-texture-only path,
// per SPEC_FULL.md §2's domain-stack wiring for golang.org/x/image.
package assetloader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/avidal-labs/fixedstep/common"
	"github.com/avidal-labs/fixedstep/simerr"
)

// DefaultPerAssetTimeout bounds a single asset's load attempt.
const DefaultPerAssetTimeout = 5 * time.Second

// DefaultOverallTimeout bounds a full LoadAll batch.
const DefaultOverallTimeout = 30 * time.Second

// Loader loads textures from disk with per-asset and overall timeouts,
// substituting a fallback texture for any asset that fails or times out.
type Loader struct {
	perAssetTimeout time.Duration
	overallTimeout  time.Duration
	fallback        *common.ImportedTexture

	// OnProgress, if set, is called after each asset attempt completes
	// (success or fallback), matching spec §6's render-worker `init`
	// on_progress hook's shape.
	OnProgress func(loaded, total int)
}

// Option configures a Loader at construction.
type Option func(*Loader)

// WithPerAssetTimeout overrides DefaultPerAssetTimeout.
func WithPerAssetTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.perAssetTimeout = d
		}
	}
}

// WithOverallTimeout overrides DefaultOverallTimeout.
func WithOverallTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.overallTimeout = d
		}
	}
}

// New creates a Loader with a solid-magenta 2x2 fallback texture, the
// conventional "missing texture" placeholder.
//
// Parameters:
//   - options: functional options configuring timeouts
//
// Returns:
//   - *Loader: the new loader
func New(options ...Option) *Loader {
	l := &Loader{
		perAssetTimeout: DefaultPerAssetTimeout,
		overallTimeout:  DefaultOverallTimeout,
		fallback:        fallbackTexture(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func fallbackTexture() *common.ImportedTexture {
	const size = 2
	pixels := make([]byte, size*size*4)
	for i := 0; i < size*size; i++ {
		pixels[i*4+0] = 0xff
		pixels[i*4+1] = 0x00
		pixels[i*4+2] = 0xff
		pixels[i*4+3] = 0xff
	}
	var encoded bytes.Buffer
	img := &image.NRGBA{Pix: pixels, Stride: size * 4, Rect: image.Rect(0, 0, size, size)}
	if err := png.Encode(&encoded, img); err != nil {
		log.Printf("assetloader: encoding fallback texture: %v", err)
	}
	return &common.ImportedTexture{
		Name:     "fallback",
		Data:     encoded.Bytes(),
		MimeType: "image/png",
		Width:    size,
		Height:   size,
	}
}

// LoadTexture loads one texture from path, bounded by the loader's
// per-asset timeout. On failure or timeout, it logs a warning and
// returns the fallback texture with a wrapped simerr.ErrResourceLoadFailure
// (the caller may ignore the error and use the returned texture, or
// treat a non-nil error as load-failed-but-degraded).
//
// Parameters:
//   - ctx: caller's context; the per-asset timeout is additionally
//     applied on top of whatever deadline ctx already carries
//   - path: the file path to load
//
// Returns:
//   - *common.ImportedTexture: the loaded texture, or the fallback on failure
//   - error: non-nil (wrapping simerr.ErrResourceLoadFailure or
//     simerr.ErrResourceLoadTimeout) if the fallback was substituted
func (l *Loader) LoadTexture(ctx context.Context, path string) (*common.ImportedTexture, error) {
	ctx, cancel := context.WithTimeout(ctx, l.perAssetTimeout)
	defer cancel()

	type result struct {
		tex *common.ImportedTexture
		err error
	}
	done := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(path)
		if err != nil {
			done <- result{nil, fmt.Errorf("assetloader: read %q: %w", path, err)}
			return
		}
		tex := &common.ImportedTexture{Name: path, Path: path, Data: data}
		if _, _, _, decodeErr := tex.Decode(); decodeErr != nil {
			done <- result{nil, fmt.Errorf("assetloader: decode %q: %w", path, decodeErr)}
			return
		}
		done <- result{tex, nil}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			log.Printf("assetloader: %v, substituting fallback texture", r.err)
			return l.fallback, fmt.Errorf("%w: %v", simerr.ErrResourceLoadFailure, r.err)
		}
		return r.tex, nil
	case <-ctx.Done():
		log.Printf("assetloader: load %q timed out, substituting fallback texture", path)
		return l.fallback, fmt.Errorf("%w: %s", simerr.ErrResourceLoadTimeout, path)
	}
}

// LoadResult is one path's outcome from LoadAll.
type LoadResult struct {
	Path    string
	Texture *common.ImportedTexture
	Err     error
}

// LoadAll loads every path, bounded overall by the loader's overall
// timeout; any path not completed by the deadline receives the fallback
// texture with a timeout error (spec §5). Individual per-asset failures
// do not abort the batch.
//
// Parameters:
//   - ctx: caller's context
//   - paths: the asset paths to load
//
// Returns:
//   - []LoadResult: one entry per path, in input order
func (l *Loader) LoadAll(ctx context.Context, paths []string) []LoadResult {
	ctx, cancel := context.WithTimeout(ctx, l.overallTimeout)
	defer cancel()

	results := make([]LoadResult, len(paths))
	for i, path := range paths {
		tex, err := l.LoadTexture(ctx, path)
		results[i] = LoadResult{Path: path, Texture: tex, Err: err}
		if l.OnProgress != nil {
			l.OnProgress(i+1, len(paths))
		}
	}
	return results
}
