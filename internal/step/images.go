package step

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/fsutil"
	"github.com/rajubeparybd/gulp-compiler/internal/pathspec"
)

// DefaultQuality is the WebP quality used when none is configured.
const DefaultQuality = 75

var rasterExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// ImagesConfig configures the image step.
type ImagesConfig struct {
	Src  *pathspec.Spec
	Dest string
	// Quality is the lossy WebP quality, 1 to 100.
	Quality int
	// MaxWidth downscales wider images, keeping the aspect ratio. Zero keeps
	// the original size.
	MaxWidth int
}

// Images recompresses raster images to WebP and copies every other matched
// file unchanged, mirroring the layout under the source base in Dest.
type Images struct {
	cfg ImagesConfig
}

// NewImages creates the image step.
func NewImages(cfg ImagesConfig) *Images {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	return &Images{cfg: cfg}
}

// Run processes every matched file. A file that fails is recorded and the
// remaining files are still processed; the failures are returned together.
func (s *Images) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("step", "images")

	files, err := s.cfg.Src.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("No images matched, nothing to do.", "pattern", s.cfg.Src.String())
		return nil
	}

	var errs []error
	converted, copied := 0, 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := s.cfg.Src.Rel(file)
		if err != nil {
			errs = append(errs, &TransformError{Step: "images", File: file, Err: err})
			continue
		}

		if !rasterExts[strings.ToLower(filepath.Ext(file))] {
			if err := fsutil.CopyFileAtomic(file, filepath.Join(s.cfg.Dest, rel)); err != nil {
				errs = append(errs, &TransformError{Step: "images", File: file, Err: err})
				continue
			}
			copied++
			continue
		}

		dst := filepath.Join(s.cfg.Dest, strings.TrimSuffix(rel, filepath.Ext(rel))+".webp")
		if err := s.convert(file, dst); err != nil {
			logger.Warn("Image conversion failed.", "file", file, "error", err)
			errs = append(errs, &TransformError{Step: "images", File: file, Err: err})
			continue
		}
		converted++
	}

	logger.Debug("Images processed.", "converted", converted, "copied", copied, "failed", len(errs))
	return errors.Join(errs...)
}

func (s *Images) convert(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if s.cfg.MaxWidth > 0 && img.Bounds().Dx() > s.cfg.MaxWidth {
		img = imaging.Resize(img, s.cfg.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: s.cfg.Quality}); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}
	return fsutil.WriteFileAtomic(dst, buf.Bytes())
}
