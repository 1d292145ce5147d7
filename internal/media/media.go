// Package media stores uploaded images after downscaling and re-encoding them.
package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var ErrBadImage = errors.New("unsupported or corrupt image")

const (
	DefaultMaxWidth = 1080
	DefaultQuality  = 75
)

// Store writes images under Dir and returns paths prefixed with URLPrefix.
type Store struct {
	Dir       string
	URLPrefix string
	MaxWidth  int
	Quality   int
}

func NewStore(dir, urlPrefix string, maxWidth, quality int) (*Store, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{Dir: dir, URLPrefix: urlPrefix, MaxWidth: maxWidth, Quality: quality}, nil
}

// SaveImage decodes r, shrinks it to at most MaxWidth pixels wide keeping
// the aspect ratio, and writes it as JPEG under a random name.
func (s *Store) SaveImage(r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if img.Bounds().Dx() > s.MaxWidth {
		img = imaging.Resize(img, s.MaxWidth, 0, imaging.Lanczos)
	}

	name := uuid.NewString() + ".jpg"
	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(s.Quality)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.URLPrefix + "/" + name, nil
}

// RemoveImage deletes a file previously returned by SaveImage. Paths outside
// URLPrefix are refused; an already missing file is not an error.
func (s *Store) RemoveImage(path string) error {
	name := strings.TrimPrefix(path, s.URLPrefix+"/")
	if name == path || name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("not a stored image: %q", path)
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
