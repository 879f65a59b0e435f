// Package media keeps uploaded artwork images on local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxWidth   = 2400
	thumbWidth = 300
	thumbDir   = "thumb"
)

var ErrInvalidImage = errors.New("uploaded file is not a supported image")

type Store interface {
	Save(src io.Reader) (string, error)
	Delete(src string) error
}

// LocalStore writes a JPEG and a 300px thumbnail per upload under dir and
// returns URLs rooted at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, thumbDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(src io.Reader) (string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate media name: %w", err)
	}
	name := id.String() + ".jpg"

	if err := imaging.Save(img, filepath.Join(s.dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(s.dir, thumbDir, name)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	log.Debug().Str("file", name).Msg("media: image stored")
	return s.baseURL + "/" + name, nil
}

// Delete removes an image previously returned by Save. Foreign URLs are ignored.
func (s *LocalStore) Delete(src string) error {
	name, ok := strings.CutPrefix(src, s.baseURL+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return nil
	}
	name = path.Base(name)

	for _, p := range []string{filepath.Join(s.dir, name), filepath.Join(s.dir, thumbDir, name)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}
