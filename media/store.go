package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickhitters/clubhouse/models"
)

// MetadataStore persists scorecard metadata; the blobs themselves live on
// disk under Store.dir.
type MetadataStore interface {
	SaveScorecard(card models.Scorecard) error
	GetAllScorecards() ([]models.Scorecard, error)
}

// Store is a write-once blob store for historical scorecard images. Blobs
// are never interpreted, only saved and listed for the gallery.
type Store struct {
	dir      string
	metadata MetadataStore
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func NewStore(dir string, metadata MetadataStore) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}

	return &Store{dir: dir, metadata: metadata}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes one uploaded scorecard under a generated timestamped name and
// records its metadata.
func (s *Store) Save(r io.Reader, originalName, caption string) (models.Scorecard, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return models.Scorecard{}, fmt.Errorf("unsupported scorecard file type: %q", ext)
	}

	now := time.Now()
	name := fmt.Sprintf("scorecard-%s-%s%s", now.Format("20060102T150405"), uuid.NewString()[:8], ext)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return models.Scorecard{}, fmt.Errorf("creating scorecard file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return models.Scorecard{}, fmt.Errorf("writing scorecard file: %w", err)
	}

	if err := f.Close(); err != nil {
		return models.Scorecard{}, fmt.Errorf("closing scorecard file: %w", err)
	}

	card := models.Scorecard{
		Name:       name,
		Caption:    strings.TrimSpace(caption),
		UploadedAt: now,
	}

	if err := s.metadata.SaveScorecard(card); err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return models.Scorecard{}, fmt.Errorf("saving scorecard metadata: %w", err)
	}

	return card, nil
}

// List returns all scorecards, newest first.
func (s *Store) List() ([]models.Scorecard, error) {
	cards, err := s.metadata.GetAllScorecards()
	if err != nil {
		return nil, err
	}

	sort.Slice(cards, func(i, j int) bool {
		return cards[i].UploadedAt.After(cards[j].UploadedAt)
	})

	return cards, nil
}
