package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/checksum"
	"github.com/starford/studyshelf/internal/manifest"
	"github.com/starford/studyshelf/internal/models"
	"github.com/starford/studyshelf/internal/search"
	"github.com/starford/studyshelf/internal/vault"
)

// Event kinds passed to an EventFunc.
const (
	EventResourceCreated = "resource.created"
	EventNodeRenamed     = "node.renamed"
	EventNodeDeleted     = "node.deleted"
	EventCatalogReloaded = "catalog.reloaded"
)

// EventFunc is called after every successful mutation.
type EventFunc func(kind, id string)

// Searcher is a secondary search backend kept in step with the manifest.
type Searcher interface {
	Replace(records []models.Record) error
	Search(query string) ([]models.Record, error)
}

// Node is the summary of a renamed or deleted node.
type Node struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// Service runs every catalog operation as one load → mutate → save cycle
// against an explicit manifest store and vault.
type Service struct {
	// mu guards reads too: loading a legacy document writes the assigned
	// ids back, and the first read creates the default document.
	mu     sync.Mutex
	store  *manifest.Store
	vault  *vault.Vault
	index  Searcher
	events EventFunc
	logger *slog.Logger
	now    func() time.Time

	// checksum of the document as last saved or reindexed
	seen string
}

// Option configures a Service.
type Option func(*Service)

// WithIndex mirrors every saved manifest into idx and answers searches from it.
func WithIndex(idx Searcher) Option {
	return func(s *Service) { s.index = idx }
}

// WithEvents registers a mutation callback.
func WithEvents(fn EventFunc) Option {
	return func(s *Service) { s.events = fn }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used for meta.added.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a catalog service.
func NewService(store *manifest.Store, v *vault.Vault, opts ...Option) *Service {
	s := &Service{
		store:  store,
		vault:  v,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Manifest loads the current document and its checksum.
func (s *Service) Manifest(_ context.Context) (*models.Manifest, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadVersioned()
}

// Export returns the persisted document bytes unchanged with their checksum.
func (s *Service) Export(_ context.Context) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.store.Raw()
	if err != nil {
		return nil, "", err
	}
	return data, checksum.Sum(data), nil
}

// Flatten lists every resource with its ancestry.
func (s *Service) Flatten(_ context.Context) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return search.Flatten(m), nil
}

// Search returns the records matching a non-empty query.
func (s *Service) Search(_ context.Context, query string) ([]models.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.NewValidationError("query", "cannot be blank")
	}
	if s.index != nil {
		return s.index.Search(query)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return search.Search(m, query), nil
}

// AddResource validates in, stores the upload for file resources, files the
// resource under its year/branch/subject and saves. A failed save removes the
// stored upload again.
func (s *Service) AddResource(_ context.Context, in AddResourceInput) (*models.Resource, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	res := &models.Resource{
		ID:    models.NewID(),
		Title: in.Title,
		Type:  in.Type,
		Meta:  map[string]any{models.MetaAdded: s.now().UTC().Format(time.RFC3339)},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(in.IfMatch)
	if err != nil {
		return nil, err
	}

	var stored *vault.StoredFile
	switch in.Type {
	case models.TypeLink:
		res.URL = in.URL
	case models.TypeFile:
		stored, err = s.vault.Store(in.FileName, in.File)
		if err != nil {
			return nil, err
		}
		res.Path = stored.Path
		res.Meta[models.MetaOriginalName] = in.FileName
		res.Meta[models.MetaSize] = stored.Size
		res.Meta[models.MetaSHA256] = stored.SHA256
	}

	AddResource(m, in.Year, in.Branch, in.Subject, res)

	version, err := s.store.SaveVersioned(m)
	if err != nil {
		if stored != nil {
			s.reclaim([]string{stored.Path})
		}
		return nil, err
	}
	s.seen = version

	s.logger.Info("resource added",
		slog.String("id", res.ID),
		slog.String("type", res.Type),
		slog.String("year", in.Year),
		slog.String("branch", in.Branch),
		slog.String("subject", in.Subject))
	s.afterMutation(m, EventResourceCreated, res.ID)
	return res, nil
}

// Rename changes a node's name (a resource's title).
func (s *Service) Rename(_ context.Context, id, name, ifMatch string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.NewValidationError("name", "cannot be blank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(ifMatch)
	if err != nil {
		return nil, err
	}
	loc, err := RenameNode(m, id, name)
	if err != nil {
		return nil, err
	}
	version, err := s.store.SaveVersioned(m)
	if err != nil {
		return nil, err
	}
	s.seen = version

	s.logger.Info("node renamed", slog.String("id", id), slog.String("kind", string(loc.Kind)))
	s.afterMutation(m, EventNodeRenamed, id)
	return &Node{ID: id, Kind: loc.Kind, Name: loc.Name()}, nil
}

// Delete removes a node and its descendants, then reclaims every vault file
// the removed subtree owned.
func (s *Service) Delete(_ context.Context, id, ifMatch string) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(ifMatch)
	if err != nil {
		return nil, err
	}
	loc, files, err := DeleteNode(m, id)
	if err != nil {
		return nil, err
	}
	version, err := s.store.SaveVersioned(m)
	if err != nil {
		return nil, err
	}
	s.seen = version
	s.reclaim(files)

	s.logger.Info("node deleted",
		slog.String("id", id),
		slog.String("kind", string(loc.Kind)),
		slog.Int("files", len(files)))
	s.afterMutation(m, EventNodeDeleted, id)
	return &Node{ID: id, Kind: loc.Kind, Name: loc.Name()}, nil
}

// OpenFile opens a stored file by its vault file name.
func (s *Service) OpenFile(_ context.Context, name string) (io.ReadSeekCloser, os.FileInfo, error) {
	return s.vault.OpenName(name)
}

// OpenResourceFile opens the stored file of the file resource with the given
// id, returning the resource too.
func (s *Service) OpenResourceFile(_ context.Context, id string) (io.ReadSeekCloser, os.FileInfo, *models.Resource, error) {
	s.mu.Lock()
	m, err := s.store.Load()
	s.mu.Unlock()
	if err != nil {
		return nil, nil, nil, err
	}
	loc, err := NewNodeIndex(m).Lookup(id)
	if err != nil {
		return nil, nil, nil, err
	}
	if loc.Kind != KindResource || loc.Resource.Type != models.TypeFile {
		return nil, nil, nil, apperr.NewNotFoundError("file resource", id)
	}
	rc, info, err := s.vault.Open(loc.Resource.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return rc, info, loc.Resource, nil
}

// Reindex reloads the manifest and refreshes the secondary index when the
// document changed outside this service. It reports whether it did anything.
func (s *Service) Reindex(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, version, err := s.store.LoadVersioned()
	if err != nil {
		return false, err
	}
	if version == s.seen {
		return false, nil
	}
	s.seen = version
	s.logger.Info("catalog reloaded", slog.String("version", version))
	s.afterMutation(m, EventCatalogReloaded, "")
	return true, nil
}

func (s *Service) load(ifMatch string) (*models.Manifest, error) {
	m, version, err := s.store.LoadVersioned()
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && checksum.ParseETag(ifMatch) != version {
		return nil, conflictf("manifest changed since it was read")
	}
	return m, nil
}

func (s *Service) reclaim(paths []string) {
	for _, p := range paths {
		if err := s.vault.Delete(p); err != nil {
			s.logger.Warn("file reclaim failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

func (s *Service) afterMutation(m *models.Manifest, kind, id string) {
	if s.index != nil {
		if err := s.index.Replace(search.Flatten(m)); err != nil {
			s.logger.Warn("index refresh failed", slog.String("error", err.Error()))
		}
	}
	if s.events != nil {
		s.events(kind, id)
	}
}
