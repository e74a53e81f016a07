package specgen

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Service serves generated documents with caching. The catalog is
// immutable between reloads, so a generated document stays valid until
// Invalidate is called.
type Service struct {
	gen    *Generator
	logger zerolog.Logger

	cache atomic.Pointer[cachedDocument]
	mu    sync.Mutex // serializes cache generation
}

// cachedDocument pairs a generated document with the generation error.
// Per-entity failures leave the rest of the document intact, so a
// partial document is still served while the error reports what failed.
type cachedDocument struct {
	doc *Document
	err error
}

// NewService creates a caching document service.
func NewService(gen *Generator, logger zerolog.Logger) *Service {
	return &Service{
		gen:    gen,
		logger: logger,
	}
}

// Document returns the generated document with its server URL set to
// baseURL. The first call generates and caches; later calls clone the
// cached document. The returned error reports entities that failed to
// generate; the document still carries every healthy entity.
func (s *Service) Document(baseURL string) (*Document, error) {
	if cached := s.cache.Load(); cached != nil {
		return s.cloneWithServer(cached.doc, baseURL), cached.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached := s.cache.Load(); cached != nil {
		return s.cloneWithServer(cached.doc, baseURL), cached.err
	}

	doc, err := s.gen.Generate()
	if err != nil {
		s.logger.Warn().Err(err).Msg("OpenAPI document generated with entity failures")
	} else {
		s.logger.Debug().Int("paths", len(doc.Paths)).Msg("OpenAPI document generated")
	}

	s.cache.Store(&cachedDocument{doc: doc, err: err})

	return s.cloneWithServer(doc, baseURL), err
}

// Invalidate forces the next Document call to regenerate.
func (s *Service) Invalidate() {
	s.cache.Store(nil)
	s.logger.Debug().Msg("OpenAPI cache invalidated")
}

// cloneWithServer copies the document and stamps the requesting
// server's URL, so cached state never leaks mutable references.
func (s *Service) cloneWithServer(doc *Document, baseURL string) *Document {
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to clone OpenAPI document")
		return doc
	}

	var cloned Document
	if err := json.Unmarshal(data, &cloned); err != nil {
		s.logger.Error().Err(err).Msg("Failed to unmarshal cloned OpenAPI document")
		return doc
	}

	if baseURL != "" {
		cloned.Servers = []Server{{URL: baseURL, Description: "Current server"}}
	}

	return &cloned
}
