package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const defaultMaxUploadBytes = 256 << 20

// Server coordinates HTTP handlers and manages the artifacts produced by
// patch requests.
type Server struct {
	artifacts *ArtifactStore
	workDir   string
	maxUpload int64
}

// Options configures server creation.
type Options struct {
	StorageDir     string
	MaxUploadBytes int64
}

// Artifact represents a file generated by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "ucoded-")
	if err != nil {
		return nil, err
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Server{
		artifacts: &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:   workDir,
		maxUpload: maxUpload,
	}, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) storeArtifact(path, name, contentType, kind string) (ArtifactRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ArtifactRef{}, err
	}
	id, err := newArtifactID()
	if err != nil {
		return ArtifactRef{}, err
	}
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        name,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return ArtifactRef{ID: id, Name: name, ContentType: contentType, Size: art.Size, Kind: kind}, nil
}

func (s *Server) artifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	defer s.artifacts.mu.RUnlock()
	art, ok := s.artifacts.entries[id]
	return art, ok
}

func newArtifactID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("artifact id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func safeBaseName(name, fallback string) string {
	base := filepath.Base(name)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}
