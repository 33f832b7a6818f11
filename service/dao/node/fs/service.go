package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/dao/criteria"
	"github.com/viant/fleurflow/telemetry"
)

const ext = ".json"

// Service implements node storage as one JSON document per node under base URL
type Service struct {
	baseURL string
	fs      afs.Service
	logger  *telemetry.Logger
	mu      sync.RWMutex
}

var _ dao.Service[string, execution.Node] = (*Service)(nil)

// Save persists a node snapshot
func (s *Service) Save(ctx context.Context, node *execution.Node) error {
	if node == nil {
		return dao.ErrNilEntity
	}
	if node.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(node.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal node %v: %w", node.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.nodeURL(node.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save node to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves a node
func (s *Service) Load(ctx context.Context, id string) (*execution.Node, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.nodeURL(id)
	if ok, _ := s.fs.Exists(ctx, URL); !ok {
		return nil, fmt.Errorf("%w: node %v", dao.ErrNotFound, id)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read node %v: %w", id, err)
	}
	node := &execution.Node{}
	if err = json.Unmarshal(data, node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node %v: %w", id, err)
	}
	return node, nil
}

// Delete removes a node document
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.nodeURL(id)
	if ok, _ := s.fs.Exists(ctx, URL); !ok {
		return fmt.Errorf("%w: node %v", dao.ErrNotFound, id)
	}
	return s.fs.Delete(ctx, URL)
}

// List returns nodes matching parameters ordered by creation time; unreadable documents are skipped
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes in %v: %w", s.baseURL, err)
	}
	var nodes []*execution.Node
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.WithError(err).Warnf("skipping node document %v", object.URL())
			continue
		}
		node := &execution.Node{}
		if err = json.Unmarshal(data, node); err != nil {
			s.logger.WithError(err).Warnf("skipping malformed node document %v", object.URL())
			continue
		}
		if !criteria.Match(node.Attributes(), parameters) {
			continue
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].CreatedAt.Before(nodes[j].CreatedAt) })
	return nodes, nil
}

func (s *Service) nodeURL(id string) string {
	return url.Join(s.baseURL, id+ext)
}

// New creates a node store rooted at baseURL, creating the location when missing
func New(ctx context.Context, baseURL string, fs afs.Service, logger *telemetry.Logger) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("node store base URL was empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = telemetry.Nop()
	}
	baseURL = url.Normalize(baseURL, file.Scheme)
	if ok, _ := fs.Exists(ctx, baseURL); !ok {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create node store %v: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs, logger: logger}, nil
}
