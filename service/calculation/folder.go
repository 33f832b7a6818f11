// Package calculation holds staging and retrieval helpers shared by the fleur and inpgen calculations.
package calculation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/fleurflow/internal/idgen"
	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/runtime/execution"
)

// Standard output captures
const (
	StdoutFile = "shell.out"
	StderrFile = "out.error"
)

// ErrFolderMissing is returned when a calculation folder does not exist
var ErrFolderMissing = errors.New("calculation folder not found")

// NodeID returns the node id of the job in context, or a fresh id
func NodeID(ctx context.Context) string {
	if job := execution.ContextValue[*execution.Job](ctx); job != nil && job.NodeID != "" {
		return job.NodeID
	}
	return idgen.New()
}

// CreateFolder creates a working folder named after prefix and node id under root
func CreateFolder(ctx context.Context, fs afs.Service, root, prefix, nodeID string, host *code.Host) (*calc.Folder, error) {
	URL := url.Join(root, prefix+"-"+idgen.Short(nodeID))
	if err := fs.Create(ctx, URL, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("failed to create folder %v: %w", URL, err)
	}
	return &calc.Folder{URL: URL, Host: host, NodeID: nodeID}, nil
}

// Write uploads content as name in folder
func Write(ctx context.Context, fs afs.Service, folder *calc.Folder, name string, content []byte) error {
	URL := folder.Join(name)
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write %v: %w", URL, err)
	}
	return nil
}

// CopyMatching copies files of parent whose names match any pattern (path.Match syntax) into folder, returning copied names
func CopyMatching(ctx context.Context, fs afs.Service, parent, folder *calc.Folder, patterns ...string) ([]string, error) {
	if ok, _ := fs.Exists(ctx, parent.URL); !ok {
		return nil, fmt.Errorf("%w: %v", ErrFolderMissing, parent.URL)
	}
	objects, err := fs.List(ctx, parent.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", parent.URL, err)
	}
	var copied []string
	for _, object := range objects {
		if object.IsDir() || !matchesAny(object.Name(), patterns) {
			continue
		}
		if err = fs.Copy(ctx, object.URL(), folder.Join(object.Name())); err != nil {
			return copied, fmt.Errorf("failed to copy %v: %w", object.URL(), err)
		}
		copied = append(copied, object.Name())
	}
	return copied, nil
}

// Retrieve downloads the named files present in folder; missing files are skipped
func Retrieve(ctx context.Context, fs afs.Service, folder *calc.Folder, names ...string) (map[string][]byte, error) {
	if ok, _ := fs.Exists(ctx, folder.URL); !ok {
		return nil, fmt.Errorf("%w: %v", ErrFolderMissing, folder.URL)
	}
	ret := make(map[string][]byte, len(names))
	for _, name := range names {
		URL := folder.Join(name)
		if ok, _ := fs.Exists(ctx, URL); !ok {
			continue
		}
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return ret, fmt.Errorf("failed to open %v: %w", URL, err)
		}
		ret[name] = data
	}
	return ret, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Shell joins prepend lines, the main command and append text into one line; the main command status is preserved
func Shell(prepend []string, main, appendText string) string {
	var lines []string
	for _, line := range prepend {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	lines = append(lines, main)
	ret := strings.Join(lines, " && ")
	if appendText = strings.TrimSpace(appendText); appendText != "" {
		ret = fmt.Sprintf("%s; status=$?; %s; exit $status", ret, appendText)
	}
	return ret
}
