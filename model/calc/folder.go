package calc

import (
	"github.com/viant/afs/url"
	"github.com/viant/fleurflow/model/code"
)

// Folder represents a calculation working directory, local or remote
type Folder struct {
	URL  string     `json:"url" yaml:"url"`
	Host *code.Host `json:"host,omitempty" yaml:"host,omitempty"`
	// NodeID of the calculation that produced the folder
	NodeID string `json:"nodeId,omitempty" yaml:"nodeId,omitempty"`
}

// Join returns URL of a file in the folder
func (f *Folder) Join(name string) string {
	return url.Join(f.URL, name)
}

// Path returns the folder path as seen by the host shell
func (f *Folder) Path() string {
	return url.Path(f.URL)
}
