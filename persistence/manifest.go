package persistence

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/kernelgo/dtype"
)

const (
	currentName  = "CURRENT"
	manifestName = "MANIFEST"
)

// Manifest describes one snapshot generation.
type Manifest struct {
	Version     int         `json:"version"`
	Generation  string      `json:"generation"`
	Created     time.Time   `json:"created"`
	Compression Compression `json:"compression"`
	Arrays      []Entry     `json:"arrays"`
}

// Entry describes one saved array.
type Entry struct {
	Name   string      `json:"name"`
	DType  dtype.DType `json:"dtype"`
	Size   int         `json:"size"`
	Blob   string      `json:"blob"`
	Bytes  int64       `json:"bytes"`
	CRC32C uint32      `json:"crc32c"`
}

// Names returns the saved array names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Arrays))
	for i, e := range m.Arrays {
		names[i] = e.Name
	}
	return names
}

// pointer is the content of a CURRENT blob: the manifest location relative
// to the snapshot prefix and the name of the codec that encoded it.
type pointer struct {
	Manifest string
	Codec    string
}

func (p pointer) String() string {
	return p.Manifest + " " + p.Codec + "\n"
}

func (p pointer) generation() string {
	return path.Dir(p.Manifest)
}

func parsePointer(b []byte) (pointer, error) {
	fields := strings.Fields(string(b))
	if len(fields) != 2 {
		return pointer{}, fmt.Errorf("%w: malformed %s", ErrCorrupt, currentName)
	}
	return pointer{Manifest: fields[0], Codec: fields[1]}, nil
}
