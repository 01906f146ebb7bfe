// Package integrations reads problem descriptions from the supported file formats.
package integrations

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cvrpga/internal/integrations/csvnodes"
	"cvrpga/internal/integrations/jsondesc"
	"cvrpga/internal/integrations/tsplib"
	"cvrpga/internal/model"
)

// Loader decodes one input format into a Description.
type Loader interface {
	Name() string
	Load(r io.Reader) (model.Description, error)
}

var ErrUnknownFormat = errors.New("unknown input format")

var loaders = map[string]Loader{
	".json": jsondesc.Loader{},
	".vrp":  tsplib.Loader{},
	".csv":  csvnodes.Loader{},
}

// ForPath picks a loader by file extension.
func ForPath(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := loaders[ext]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// LoadFile reads and structurally validates the description stored at path.
func LoadFile(path string) (model.Description, error) {
	l, err := ForPath(path)
	if err != nil {
		return model.Description{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Description{}, err
	}
	defer func() { _ = f.Close() }()
	desc, err := l.Load(f)
	if err != nil {
		return model.Description{}, fmt.Errorf("%s (%s): %w", path, l.Name(), err)
	}
	if err := desc.Validate(); err != nil {
		return model.Description{}, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}
