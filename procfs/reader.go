package procfs

import (
	"os"
)

// OSReader reads the local filesystem.
type OSReader struct{}

var _ Reader = OSReader{}

// ReadDir implements Reader.
func (OSReader) ReadDir(name string) ([]string, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

// ReadFile implements Reader.
func (OSReader) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
