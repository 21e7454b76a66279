package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var errInvalidID = errors.New("id contains invalid characters")

// collection is a directory of JSON documents keyed by id.
// Callers hold mu; the helpers never lock.
type collection struct {
	root string
	name string
	mu   *sync.RWMutex
}

func (c collection) dir() string {
	return filepath.Join(c.root, c.name)
}

func (c collection) path(id string) (string, error) {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%s %q: %w", c.name, id, errInvalidID)
	}

	return filepath.Join(c.dir(), id+".json"), nil
}

// read loads the document into out and reports whether it exists.
func (c collection) read(id string, out any) (bool, error) {
	filePath, err := c.path(id)
	if err != nil {
		return false, err
	}

	body, err := os.ReadFile(filePath) // #nosec G304 -- id is validated by path
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s %s: %w", c.name, id, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s %s: %w", c.name, id, err)
	}

	return true, nil
}

func (c collection) write(id string, value any) error {
	filePath, err := c.path(id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", c.name, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", c.name, id, err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", c.name, id, err)
	}

	return os.Rename(tmp, filePath)
}

// remove deletes the document and reports whether it existed.
func (c collection) remove(id string) (bool, error) {
	filePath, err := c.path(id)
	if err != nil {
		return false, err
	}

	err = os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", c.name, id, err)
	}

	return true, nil
}

// ids lists the ids of every stored document.
func (c collection) ids() ([]string, error) {
	entries, err := os.ReadDir(c.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s directory: %w", c.name, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return ids, nil
}

// scan decodes every document of the collection and keeps those accepted by keep.
func scan[T any](c collection, keep func(*T) bool) ([]*T, error) {
	ids, err := c.ids()
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(ids))

	for _, id := range ids {
		item := new(T)

		found, err := c.read(id, item)
		if err != nil {
			return nil, err
		}

		if found && keep(item) {
			items = append(items, item)
		}
	}

	return items, nil
}
