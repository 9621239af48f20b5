package nodeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
)

const (
	// DefaultMaxSnapshots is the number of snapshots kept per node
	DefaultMaxSnapshots = 10

	snapshotTimeFormat = "20060102-150405.000"
	snapshotExt        = ".yaml"
)

// SnapshotStore keeps the configuration a node reported before it was
// changed. Each snapshot is a Fields YAML file, so it can be uploaded again
// with upload --file. Passwords are never written.
type SnapshotStore struct {
	dir string

	// MaxSnapshots limits the files kept per node. Older files are removed.
	MaxSnapshots int

	mu  sync.Mutex
	now func() time.Time
}

// NewSnapshotStore creates a store that writes into dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{
		dir:          dir,
		MaxSnapshots: DefaultMaxSnapshots,
		now:          time.Now,
	}
}

// Dir returns the directory snapshots are written to
func (s *SnapshotStore) Dir() string {
	return s.dir
}

// Save writes rec's configuration and returns the file path.
func (s *SnapshotStore) Save(rec *discovery.Record, description string) (string, error) {
	if rec == nil || rec.Packet == nil {
		return "", fmt.Errorf("snapshot: no configuration to save")
	}

	fields := FieldsFromPacket(rec.Packet)
	fields.Password = ""
	data, err := yaml.Marshal(&fields)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	header := fmt.Sprintf("# %s\n# Node %s (%s), saved %s\n# The WiFi password is not included.\n\n",
		description, rec.Address(), displayName(rec.NodeName()), rec.ReceivedAt.Format(time.RFC3339))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("snapshot: failed to create directory: %w", err)
	}

	name := rec.Address() + "-" + s.now().UTC().Format(snapshotTimeFormat) + snapshotExt
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return "", fmt.Errorf("snapshot: failed to write %s: %w", path, err)
	}

	s.prune(rec.Address())
	return path, nil
}

// List returns the snapshot files for target, oldest first.
func (s *SnapshotStore) List(target string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(target)
}

// Latest returns the newest snapshot file for target, or "" if none exist.
func (s *SnapshotStore) Latest(target string) (string, error) {
	paths, err := s.List(target)
	if err != nil || len(paths) == 0 {
		return "", err
	}
	return paths[len(paths)-1], nil
}

func (s *SnapshotStore) list(target string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	prefix := target + "-"
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	// Fixed width timestamps sort chronologically
	sort.Strings(paths)
	return paths, nil
}

func (s *SnapshotStore) prune(target string) {
	if s.MaxSnapshots <= 0 {
		return
	}
	paths, err := s.list(target)
	if err != nil {
		return
	}
	for len(paths) > s.MaxSnapshots {
		_ = os.Remove(paths[0])
		paths = paths[1:]
	}
}
