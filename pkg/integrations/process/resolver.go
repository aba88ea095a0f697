package process

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// DefaultCacheSize bounds the pid -> metadata cache
const DefaultCacheSize = 256

type metadata struct {
	bundleID string
	name     string
}

// Resolver supplies bundle identifiers and display names from procfs.
//
// The bundle identifier is the desktop entry id the process was launched
// from (for example "org.gnome.Terminal"), then the Flatpak or Snap
// application id, then the executable's base name. The display name is the
// desktop entry Name, falling back to the kernel command name.
type Resolver struct {
	procRoot string
	cache    *lru.Cache[int32, metadata]
}

var (
	_ focus.MetadataResolver = (*Resolver)(nil)
	_ focus.Forgetter        = (*Resolver)(nil)
)

// NewResolver creates a Resolver reading procRoot (DefaultProcRoot when
// empty) with a cache of cacheSize entries.
func NewResolver(procRoot string, cacheSize int) (*Resolver, error) {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[int32, metadata](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metadata cache")
	}

	return &Resolver{procRoot: procRoot, cache: cache}, nil
}

// Resolve implements focus.MetadataResolver.
func (r *Resolver) Resolve(pid int32) (string, string, error) {
	if m, ok := r.cache.Get(pid); ok {
		return m.bundleID, m.name, nil
	}

	info, err := readProcessInfo(r.procRoot, pid)
	if err != nil {
		return "", "", errors.Wrapf(focus.ErrUnresolved, "pid %d: %v", pid, err)
	}

	m := describe(info)
	if m.bundleID == "" && m.name == "" {
		return "", "", errors.Wrapf(focus.ErrUnresolved, "pid %d has no metadata", pid)
	}

	r.cache.Add(pid, m)
	return m.bundleID, m.name, nil
}

// Forget drops the cached metadata of pid; pids are reused by the kernel.
func (r *Resolver) Forget(pid int32) {
	r.cache.Remove(pid)
}

func describe(info *processInfo) metadata {
	m := metadata{name: info.name}

	if path := desktopFile(info); path != "" {
		m.bundleID = strings.TrimSuffix(filepath.Base(path), ".desktop")
		if name := desktopEntryName(path); name != "" {
			m.name = name
		}
		return m
	}

	if id := info.environ["FLATPAK_ID"]; id != "" {
		m.bundleID = id
		return m
	}

	if snap := info.environ["SNAP_NAME"]; snap != "" {
		m.bundleID = "snap." + snap
		return m
	}

	if info.exe != "" {
		m.bundleID = filepath.Base(info.exe)
	} else {
		m.bundleID = info.name
	}
	return m
}
