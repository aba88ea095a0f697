package focus

import (
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const snapshotKey = "snapshot"

// Prepopulator enumerates the running regular applications once per call
// and tags the frontmost one Known and all others Guess.
type Prepopulator struct {
	workspace Workspace
	resolver  MetadataResolver
	logger    *slog.Logger

	// group collapses concurrent calls onto one snapshot
	group singleflight.Group
}

// NewPrepopulator creates a Prepopulator over workspace. resolver fills in
// metadata the workspace did not attach and may be nil.
func NewPrepopulator(workspace Workspace, resolver MetadataResolver, logger *slog.Logger) *Prepopulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prepopulator{
		workspace: workspace,
		resolver:  resolver,
		logger:    logger,
	}
}

// Prepopulate takes a snapshot and invokes cb once per regular application
// in snapshot order. It blocks until every entry has been resolved. A
// snapshot with no regular applications invokes cb zero times.
//
// Prepopulate must not be called from inside an activation or termination
// callback: its entries carry no ordering relative to live events.
func (p *Prepopulator) Prepopulate(cb PrepopulationFunc) error {
	if cb == nil {
		return ErrNilCallback
	}

	entries, err := p.Entries()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		p.logger.Debug("prepopulation entry",
			"confidence", entry.Confidence.String(),
			"pid", entry.PID,
			"bundle_id", entry.BundleID,
			"name", entry.Name)
		cb(entry)
	}
	return nil
}

// Entries returns the tagged entries of one snapshot. Concurrent callers
// share the same snapshot; the returned slice must not be modified.
func (p *Prepopulator) Entries() ([]PrepopulationEntry, error) {
	if p.workspace == nil {
		return nil, errors.New("no workspace configured")
	}

	v, err, shared := p.group.Do(snapshotKey, func() (interface{}, error) {
		return p.collect()
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug("prepopulation snapshot shared with concurrent caller")
	}
	return v.([]PrepopulationEntry), nil
}

func (p *Prepopulator) collect() ([]PrepopulationEntry, error) {
	snap, err := p.workspace.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate running applications")
	}
	if snap == nil {
		return nil, nil
	}

	seen := make(map[int32]struct{}, len(snap.Apps))
	entries := make([]PrepopulationEntry, 0, len(snap.Apps))

	for _, app := range snap.Apps {
		if app.Category != Regular || app.PID <= 0 {
			continue
		}
		if _, dup := seen[app.PID]; dup {
			continue
		}
		seen[app.PID] = struct{}{}

		entry := PrepopulationEntry{
			ActivationRecord: ActivationRecord{PID: app.PID},
			Confidence:       Guess,
		}
		if app.HasMetadata {
			entry.BundleID, entry.Name = app.BundleID, app.Name
		} else {
			entry.BundleID, entry.Name = p.resolve(app.PID)
		}
		if snap.HasFrontmost && app.PID == snap.FrontmostPID {
			entry.Confidence = Known
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (p *Prepopulator) resolve(pid int32) (string, string) {
	if p.resolver == nil {
		return "", ""
	}
	bundleID, name, err := p.resolver.Resolve(pid)
	if err != nil {
		p.logger.Debug("metadata unresolved during prepopulation", "pid", pid, "error", err)
		return "", ""
	}
	return bundleID, name
}
