package focus

// ActivationRecord describes one foreground activation or one prepopulated
// application. PID is the identity key; BundleID and Name may be empty when
// the metadata could not be resolved.
type ActivationRecord struct {
	PID      int32  `json:"pid"`
	BundleID string `json:"bundle_id"`
	Name     string `json:"name"`
}

// TerminationRecord describes a process that has exited.
type TerminationRecord struct {
	PID int32 `json:"pid"`
}

// Confidence tags a prepopulated entry as observed (Known) or inferred (Guess)
type Confidence int

const (
	// Guess marks a running application whose recency is not observed
	Guess Confidence = iota
	// Known marks the application that was frontmost at snapshot time
	Known
)

func (c Confidence) String() string {
	switch c {
	case Known:
		return "KNOWN"
	case Guess:
		return "GUESS"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the confidence as KNOWN or GUESS.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// PrepopulationEntry is an ActivationRecord tagged with its confidence.
type PrepopulationEntry struct {
	ActivationRecord
	Confidence Confidence `json:"confidence"`
}

// IsKnown reports whether the entry was the frontmost application.
func (e PrepopulationEntry) IsKnown() bool {
	return e.Confidence == Known
}

// Category classifies running applications the way desktop shells expose
// their activation policy.
type Category int

const (
	// Regular applications are user facing and eligible for MRU tracking
	Regular Category = iota
	// Accessory applications may show windows but are not in the switcher
	Accessory
	// Background applications never present UI
	Background
)

func (c Category) String() string {
	switch c {
	case Regular:
		return "regular"
	case Accessory:
		return "accessory"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// ActivationSignal is a raw activation event as produced by an EventSource.
// When HasMetadata is false the dispatcher resolves BundleID and Name.
type ActivationSignal struct {
	PID         int32
	BundleID    string
	Name        string
	HasMetadata bool
}

// RunningApp is one element of a Workspace snapshot.
type RunningApp struct {
	PID         int32
	Category    Category
	BundleID    string
	Name        string
	HasMetadata bool
}

// Snapshot is a point-in-time view of the running applications.
type Snapshot struct {
	Apps         []RunningApp
	FrontmostPID int32
	HasFrontmost bool
}

// ActivationFunc receives activation records.
type ActivationFunc func(ActivationRecord)

// TerminationFunc receives termination records.
type TerminationFunc func(TerminationRecord)

// PrepopulationFunc receives one entry per enumerated application.
type PrepopulationFunc func(PrepopulationEntry)
