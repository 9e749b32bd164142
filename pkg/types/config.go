package types

// Config holds backend selection and parameters for opening a Tree.
type Config struct {
	// Backend names the storage engine (sqlite, memory, badger).
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Driver selects the database/sql driver for the sqlite backend.
	// Empty means DriverModernc.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty" mapstructure:"driver"`

	// DataDir holds the database files. Empty keeps everything in memory.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Representation selects the tree algorithm (closure, adjacency).
	// Empty means RepresentationClosure.
	Representation string `json:"representation,omitempty" yaml:"representation,omitempty" mapstructure:"representation"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Supported sqlite drivers, named after their database/sql registrations.
const (
	DriverModernc = "sqlite"
	DriverCGO     = "sqlite3"
)

// Supported tree representations.
const (
	RepresentationClosure   = "closure"
	RepresentationAdjacency = "adjacency"
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendMemory: true,
	BackendBadger: true,
}

var knownDrivers = map[string]bool{
	DriverModernc: true,
	DriverCGO:     true,
}

var knownRepresentations = map[string]bool{
	RepresentationClosure:   true,
	RepresentationAdjacency: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Driver != "" {
		if c.Backend != BackendSQLite || !knownDrivers[c.Driver] {
			return ErrDriverUnknown
		}
	}
	if c.Representation != "" && !knownRepresentations[c.Representation] {
		return ErrRepresentationUnknown
	}
	return nil
}

// GetDriver returns the configured driver or the pure-Go default.
func (c Config) GetDriver() string {
	if c.Driver == "" {
		return DriverModernc
	}
	return c.Driver
}

// GetRepresentation returns the configured representation or the closure default.
func (c Config) GetRepresentation() string {
	if c.Representation == "" {
		return RepresentationClosure
	}
	return c.Representation
}
