package manifest

// Manifest is the in-memory form of a packaging declaration.
type Manifest struct {
	App       AppMetadata     `yaml:"app" json:"app" toml:"app"`
	Files     []FileEntry     `yaml:"files" json:"files" toml:"files"`
	Tasks     []TaskEntry     `yaml:"tasks,omitempty" json:"tasks,omitempty" toml:"tasks"`
	Shortcuts []ShortcutEntry `yaml:"shortcuts,omitempty" json:"shortcuts,omitempty" toml:"shortcuts"`
	Run       []RunEntry      `yaml:"run,omitempty" json:"run,omitempty" toml:"run"`

	// Path is the file the manifest was loaded from, if any.
	Path string `yaml:"-" json:"-" toml:"-"`
}

// AppMetadata identifies the packaged application. ID is the stable key of
// the uninstall record and must not change between versions.
type AppMetadata struct {
	ID         string `yaml:"id" json:"id" toml:"id"`
	Name       string `yaml:"name" json:"name" toml:"name"`
	Version    string `yaml:"version" json:"version" toml:"version"`
	Publisher  string `yaml:"publisher,omitempty" json:"publisher,omitempty" toml:"publisher"`
	URL        string `yaml:"url,omitempty" json:"url,omitempty" toml:"url"`
	DefaultDir string `yaml:"default_dir,omitempty" json:"default_dir,omitempty" toml:"default_dir"`
	Group      string `yaml:"group,omitempty" json:"group,omitempty" toml:"group"`
}

// FileEntry copies Source (relative to the build output tree) into the
// symbolic directory Dest. Source may end in a wildcard base name.
type FileEntry struct {
	Source    string          `yaml:"source" json:"source" toml:"source"`
	Dest      string          `yaml:"dest" json:"dest" toml:"dest"`
	DestName  string          `yaml:"dest_name,omitempty" json:"dest_name,omitempty" toml:"dest_name"`
	Overwrite OverwritePolicy `yaml:"overwrite,omitempty" json:"overwrite,omitempty" toml:"overwrite"`
	Recurse   bool            `yaml:"recurse,omitempty" json:"recurse,omitempty" toml:"recurse"`
}

// OverwritePolicy decides what happens when a destination file already exists.
type OverwritePolicy string

const (
	OverwriteSkipIfNewer OverwritePolicy = "skip-if-newer"
	OverwriteAlways      OverwritePolicy = "always-overwrite"
	OverwriteKeep        OverwritePolicy = "keep-existing"
)

// ValidOverwritePolicies contains all valid overwrite policy values.
var ValidOverwritePolicies = []OverwritePolicy{
	OverwriteSkipIfNewer,
	OverwriteAlways,
	OverwriteKeep,
}

// TaskEntry is an optional, boolean-selected install action.
type TaskEntry struct {
	ID          string `yaml:"id" json:"id" toml:"id"`
	Description string `yaml:"description" json:"description" toml:"description"`
	Default     bool   `yaml:"default,omitempty" json:"default,omitempty" toml:"default"`
	Group       string `yaml:"group,omitempty" json:"group,omitempty" toml:"group"`
}

// ShortcutEntry declares a launcher shortcut. When Task is set, the shortcut
// is only created if that task is selected.
type ShortcutEntry struct {
	Name       string   `yaml:"name" json:"name" toml:"name"`
	Target     string   `yaml:"target" json:"target" toml:"target"`
	Icon       string   `yaml:"icon,omitempty" json:"icon,omitempty" toml:"icon"`
	Location   Location `yaml:"location,omitempty" json:"location,omitempty" toml:"location"`
	Task       string   `yaml:"task,omitempty" json:"task,omitempty" toml:"task"`
	Parameters string   `yaml:"parameters,omitempty" json:"parameters,omitempty" toml:"parameters"`
	WorkingDir string   `yaml:"working_dir,omitempty" json:"working_dir,omitempty" toml:"working_dir"`
}

// Location is where a shortcut is placed.
type Location string

const (
	LocationGroup   Location = "group"
	LocationDesktop Location = "desktop"
)

// ValidLocations contains all valid shortcut locations.
var ValidLocations = []Location{LocationGroup, LocationDesktop}

// RunEntry declares a program to start once the install has committed.
type RunEntry struct {
	Target       string `yaml:"target" json:"target" toml:"target"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty" toml:"description"`
	Parameters   string `yaml:"parameters,omitempty" json:"parameters,omitempty" toml:"parameters"`
	Wait         bool   `yaml:"wait,omitempty" json:"wait,omitempty" toml:"wait"`
	SkipIfSilent bool   `yaml:"skip_if_silent,omitempty" json:"skip_if_silent,omitempty" toml:"skip_if_silent"`
	PostCommit   bool   `yaml:"post_commit,omitempty" json:"post_commit,omitempty" toml:"post_commit"`
	ShellExec    bool   `yaml:"shell_exec,omitempty" json:"shell_exec,omitempty" toml:"shell_exec"`
	Task         string `yaml:"task,omitempty" json:"task,omitempty" toml:"task"`
}

// Format is the serialization of a manifest document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// GroupName returns the start-menu group, defaulting to the app name.
func (a AppMetadata) GroupName() string {
	if a.Group != "" {
		return a.Group
	}
	return a.Name
}

// InstallDirDefault returns the symbolic default install root.
func (a AppMetadata) InstallDirDefault() string {
	if a.DefaultDir != "" {
		return a.DefaultDir
	}
	return "{pf}/" + a.Name
}

// Policy returns the entry's overwrite policy, defaulting to skip-if-newer.
func (f FileEntry) Policy() OverwritePolicy {
	if f.Overwrite == "" {
		return OverwriteSkipIfNewer
	}
	return f.Overwrite
}

// Where returns the shortcut location, defaulting to the start-menu group.
func (s ShortcutEntry) Where() Location {
	if s.Location == "" {
		return LocationGroup
	}
	return s.Location
}

// Task returns the task declared with id, or nil.
func (m *Manifest) Task(id string) *TaskEntry {
	for i := range m.Tasks {
		if m.Tasks[i].ID == id {
			return &m.Tasks[i]
		}
	}
	return nil
}
