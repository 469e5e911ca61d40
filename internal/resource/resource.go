// Package resource infers which deployable resource a filesystem path belongs
// to. Identity comes from manifest declarations first and directory shape
// second; bracketed grouping folders and fixed structural subdirectories are
// never identities themselves.
package resource

import "strings"

// GeneratedDirName is the bracketed container under a host's resources root
// that receives deployed build output. Bracketed, so it can never be a
// resource identity itself while resources inside it still resolve.
const GeneratedDirName = "[generated]"

// Structural subdirectory names. These organize files inside a resource and
// never denote a resource boundary.
var structuralDirs = map[string]struct{}{
	"client":  {},
	"server":  {},
	"shared":  {},
	"ui":      {},
	"locales": {},
	"assets":  {},
}

// IsStructural reports whether name is a fixed structural subdirectory name.
func IsStructural(name string) bool {
	_, ok := structuralDirs[strings.ToLower(name)]
	return ok
}

// IsContainer reports whether name uses the bracket-delimited grouping
// notation, e.g. "[core]". Container directories organize resources but are
// not deployable.
func IsContainer(name string) bool {
	return len(name) >= 2 && name[0] == '[' && name[len(name)-1] == ']'
}

// IsValidName reports whether name could denote a real resource: non-empty,
// not structural, not a container.
func IsValidName(name string) bool {
	return name != "" && !IsStructural(name) && !IsContainer(name)
}
