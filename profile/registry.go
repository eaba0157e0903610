package profile

import (
	"fmt"
	"sort"

	"gamecam/process/memory_map"
)

// Registry maps executable basenames to profiles. It is built once at
// startup and read-only afterwards.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry validates profiles and indexes them by executable. Two
// profiles for the same executable are an error.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.Executable]; dup {
			return nil, fmt.Errorf("duplicate profile for %q", p.Executable)
		}
		r.profiles[p.Executable] = p
	}
	return r, nil
}

// NewBuiltinRegistry returns a registry over Builtin overlaid with overrides.
// An override replaces the built-in profile for the same executable.
func NewBuiltinRegistry(overrides ...Profile) (*Registry, error) {
	byExe := make(map[string]Profile)
	var order []string
	for _, p := range append(Builtin(), overrides...) {
		if _, seen := byExe[p.Executable]; !seen {
			order = append(order, p.Executable)
		}
		byExe[p.Executable] = p
	}
	profiles := make([]Profile, 0, len(order))
	for _, exe := range order {
		profiles = append(profiles, byExe[exe])
	}
	return NewRegistry(profiles...)
}

// Lookup finds the profile for an executable path or name, Windows or POSIX,
// compared case-insensitively on its basename.
func (r *Registry) Lookup(exe string) (Profile, bool) {
	p, ok := r.profiles[memory_map.BaseName(exe)]
	return p, ok
}

// All returns every profile ordered by executable name
func (r *Registry) All() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Executable < out[j].Executable
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.profiles)
}
