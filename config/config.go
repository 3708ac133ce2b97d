// Package config decodes the TOML configuration file into the
// supervisor's ServiceSpec shape. It is deliberately kept outside the
// supervisor package: spec.md places configuration parsing among the
// external collaborators the core consumes only through a plain Go
// value, never a file path or a parser.
package config

import (
	"bytes"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"go.unsigned.dev/svlopp/supervisor"
)

// file is the on-disk shape of the configuration, decoded with
// DisallowUnknownFields so an unrecognized key is a hard error rather
// than a silently ignored typo.
type file struct {
	Service  map[string]serviceEntry `toml:"service"`
	Services map[string]serviceEntry `toml:"services"`
}

type serviceEntry struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	OnExit  string   `toml:"on_exit"`
}

// Load reads and decodes path into a name-keyed map of service specs,
// per spec.md §6. "service" and "services" are accepted as equivalent
// top-level table names; a name present in both is an error, since
// there would be no principled way to prefer one entry over the other.
func Load(path string) (map[string]supervisor.ServiceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read configuration file")
	}

	var f file
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}

	out := make(map[string]supervisor.ServiceSpec, len(f.Service)+len(f.Services))
	for name, entry := range f.Service {
		spec, err := entry.toSpec(name)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	for name, entry := range f.Services {
		if _, ok := out[name]; ok {
			return nil, errors.Errorf("service %q declared in both [service] and [services]", name)
		}
		spec, err := entry.toSpec(name)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}

	return out, nil
}

func (e serviceEntry) toSpec(name string) (supervisor.ServiceSpec, error) {
	if e.Command == "" {
		return supervisor.ServiceSpec{}, errors.Errorf("service %q: command is required", name)
	}
	onExit, err := supervisor.ParseOnExit(e.OnExit)
	if err != nil {
		return supervisor.ServiceSpec{}, errors.Wrapf(err, "service %q", name)
	}

	args := e.Args
	if args == nil {
		args = []string{}
	}

	return supervisor.ServiceSpec{
		Name:    name,
		Command: e.Command,
		Args:    args,
		OnExit:  onExit,
	}, nil
}

// Names returns the sorted service names of a decoded configuration.
func Names(config map[string]supervisor.ServiceSpec) []string {
	names := make([]string, 0, len(config))
	for name := range config {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
