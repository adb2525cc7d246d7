package rpc

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ServicesConfigFile is the file name read from a configuration root.
const ServicesConfigFile = "services.yaml"

// MethodDefinition describes one remote method.
type MethodDefinition struct {
	Name    string   `yaml:"name"`
	Params  []string `yaml:"params"`
	Returns string   `yaml:"returns"`
}

// ServiceDefinition describes a named remote service and its methods.
type ServiceDefinition struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Methods     []MethodDefinition `yaml:"methods"`

	methods map[string]MethodDefinition
}

// Method looks up a method by name.
func (d *ServiceDefinition) Method(name string) (MethodDefinition, bool) {
	m, ok := d.methods[name]
	return m, ok
}

type servicesFile struct {
	Services []ServiceDefinition `yaml:"services"`
}

// LoadServicesConfig parses <root>/services.yaml from fsys.
func LoadServicesConfig(fsys fs.FS, root string) ([]ServiceDefinition, error) {
	p := path.Join(root, ServicesConfigFile)
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, &ConfigError{Path: p, Reason: "read", Err: err}
	}
	var file servicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Path: p, Reason: "parse", Err: err}
	}
	if len(file.Services) == 0 {
		return nil, &ConfigError{Path: p, Reason: "no services defined"}
	}
	seen := make(map[string]bool, len(file.Services))
	for i := range file.Services {
		def := &file.Services[i]
		def.Name = strings.TrimSpace(def.Name)
		if def.Name == "" {
			return nil, &ConfigError{Path: p, Reason: fmt.Sprintf("service %d has no name", i)}
		}
		if seen[def.Name] {
			return nil, &ConfigError{Path: p, Reason: fmt.Sprintf("duplicate service %q", def.Name)}
		}
		seen[def.Name] = true
		def.methods = make(map[string]MethodDefinition, len(def.Methods))
		for j, m := range def.Methods {
			if strings.TrimSpace(m.Name) == "" {
				return nil, &ConfigError{Path: p, Reason: fmt.Sprintf("%s: method %d has no name", def.Name, j)}
			}
			if _, dup := def.methods[m.Name]; dup {
				return nil, &ConfigError{Path: p, Reason: fmt.Sprintf("%s: duplicate method %q", def.Name, m.Name)}
			}
			params := make(map[string]bool, len(m.Params))
			for _, param := range m.Params {
				if params[param] {
					return nil, &ConfigError{Path: p, Reason: fmt.Sprintf("%s.%s: duplicate param %q", def.Name, m.Name, param)}
				}
				params[param] = true
			}
			def.methods[m.Name] = m
		}
	}
	return file.Services, nil
}

// ServiceRegistry is a read-only index of service definitions.
type ServiceRegistry struct {
	services map[string]*ServiceDefinition
}

// NewLocalRegistry indexes the definitions returned by LoadServicesConfig.
func NewLocalRegistry(defs []ServiceDefinition) *ServiceRegistry {
	r := &ServiceRegistry{services: make(map[string]*ServiceDefinition, len(defs))}
	for i := range defs {
		def := defs[i]
		if def.methods == nil {
			def.methods = make(map[string]MethodDefinition, len(def.Methods))
			for _, m := range def.Methods {
				def.methods[m.Name] = m
			}
		}
		r.services[def.Name] = &def
	}
	return r
}

// Service returns the definition for name.
func (r *ServiceRegistry) Service(name string) (*ServiceDefinition, bool) {
	def, ok := r.services[name]
	return def, ok
}

// Names lists the registered services in sorted order.
func (r *ServiceRegistry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryLoader builds a registry. It runs at most once per RegistryHandle.
type RegistryLoader func() (*ServiceRegistry, error)

// RegistryHandle shares one lazily built ServiceRegistry between clients.
type RegistryHandle struct {
	once   sync.Once
	load   RegistryLoader
	result *ServiceRegistry
	err    error
}

// NewRegistryHandle wraps loader so it is executed on first Get only.
func NewRegistryHandle(loader RegistryLoader) *RegistryHandle {
	return &RegistryHandle{load: loader}
}

// NewFSRegistryHandle is a convenience for registries read from a config root.
func NewFSRegistryHandle(fsys fs.FS, root string) *RegistryHandle {
	return NewRegistryHandle(func() (*ServiceRegistry, error) {
		defs, err := LoadServicesConfig(fsys, root)
		if err != nil {
			return nil, err
		}
		return NewLocalRegistry(defs), nil
	})
}

// Get returns the registry, constructing it on the first call. Construction
// errors are sticky.
func (h *RegistryHandle) Get() (*ServiceRegistry, error) {
	h.once.Do(func() {
		h.result, h.err = h.load()
	})
	return h.result, h.err
}
