// Package registry maps source names and hosts to adapter definitions.
package registry

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"mangascout/internal/domain"

	"github.com/rs/zerolog"
)

// Factory builds a live adapter from its definition.
type Factory func(cfg domain.AdapterConfig, log zerolog.Logger) (domain.Adapter, error)

// Registry is built once and never changes, so it is safe to share.
type Registry struct {
	defs    map[string]domain.AdapterConfig
	names   []string
	factory Factory
	log     zerolog.Logger
}

func New(defs []domain.AdapterConfig, factory Factory, log zerolog.Logger) *Registry {
	r := &Registry{
		defs:    make(map[string]domain.AdapterConfig, len(defs)),
		factory: factory,
		log:     log,
	}

	for _, def := range defs {
		if def.Disabled {
			log.Debug().Str("source", def.Name).Msg("source disabled")
			continue
		}
		if _, dup := r.defs[def.Name]; dup {
			log.Warn().Str("source", def.Name).Msg("duplicate source definition, keeping the first")
			continue
		}
		r.defs[def.Name] = def
		r.names = append(r.names, def.Name)
	}
	slices.Sort(r.names)

	return r
}

// Names lists the enabled sources in alphabetical order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

func (r *Registry) Config(name string) (domain.AdapterConfig, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Open builds a fresh adapter. The caller owns it and must Close it.
func (r *Registry) Open(name string) (domain.Adapter, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, domain.NewError(domain.KindInvalidConfig, "open source", "", fmt.Errorf("unknown source %q", name))
	}
	return r.factory(def, r.log)
}

// OpenAll opens every enabled source. Sources that fail to open are skipped
// and their errors returned by name.
func (r *Registry) OpenAll() ([]domain.Adapter, map[string]error) {
	adapters := make([]domain.Adapter, 0, len(r.names))
	var failed map[string]error
	for _, name := range r.names {
		a, err := r.Open(name)
		if err != nil {
			r.log.Warn().Err(err).Str("source", name).Msg("could not open source")
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[name] = err
			continue
		}
		adapters = append(adapters, a)
	}
	return adapters, failed
}

// ForURL finds the source serving rawURL by its host.
func (r *Registry) ForURL(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	for _, name := range r.names {
		def := r.defs[name]
		for _, d := range hosts(def) {
			if host == d || strings.HasSuffix(host, "."+d) {
				return name, true
			}
		}
	}
	return "", false
}

func hosts(def domain.AdapterConfig) []string {
	out := make([]string, 0, len(def.Domains)+1)
	for _, d := range def.Domains {
		out = append(out, strings.ToLower(strings.TrimPrefix(d, "www.")))
	}
	if u, err := url.Parse(def.BaseURL); err == nil && u.Hostname() != "" {
		out = append(out, strings.ToLower(strings.TrimPrefix(u.Hostname(), "www.")))
	}
	return out
}
