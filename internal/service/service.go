// Package service defines the contract every backed-up service implements
// and the registry that instantiates them from configuration.
//
// A service exposes a set of named objects (its state), each optionally
// depending on other objects. Export and import both walk the objects in
// dependency order, so an importer never sees a group member before the
// group exists.
package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"backuprestore/internal/config"
	"backuprestore/internal/logging"
)

// Kind describes how a service's objects may be processed.
type Kind string

const (
	// KindSerial services process objects strictly one at a time.
	KindSerial Kind = "Serial"
	// KindParallel services tolerate concurrent object export.
	KindParallel Kind = "Parallel"
)

// Object is one exported/imported entity kind within a service's state.
type Object struct {
	Name      string
	DependsOn []string
}

// State is the declared object set of a service plus a per-instantiation
// reference id that ties exported data back to snapshot metadata.
type State struct {
	ID      string
	Objects []Object
}

// NewState builds a State with a fresh reference id.
func NewState(objects ...Object) State {
	return State{
		ID:      uuid.NewString(),
		Objects: objects,
	}
}

// Exporter fetches one object kind's data from the live service as JSON.
type Exporter interface {
	Export(ctx context.Context, object string) ([]byte, error)
}

// Importer writes one object kind's JSON data back into the live service.
type Importer interface {
	Import(ctx context.Context, object string, data []byte) error
}

// Service is a backed-up system (Keycloak, ...).
type Service interface {
	Name() string
	Kind() Kind
	Version() string
	Priority() int
	State() State
	Exporter() Exporter
	Importer() Importer
}

// Factory constructs a service from its raw configuration map. It returns
// an error when required settings are missing or invalid.
type Factory func(cfg map[string]any) (Service, error)

// Registry maps service names to factories and instantiates them.
type Registry struct {
	order     []string
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

func (r *Registry) Register(name string, f Factory) {
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
}

// Load instantiates every registered service with its configuration. A
// service that fails to initialize is skipped with a warning, matching the
// behavior of running with a partial configuration on purpose.
func (r *Registry) Load(store *config.Store, logger *slog.Logger) map[string]Service {
	logger = logging.Ensure(logger)
	services := make(map[string]Service, len(r.factories))
	for _, name := range r.order {
		svc, err := r.factories[name](store.Service(name))
		if err != nil {
			logger.Warn("skipping service", "service", name, "error", err)
			continue
		}
		services[svc.Name()] = svc
	}
	return services
}

// ByPriority returns services ordered by ascending priority, then name.
func ByPriority(services map[string]Service) []Service {
	out := make([]Service, 0, len(services))
	for _, svc := range services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}
