package frontend

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"fast-frontend/internal/metadata"
)

// App is an installed application.
type App interface {
	Name() string
}

// FrontendProvider is implemented by apps that ship frontend configurations.
type FrontendProvider interface {
	Frontends(catalog *metadata.Catalog) ([]Registration, error)
}

// Registration pairs a qualified entity identifier ("module.EntityName")
// with the factory configuring it.
type Registration struct {
	Model   string
	Factory Factory
}

// Autodiscover registers the frontends of every installed app that provides
// them. Apps without a provider are skipped silently; a failing app is logged
// and skipped without affecting the rest. It returns the number of entities
// registered.
func (r *Registry) Autodiscover(apps ...App) int {
	registered := 0
	for _, app := range apps {
		provider, ok := app.(FrontendProvider)
		if !ok {
			continue
		}
		n, err := r.discoverApp(app.Name(), provider)
		registered += n
		if err != nil {
			r.log.WithError(err).WithField("app", app.Name()).Warn("autodiscover skipped app")
		}
	}
	r.log.WithField("entities", registered).Info("autodiscover complete")
	return registered
}

func (r *Registry) discoverApp(name string, provider FrontendProvider) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in frontend provider: %v", p)
		}
	}()

	regs, err := provider.Frontends(r.catalog)
	if err != nil {
		return 0, err
	}
	for _, reg := range regs {
		entity := r.catalog.Resolve(reg.Model)
		if entity == nil {
			r.log.WithFields(logrus.Fields{"app": name, "model": reg.Model}).Warn("unknown model in frontend provider")
			continue
		}
		if err := r.Register(entity, reg.Factory); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"app": name, "model": reg.Model}).Warn("frontend registration failed")
			continue
		}
		n++
	}
	return n, nil
}
