// Package demo holds the installed applications shipped with the server:
// "app" exposes authors with check/uncheck row actions, "app2" exposes people
// read-only, and "notes" ships no frontend at all.
package demo

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

// Saver persists field updates of a row by identifier.
type Saver interface {
	Save(ctx context.Context, entity *metadata.Entity, id string, values store.Row) (store.Row, error)
}

// Apps returns every installed application known to this build.
func Apps(s Saver, log logrus.FieldLogger) map[string]frontend.App {
	return map[string]frontend.App{
		"app":   &WritersApp{saver: s, log: log},
		"app2":  PeopleApp{},
		"notes": NotesApp{},
	}
}

// Installed selects apps by name in the given order; unknown names are
// logged and skipped.
func Installed(all map[string]frontend.App, names []string, log logrus.FieldLogger) []frontend.App {
	var out []frontend.App
	for _, name := range names {
		app, ok := all[name]
		if !ok {
			log.WithField("app", name).Warn("installed app not found")
			continue
		}
		out = append(out, app)
	}
	return out
}

// WritersApp is the "app" application.
type WritersApp struct {
	saver Saver
	log   logrus.FieldLogger
}

func (*WritersApp) Name() string { return "app" }

func (a *WritersApp) Frontends(catalog *metadata.Catalog) ([]frontend.Registration, error) {
	if catalog.Resolve("app.Author") == nil {
		return nil, fmt.Errorf("model app.Author is not in the catalog")
	}
	return []frontend.Registration{{
		Model: "app.Author",
		Factory: func() frontend.Frontend {
			return &AuthorFrontend{saver: a.saver, log: a.log}
		},
	}}, nil
}

// AuthorFrontend lists authors and flips their "checked" flag from row buttons.
type AuthorFrontend struct {
	frontend.ModelFrontend
	saver Saver
	log   logrus.FieldLogger
}

func (f *AuthorFrontend) Options() frontend.Options {
	return frontend.Options{
		DisplayFields:  []string{"name", "title", "checked"},
		FormFields:     []string{"name", "title", "birth_date"},
		ReadonlyFields: []string{"name", "title"},
		SearchFields:   []string{"name", "title", "birth_date"},
		SortFields:     []string{"name", "title", "birth_date"},
		FilterFields:   []string{"title", "checked"},
		RowActions:     []string{"check", "uncheck"},
		Permissions:    &frontend.Permissions{View: true, Change: true, Delete: true},
		LoginRequired:  frontend.Bool(false),
		Description:    "A List of Authors",
	}
}

func (f *AuthorFrontend) RowHandlers() map[string]frontend.RowAction {
	return map[string]frontend.RowAction{
		"check":   f.setChecked(true),
		"uncheck": f.setChecked(false),
	}
}

func (f *AuthorFrontend) setChecked(checked bool) frontend.RowAction {
	return func(ctx context.Context, row store.Row) error {
		id := fmt.Sprint(row[f.Entity.ID()])
		if _, err := f.saver.Save(ctx, f.Entity, id, store.Row{"checked": checked}); err != nil {
			return fmt.Errorf("set checked on %s: %w", id, err)
		}
		f.log.WithFields(logrus.Fields{
			"author":  row["name"],
			"checked": checked,
			"by":      principalID(metadata.UserFrom(ctx)),
		}).Info("author updated")
		return nil
	}
}

func principalID(u *metadata.UserContext) string {
	if !u.Authenticated() {
		return "anonymous"
	}
	return u.ID
}

// PeopleApp is the "app2" application.
type PeopleApp struct{}

func (PeopleApp) Name() string { return "app2" }

func (PeopleApp) Frontends(*metadata.Catalog) ([]frontend.Registration, error) {
	return []frontend.Registration{{
		Model: "app2.People",
		Factory: frontend.Static(frontend.Options{
			DisplayFields: []string{"id", "name", "birth_date"},
			FormFields:    []string{"birth_date"},
			SearchFields:  []string{"name"},
			SortFields:    []string{"name", "birth_date"},
		}),
	}}, nil
}

// NotesApp has models but no frontend; autodiscovery skips it.
type NotesApp struct{}

func (NotesApp) Name() string { return "notes" }
