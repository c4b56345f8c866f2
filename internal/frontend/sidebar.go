package frontend

import (
	"strings"

	"github.com/sirupsen/logrus"

	"fast-frontend/internal/metadata"
)

// AccountGroup is the display name of the synthetic accounts group.
const AccountGroup = "Account"

// SidebarItem is one navigation entry.
type SidebarItem struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Module      string `json:"module,omitempty"`
	Description string `json:"description,omitempty"`
	Route       string `json:"route,omitempty"` // route-name hint, account entries only
	Path        string `json:"path"`
}

// SidebarGroup is an ordered set of navigation entries under one heading.
type SidebarGroup struct {
	Group  string        `json:"group"`
	Module string        `json:"module,omitempty"` // owning module in fallback mode
	Items  []SidebarItem `json:"items"`
}

// SidebarSection declares one configured group. Entities holds
// *metadata.Entity values or qualified "module.EntityName" strings.
type SidebarSection struct {
	Group    string
	Entities []any
}

// SidebarStructure is an explicit, ordered navigation layout. Only listed
// entities appear.
type SidebarStructure []SidebarSection

// Sidebar builds navigation without principal-based suppression.
func (r *Registry) Sidebar() []SidebarGroup {
	r.mu.RLock()
	structure := r.sidebar
	accounts := r.accounts
	r.mu.RUnlock()

	global := r.GlobalConfig()
	var groups []SidebarGroup
	if structure == nil {
		groups = r.moduleGroups(global)
	} else {
		groups = r.configuredGroups(global, structure)
	}
	if accounts != nil {
		groups = append(groups, accountGroup(accounts))
	}
	return groups
}

// SidebarFor builds navigation for one principal. When login is required and
// authentication is enabled, anonymous principals see only the Account group.
func (r *Registry) SidebarFor(user *metadata.UserContext) []SidebarGroup {
	groups := r.Sidebar()
	if r.GlobalConfig().AuthenticationEnabled() && !user.Authenticated() {
		return OnlyGroup(groups, AccountGroup)
	}
	return groups
}

// Cards returns the home page cards: the principal's sidebar minus the
// Account group when authentication is enabled.
func (r *Registry) Cards(user *metadata.UserContext) []SidebarGroup {
	groups := r.SidebarFor(user)
	if !r.GlobalConfig().AuthenticationEnabled() {
		return groups
	}
	out := make([]SidebarGroup, 0, len(groups))
	for _, g := range groups {
		if g.Group != AccountGroup {
			out = append(out, g)
		}
	}
	return out
}

// OnlyGroup keeps the groups whose display name equals name.
func OnlyGroup(groups []SidebarGroup, name string) []SidebarGroup {
	out := []SidebarGroup{}
	for _, g := range groups {
		if g.Group == name {
			out = append(out, g)
		}
	}
	return out
}

// GroupByModule keeps the groups owned by module, or whose display name
// matches it case-insensitively.
func GroupByModule(groups []SidebarGroup, module string) []SidebarGroup {
	out := []SidebarGroup{}
	for _, g := range groups {
		if strings.EqualFold(g.Module, module) || strings.EqualFold(g.Group, module) {
			out = append(out, g)
		}
	}
	return out
}

func (r *Registry) moduleGroups(global *GlobalConfig) []SidebarGroup {
	var groups []SidebarGroup
	index := make(map[string]int)
	for _, e := range r.Entities() {
		i, ok := index[strings.ToLower(e.Module)]
		if !ok {
			label := e.Module
			if m := r.catalog.Module(e.Module); m != nil {
				label = m.VerboseName()
			}
			groups = append(groups, SidebarGroup{Group: label, Module: e.Module})
			i = len(groups) - 1
			index[strings.ToLower(e.Module)] = i
		}
		groups[i].Items = append(groups[i].Items, entityItem(global, e))
	}
	return groups
}

func (r *Registry) configuredGroups(global *GlobalConfig, structure SidebarStructure) []SidebarGroup {
	var groups []SidebarGroup
	for _, section := range structure {
		g := SidebarGroup{Group: section.Group}
		for _, ident := range section.Entities {
			e := r.resolveIdentifier(ident)
			if e == nil {
				r.log.WithFields(logrus.Fields{"group": section.Group, "identifier": ident}).
					Warn("sidebar identifier does not resolve to a registered entity, skipping")
				continue
			}
			g.Items = append(g.Items, entityItem(global, e))
		}
		if len(g.Items) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func (r *Registry) resolveIdentifier(ident any) *metadata.Entity {
	var e *metadata.Entity
	switch v := ident.(type) {
	case *metadata.Entity:
		e = v
	case string:
		if r.catalog != nil {
			e = r.catalog.Resolve(v)
		}
	}
	if !r.IsRegistered(e) {
		return nil
	}
	return e
}

func entityItem(global *GlobalConfig, e *metadata.Entity) SidebarItem {
	return SidebarItem{
		Name:        strings.ToLower(e.Name),
		Label:       e.Label(),
		Module:      e.Module,
		Description: e.Description,
		Path:        global.EntityPath(e),
	}
}

func accountGroup(cfg *AccountsConfig) SidebarGroup {
	routes := cfg.Routes
	if len(routes) == 0 {
		routes = DefaultAccountRoutes("/accounts")
	}
	g := SidebarGroup{Group: AccountGroup}
	for _, rt := range routes {
		g.Items = append(g.Items, SidebarItem{
			Name:        rt.Name,
			Label:       rt.Label,
			Description: rt.Label,
			Route:       rt.Route,
			Path:        rt.Path,
		})
	}
	return g
}
