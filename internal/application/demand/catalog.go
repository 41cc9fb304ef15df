package demand

import (
	"slices"
	"strings"

	"github.com/rezkam/demand/internal/domain"
)

// Catalog indexes the skill, client and staff directories for extraction.
type Catalog struct {
	skills  map[string]struct{}
	clients map[string]domain.Client
	staff   map[string]domain.Staff // keyed by normalized id
}

// NewCatalog builds a catalog from directory listings.
func NewCatalog(skills []string, clients []domain.Client, staff []domain.Staff) Catalog {
	c := Catalog{
		skills:  make(map[string]struct{}, len(skills)),
		clients: make(map[string]domain.Client, len(clients)),
		staff:   make(map[string]domain.Staff, len(staff)),
	}
	for _, s := range skills {
		c.skills[strings.TrimSpace(s)] = struct{}{}
	}
	for _, cl := range clients {
		c.clients[cl.ID] = cl
	}
	for _, st := range staff {
		st.ID = domain.NormalizeStaffID(st.ID)
		c.staff[st.ID] = st
	}
	return c
}

// HasSkill reports whether skill is a known skill name.
func (c Catalog) HasSkill(skill string) bool {
	_, ok := c.skills[strings.TrimSpace(skill)]
	return ok
}

// Client looks up a client by id.
func (c Catalog) Client(id string) (domain.Client, bool) {
	cl, ok := c.clients[id]
	return cl, ok
}

// Staff looks up a staff member by id. The id is normalized first.
func (c Catalog) Staff(id string) (domain.Staff, bool) {
	st, ok := c.staff[domain.NormalizeStaffID(id)]
	return st, ok
}

// Skills returns the known skills, sorted.
func (c Catalog) Skills() []string {
	out := make([]string, 0, len(c.skills))
	for s := range c.skills {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Clients returns the known clients sorted by id.
func (c Catalog) Clients() []domain.Client {
	out := make([]domain.Client, 0, len(c.clients))
	for _, cl := range c.clients {
		out = append(out, cl)
	}
	slices.SortFunc(out, func(a, b domain.Client) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// StaffMembers returns the known staff sorted by normalized id.
func (c Catalog) StaffMembers() []domain.Staff {
	out := make([]domain.Staff, 0, len(c.staff))
	for _, st := range c.staff {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b domain.Staff) int { return strings.Compare(a.ID, b.ID) })
	return out
}
