package messenger

import (
	"strings"

	"github.com/connectsphere/cli/internal/api"
	"github.com/samber/lo"
)

// Directory caches the user list, looked-up profiles and the current
// search.
type Directory struct {
	users    []api.Identity
	profiles map[string]api.Identity

	query     string
	searchGen uint64
	results   []api.Identity
	searching bool
}

// setUsers installs the listing minus selfID.
func (d *Directory) setUsers(users []api.Identity, selfID string) {
	d.users = excluding(users, selfID)
}

func (d *Directory) setProfile(id api.Identity) {
	if d.profiles == nil {
		d.profiles = map[string]api.Identity{}
	}
	d.profiles[id.ID] = id
	for i := range d.users {
		if d.users[i].ID == id.ID {
			d.users[i] = id
		}
	}
}

func excluding(users []api.Identity, selfID string) []api.Identity {
	return lo.Filter(users, func(u api.Identity, _ int) bool { return u.ID != selfID })
}

// Users is the listing without the local user.
func (d *Directory) Users() []api.Identity { return d.users }

// Visible is what the All Users tab shows: the search results while a query
// is active, otherwise the full listing.
func (d *Directory) Visible() []api.Identity {
	if strings.TrimSpace(d.query) == "" {
		return d.users
	}
	if d.results == nil {
		// filter locally until the server answers
		q := strings.ToLower(strings.TrimSpace(d.query))
		return lo.Filter(d.users, func(u api.Identity, _ int) bool {
			return strings.Contains(strings.ToLower(u.DisplayName), q)
		})
	}
	return d.results
}

func (d *Directory) Query() string { return d.query }

func (d *Directory) Searching() bool { return d.searching }

// Lookup returns the best known identity for id.
func (d *Directory) Lookup(id string) (api.Identity, bool) {
	if p, ok := d.profiles[id]; ok {
		return p, true
	}
	return lo.Find(d.users, func(u api.Identity) bool { return u.ID == id })
}
