package messenger

import (
	"sort"

	"github.com/samber/lo"
)

// Presence is the set of online user ids. Each broadcast replaces it.
type Presence struct {
	online map[string]struct{}
}

// Replace installs ids as the complete online set.
func (p *Presence) Replace(ids []string) {
	p.online = lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
}

func (p *Presence) IsOnline(id string) bool {
	_, ok := p.online[id]
	return ok
}

// Online returns the ids in sorted order.
func (p *Presence) Online() []string {
	ids := lo.Keys(p.online)
	sort.Strings(ids)
	return ids
}

func (p *Presence) Len() int { return len(p.online) }
