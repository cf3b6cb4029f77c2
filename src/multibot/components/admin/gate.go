package admin

// Gate authorizes the status broadcast command. A community's own admin
// list wins; an empty one falls back to the global list. An empty resolved
// set denies everyone.
type Gate struct {
	byGuild map[uint64][]uint64
	global  []uint64
}

func NewGate(byGuild map[uint64][]uint64, global []uint64) *Gate {
	return &Gate{byGuild: byGuild, global: global}
}

func (g *Gate) IsAuthorized(userID, guildID uint64) bool {
	ids := g.byGuild[guildID]
	if len(ids) == 0 {
		ids = g.global
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
