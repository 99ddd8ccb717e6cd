package nexori

// rooms is the set of rooms the client wants to be joined to, kept in
// request order so rejoins are deterministic. Guarded by Client.mu.
type rooms struct {
	order []string
	index map[string]struct{}
}

func newRooms() *rooms {
	return &rooms{index: make(map[string]struct{})}
}

// add reports whether name was not already a member.
func (r *rooms) add(name string) bool {
	if _, ok := r.index[name]; ok {
		return false
	}
	r.index[name] = struct{}{}
	r.order = append(r.order, name)
	return true
}

// remove reports whether name was a member.
func (r *rooms) remove(name string) bool {
	if _, ok := r.index[name]; !ok {
		return false
	}
	delete(r.index, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *rooms) list() []string {
	return append([]string(nil), r.order...)
}
