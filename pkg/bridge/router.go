package bridge

import tea "github.com/charmbracelet/bubbletea"

// Router tracks which nodes are mounted. It is only touched from the UI loop.
type Router struct {
	mounted map[NodeID]struct{}
}

func NewRouter() *Router {
	return &Router{mounted: make(map[NodeID]struct{})}
}

func (r *Router) Mount(id NodeID) {
	r.mounted[id] = struct{}{}
}

func (r *Router) Unmount(id NodeID) {
	delete(r.mounted, id)
}

func (r *Router) Mounted(id NodeID) bool {
	_, ok := r.mounted[id]
	return ok
}

// Accept reports whether msg should be delivered. Unaddressed messages always
// pass; addressed ones only while their node is mounted.
func (r *Router) Accept(msg tea.Msg) bool {
	addressed, ok := msg.(Addressed)
	if !ok {
		return true
	}
	return r.Mounted(addressed.Target())
}
