package routing

import (
	"github.com/nerrad567/gray-logic-audio/internal/idlist"
	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// priorityList holds every routable node ascending by class priority.
// Nodes of equal priority keep their registration order.
type priorityList struct {
	nodes *idlist.List[node.ID, *node.Node]
}

func newPriorityList() *priorityList {
	return &priorityList{nodes: idlist.New[node.ID, *node.Node]()}
}

func (p *priorityList) insert(n *node.Node) {
	p.nodes.InsertBefore(n.ID, n, func(_ node.ID, cur *node.Node) bool {
		return cur.Priority > n.Priority
	})
}

func (p *priorityList) remove(id node.ID) {
	p.nodes.Remove(id)
}

func (p *priorityList) contains(id node.ID) bool {
	return p.nodes.Contains(id)
}

func (p *priorityList) keys() []node.ID {
	return p.nodes.Keys()
}

// PriorityList returns the routable node IDs, lowest priority first.
func (r *Router) PriorityList() []node.ID {
	return r.prilist.keys()
}
