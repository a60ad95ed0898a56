// Package network models a directed 1D hydraulic network: nodes, branches
// and the point features (structures, cross-sections) placed along branches.
//
// The network is owned by the hosting application. Grid generation and grid
// validation only read it; neither keeps graph state between calls.
package network

import (
	"fmt"
	"math"
)

// Node is a network vertex. Identity is pointer identity.
type Node struct {
	Name string

	incoming []*Branch
	outgoing []*Branch
}

// IncomingBranches returns the branches whose target is this node, in insertion order.
func (n *Node) IncomingBranches() []*Branch {
	return append([]*Branch(nil), n.incoming...)
}

// OutgoingBranches returns the branches whose source is this node, in insertion order.
func (n *Node) OutgoingBranches() []*Branch {
	return append([]*Branch(nil), n.outgoing...)
}

// Branches returns every branch connected to the node, incoming first.
// A self-loop is listed once.
func (n *Node) Branches() []*Branch {
	all := make([]*Branch, 0, len(n.incoming)+len(n.outgoing))
	all = append(all, n.incoming...)
	for _, b := range n.outgoing {
		if b.Target != n {
			all = append(all, b)
		}
	}
	return all
}

func (n *Node) String() string {
	return n.Name
}

// Network is an in-memory branch network.
type Network struct {
	Name string

	nodes    []*Node
	branches []*Branch
	byName   map[string]*Branch
	nodeName map[string]*Node
}

// New creates an empty network.
func New(name string) *Network {
	return &Network{
		Name:     name,
		byName:   make(map[string]*Branch),
		nodeName: make(map[string]*Node),
	}
}

// AddNode adds a named node. Node names must be unique.
func (n *Network) AddNode(name string) (*Node, error) {
	if _, exists := n.nodeName[name]; exists {
		return nil, newError("AddNode", "node", name, ErrDuplicateName)
	}
	node := &Node{Name: name}
	n.nodes = append(n.nodes, node)
	n.nodeName[name] = node
	return node, nil
}

// AddBranch connects source to target with a new branch of the given length.
// Both nodes must belong to the network and branch names must be unique.
func (n *Network) AddBranch(name string, source, target *Node, length float64) (*Branch, error) {
	if source == nil || target == nil {
		return nil, newError("AddBranch", "branch", name, ErrNilArgument)
	}
	if _, exists := n.byName[name]; exists {
		return nil, newError("AddBranch", "branch", name, ErrDuplicateName)
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return nil, newError("AddBranch", "branch", name, fmt.Errorf("%w: %v", ErrInvalidLength, length))
	}
	if !n.ContainsNode(source) {
		return nil, newError("AddBranch", "branch", name, fmt.Errorf("%w: source %q", ErrNodeNotInNetwork, source.Name))
	}
	if !n.ContainsNode(target) {
		return nil, newError("AddBranch", "branch", name, fmt.Errorf("%w: target %q", ErrNodeNotInNetwork, target.Name))
	}

	b := &Branch{
		Name:    name,
		Length:  length,
		Source:  source,
		Target:  target,
		network: n,
		index:   len(n.branches),
	}
	n.branches = append(n.branches, b)
	n.byName[name] = b
	source.outgoing = append(source.outgoing, b)
	target.incoming = append(target.incoming, b)
	return b, nil
}

// Nodes returns the nodes in insertion order.
func (n *Network) Nodes() []*Node {
	return append([]*Node(nil), n.nodes...)
}

// Branches returns the branches in network order.
func (n *Network) Branches() []*Branch {
	return append([]*Branch(nil), n.branches...)
}

// Node looks a node up by name.
func (n *Network) Node(name string) (*Node, bool) {
	node, ok := n.nodeName[name]
	return node, ok
}

// Branch looks a branch up by name.
func (n *Network) Branch(name string) (*Branch, bool) {
	b, ok := n.byName[name]
	return b, ok
}

// Contains reports whether the branch belongs to this network.
func (n *Network) Contains(b *Branch) bool {
	return b != nil && b.network == n
}

// ContainsNode reports whether the node belongs to this network.
func (n *Network) ContainsNode(node *Node) bool {
	if node == nil {
		return false
	}
	found, ok := n.nodeName[node.Name]
	return ok && found == node
}
