// Package model holds the immutable in-memory interaction graph that
// every analysis stage reads. A Graph is built once per run and never
// mutated afterwards.
package model

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownEntity reports an edge referencing an entity id that is
	// not declared in the input.
	ErrUnknownEntity = errors.New("edge references unknown entity")

	// ErrMultipleHosts reports an application with more than one runs_on
	// target.
	ErrMultipleHosts = errors.New("application has multiple runs_on targets")
)

// IDSet is a set of entity identifiers.
type IDSet map[string]bool

// Graph is the bidirectionally indexed interaction graph. All lookups
// are O(1) per entity; construction is linear in the edge count.
type Graph struct {
	apps  map[string]Application
	tops  map[string]Topic
	nodes map[string]Node
	libs  map[string]Library

	appIDs   []string
	topicIDs []string
	nodeIDs  []string
	libIDs   []string

	pubTopics   map[string]IDSet // Y(a): topics a publishes to
	subTopics   map[string]IDSet // A(a): topics a subscribes to
	publishers  map[string]IDSet // Y(t): applications publishing to t
	subscribers map[string]IDSet // A(t): applications subscribed to t
	hosted      map[string]IDSet // S(n): applications on node n
	hostOf      map[string]string
	appLibs     map[string]IDSet // L(a): libraries used by a
	libUsers    map[string]IDSet // U(l): applications using l
}

// Build indexes the input into a Graph. It fails with ErrUnknownEntity
// or ErrMultipleHosts on referential integrity violations; no partial
// graph is returned.
func Build(in Input) (*Graph, error) {
	g := &Graph{
		apps:  make(map[string]Application, len(in.Applications)),
		tops:  make(map[string]Topic, len(in.Topics)),
		nodes: make(map[string]Node, len(in.Nodes)),
		libs:  make(map[string]Library, len(in.Libraries)),

		pubTopics:   make(map[string]IDSet),
		subTopics:   make(map[string]IDSet),
		publishers:  make(map[string]IDSet),
		subscribers: make(map[string]IDSet),
		hosted:      make(map[string]IDSet),
		hostOf:      make(map[string]string),
		appLibs:     make(map[string]IDSet),
		libUsers:    make(map[string]IDSet),
	}

	for _, a := range in.Applications {
		g.apps[a.ID] = a
		g.appIDs = append(g.appIDs, a.ID)
	}
	for _, t := range in.Topics {
		g.tops[t.ID] = t
		g.topicIDs = append(g.topicIDs, t.ID)
	}
	for _, n := range in.Nodes {
		g.nodes[n.ID] = n
		g.nodeIDs = append(g.nodeIDs, n.ID)
	}
	for _, l := range in.Libraries {
		g.libs[l.ID] = l
		g.libIDs = append(g.libIDs, l.ID)
	}

	sort.Strings(g.appIDs)
	sort.Strings(g.topicIDs)
	sort.Strings(g.nodeIDs)
	sort.Strings(g.libIDs)

	for _, e := range in.PublishesTo {
		if err := g.checkAppTopic("publishes_to", e); err != nil {
			return nil, err
		}
		addTo(g.pubTopics, e.From, e.To)
		addTo(g.publishers, e.To, e.From)
	}
	for _, e := range in.SubscribesTo {
		if err := g.checkAppTopic("subscribes_to", e); err != nil {
			return nil, err
		}
		addTo(g.subTopics, e.From, e.To)
		addTo(g.subscribers, e.To, e.From)
	}
	for _, e := range in.RunsOn {
		if _, ok := g.apps[e.From]; !ok {
			return nil, fmt.Errorf("runs_on %s -> %s: %w", e.From, e.To, ErrUnknownEntity)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, fmt.Errorf("runs_on %s -> %s: %w", e.From, e.To, ErrUnknownEntity)
		}
		if prev, ok := g.hostOf[e.From]; ok && prev != e.To {
			return nil, fmt.Errorf("application %s: %w", e.From, ErrMultipleHosts)
		}
		g.hostOf[e.From] = e.To
		addTo(g.hosted, e.To, e.From)
	}
	for _, e := range in.Uses {
		if _, ok := g.apps[e.From]; !ok {
			return nil, fmt.Errorf("uses %s -> %s: %w", e.From, e.To, ErrUnknownEntity)
		}
		if _, ok := g.libs[e.To]; !ok {
			return nil, fmt.Errorf("uses %s -> %s: %w", e.From, e.To, ErrUnknownEntity)
		}
		addTo(g.appLibs, e.From, e.To)
		addTo(g.libUsers, e.To, e.From)
	}

	return g, nil
}

func (g *Graph) checkAppTopic(rel string, e Edge) error {
	if _, ok := g.apps[e.From]; !ok {
		return fmt.Errorf("%s %s -> %s: %w", rel, e.From, e.To, ErrUnknownEntity)
	}
	if _, ok := g.tops[e.To]; !ok {
		return fmt.Errorf("%s %s -> %s: %w", rel, e.From, e.To, ErrUnknownEntity)
	}
	return nil
}

func addTo(m map[string]IDSet, key, member string) {
	set, ok := m[key]
	if !ok {
		set = make(IDSet)
		m[key] = set
	}
	set[member] = true
}

// Applications returns all application ids in ascending order.
func (g *Graph) Applications() []string { return g.appIDs }

// Topics returns all topic ids in ascending order.
func (g *Graph) Topics() []string { return g.topicIDs }

// Nodes returns all node ids in ascending order.
func (g *Graph) Nodes() []string { return g.nodeIDs }

// Libraries returns all library ids in ascending order.
func (g *Graph) Libraries() []string { return g.libIDs }

// PubTopics returns Y(a), the topics application a publishes to.
func (g *Graph) PubTopics(appID string) IDSet { return g.pubTopics[appID] }

// SubTopics returns A(a), the topics application a subscribes to.
func (g *Graph) SubTopics(appID string) IDSet { return g.subTopics[appID] }

// Publishers returns Y(t), the applications publishing to topic t.
func (g *Graph) Publishers(topicID string) IDSet { return g.publishers[topicID] }

// Subscribers returns A(t), the applications subscribed to topic t.
func (g *Graph) Subscribers(topicID string) IDSet { return g.subscribers[topicID] }

// Hosted returns S(n), the applications running on node n.
func (g *Graph) Hosted(nodeID string) IDSet { return g.hosted[nodeID] }

// HostOf returns the node hosting the application, if any.
func (g *Graph) HostOf(appID string) (string, bool) {
	n, ok := g.hostOf[appID]
	return n, ok
}

// LibsOf returns L(a), the libraries used by application a.
func (g *Graph) LibsOf(appID string) IDSet { return g.appLibs[appID] }

// UsersOf returns U(l), the applications using library l.
func (g *Graph) UsersOf(libID string) IDSet { return g.libUsers[libID] }

// Topic returns the topic entity for an id.
func (g *Graph) Topic(id string) (Topic, bool) {
	t, ok := g.tops[id]
	return t, ok
}

// EntityName resolves the display name of any entity id, falling back
// to the id itself.
func (g *Graph) EntityName(kind Kind, id string) string {
	switch kind {
	case KindApplication:
		if a, ok := g.apps[id]; ok && a.Name != "" {
			return a.Name
		}
	case KindTopic:
		if t, ok := g.tops[id]; ok && t.Name != "" {
			return t.Name
		}
	case KindNode:
		if n, ok := g.nodes[id]; ok && n.Name != "" {
			return n.Name
		}
	case KindLibrary:
		if l, ok := g.libs[id]; ok && l.Name != "" {
			return l.Name
		}
	}
	return id
}

// TopicNames returns id -> name for all topics, defaulting to the id
// when no name is set. This is the category extractor's input.
func (g *Graph) TopicNames() map[string]string {
	names := make(map[string]string, len(g.tops))
	for id, t := range g.tops {
		if t.Name != "" {
			names[id] = t.Name
		} else {
			names[id] = id
		}
	}
	return names
}

// IDs returns the ordered id list for a kind.
func (g *Graph) IDs(kind Kind) []string {
	switch kind {
	case KindApplication:
		return g.appIDs
	case KindTopic:
		return g.topicIDs
	case KindNode:
		return g.nodeIDs
	case KindLibrary:
		return g.libIDs
	}
	return nil
}
