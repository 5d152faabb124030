package model

// Kind identifies the four entity populations of an interaction graph.
// Metric distributions and quartile classification are always scoped to
// a single kind; values of different kinds are never compared.
type Kind string

const (
	KindApplication Kind = "application"
	KindTopic       Kind = "topic"
	KindNode        Kind = "node"
	KindLibrary     Kind = "library"
)

// Application is a publish/subscribe participant.
type Application struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Topic is a named communication channel. The name drives category
// derivation; Size and QoS are carried through for reporting only.
type Topic struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Size int               `json:"size,omitempty"`
	QoS  map[string]string `json:"qos,omitempty"`
}

// Node is an execution host.
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Library is a shared dependency used by applications.
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Edge is a typed relation endpoint pair. The relation type is implied
// by which Input list the edge appears in.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Input is the raw entity and edge lists for one system, as produced by
// an external loader. Structural validation beyond referential integrity
// is the loader's responsibility.
type Input struct {
	Applications []Application
	Topics       []Topic
	Nodes        []Node
	Libraries    []Library

	PublishesTo  []Edge // application -> topic
	SubscribesTo []Edge // application -> topic
	RunsOn       []Edge // application -> node (at most one per application)
	Uses         []Edge // application -> library
}
