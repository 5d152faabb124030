package model

import (
	"errors"
	"testing"
)

func smallInput() Input {
	return Input{
		Applications: []Application{{ID: "A1", Name: "orders"}, {ID: "A2", Name: "billing"}},
		Topics:       []Topic{{ID: "T1", Name: "orders.created"}},
		Nodes:        []Node{{ID: "N1", Name: "edge-1"}},
		Libraries:    []Library{{ID: "L1", Name: "serde"}},
		PublishesTo:  []Edge{{From: "A1", To: "T1"}},
		SubscribesTo: []Edge{{From: "A2", To: "T1"}},
		RunsOn:       []Edge{{From: "A1", To: "N1"}, {From: "A2", To: "N1"}},
		Uses:         []Edge{{From: "A1", To: "L1"}},
	}
}

func TestBuild_Indices(t *testing.T) {
	g, err := Build(smallInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !g.PubTopics("A1")["T1"] {
		t.Error("A1 should publish to T1")
	}
	if !g.Publishers("T1")["A1"] {
		t.Error("T1 publishers should contain A1")
	}
	if !g.Subscribers("T1")["A2"] {
		t.Error("T1 subscribers should contain A2")
	}
	if len(g.Hosted("N1")) != 2 {
		t.Errorf("N1 should host 2 applications, got %d", len(g.Hosted("N1")))
	}
	if host, ok := g.HostOf("A2"); !ok || host != "N1" {
		t.Errorf("HostOf(A2) = %q, %v; want N1, true", host, ok)
	}
	if !g.UsersOf("L1")["A1"] {
		t.Error("L1 users should contain A1")
	}
}

func TestBuild_SortedIDs(t *testing.T) {
	in := smallInput()
	in.Applications = []Application{{ID: "A9"}, {ID: "A1"}, {ID: "A5"}}
	in.SubscribesTo = nil
	in.RunsOn = []Edge{{From: "A1", To: "N1"}}
	g, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ids := g.Applications()
	want := []string{"A1", "A5", "A9"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("Applications() = %v, want %v", ids, want)
		}
	}
}

func TestBuild_DanglingEdge(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"publishes_unknown_app", func(in *Input) {
			in.PublishesTo = append(in.PublishesTo, Edge{From: "A99", To: "T1"})
		}},
		{"subscribes_unknown_topic", func(in *Input) {
			in.SubscribesTo = append(in.SubscribesTo, Edge{From: "A1", To: "T99"})
		}},
		{"runs_on_unknown_node", func(in *Input) {
			in.RunsOn = append(in.RunsOn, Edge{From: "A1", To: "N99"})
		}},
		{"uses_unknown_library", func(in *Input) {
			in.Uses = append(in.Uses, Edge{From: "A1", To: "L99"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := smallInput()
			tt.mutate(&in)
			if _, err := Build(in); !errors.Is(err, ErrUnknownEntity) {
				t.Errorf("Build = %v, want ErrUnknownEntity", err)
			}
		})
	}
}

func TestBuild_MultipleHosts(t *testing.T) {
	in := smallInput()
	in.Nodes = append(in.Nodes, Node{ID: "N2"})
	in.RunsOn = append(in.RunsOn, Edge{From: "A1", To: "N2"})
	if _, err := Build(in); !errors.Is(err, ErrMultipleHosts) {
		t.Errorf("Build = %v, want ErrMultipleHosts", err)
	}
}

func TestBuild_DuplicateRunsOnSameNode(t *testing.T) {
	in := smallInput()
	in.RunsOn = append(in.RunsOn, Edge{From: "A1", To: "N1"})
	if _, err := Build(in); err != nil {
		t.Errorf("duplicate runs_on to the same node should not fail: %v", err)
	}
}

func TestEntityName_Fallback(t *testing.T) {
	g, err := Build(smallInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.EntityName(KindApplication, "A1"); got != "orders" {
		t.Errorf("EntityName(A1) = %q, want orders", got)
	}
	if got := g.EntityName(KindApplication, "A77"); got != "A77" {
		t.Errorf("EntityName falls back to id, got %q", got)
	}
}
