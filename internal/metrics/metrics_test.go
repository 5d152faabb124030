package metrics

import (
	"math"
	"testing"

	"github.com/pubscope/pubscope/internal/category"
	"github.com/pubscope/pubscope/internal/model"
)

func buildGraph(t *testing.T, in model.Input) *model.Graph {
	t.Helper()
	g, err := model.Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// hubInput models one publisher feeding four subscribers over four
// topics spanning three name categories.
func hubInput() model.Input {
	return model.Input{
		Applications: []model.Application{
			{ID: "A0"}, {ID: "A1"}, {ID: "A2"}, {ID: "A3"}, {ID: "A4"},
		},
		Topics: []model.Topic{
			{ID: "T1", Name: "orders.created"},
			{ID: "T2", Name: "orders.cancelled"},
			{ID: "T3", Name: "billing.invoice"},
			{ID: "T4", Name: "fleet.position"},
		},
		Nodes: []model.Node{{ID: "N1"}, {ID: "N2"}},
		PublishesTo: []model.Edge{
			{From: "A0", To: "T1"}, {From: "A0", To: "T2"},
			{From: "A0", To: "T3"}, {From: "A0", To: "T4"},
		},
		SubscribesTo: []model.Edge{
			{From: "A1", To: "T1"}, {From: "A2", To: "T2"},
			{From: "A3", To: "T3"}, {From: "A4", To: "T4"},
		},
		RunsOn: []model.Edge{
			{From: "A0", To: "N1"}, {From: "A1", To: "N1"},
			{From: "A2", To: "N2"}, {From: "A3", To: "N2"}, {From: "A4", To: "N2"},
		},
	}
}

func TestComputeApplications_Hub(t *testing.T) {
	g := buildGraph(t, hubInput())
	cats := category.PairwiseLCP{}.Categories(g.TopicNames())
	apps := ComputeApplications(g, cats)

	hub := apps["A0"]
	if hub[Reach] != 4 {
		t.Errorf("R(A0) = %v, want 4", hub[Reach])
	}
	// 4 peers over 4 published topics: 4 / (4+1).
	if hub[Amplification] != 0.8 {
		t.Errorf("A(A0) = %v, want 0.8", hub[Amplification])
	}
	// Pure publisher: (4-0)/(4+0+1).
	if hub[RoleAsymmetry] != 0.8 {
		t.Errorf("RA(A0) = %v, want 0.8", hub[RoleAsymmetry])
	}
	// orders / billing.invoice / fleet.position.
	if hub[ContextDiversity] != 3 {
		t.Errorf("TC(A0) = %v, want 3", hub[ContextDiversity])
	}

	leaf := apps["A1"]
	if leaf[Reach] != 1 {
		t.Errorf("R(A1) = %v, want 1", leaf[Reach])
	}
	if leaf[RoleAsymmetry] >= 0 {
		t.Errorf("RA(A1) = %v, want negative (pure subscriber)", leaf[RoleAsymmetry])
	}
}

func TestRoleAsymmetry_Bounds(t *testing.T) {
	g := buildGraph(t, hubInput())
	cats := category.PairwiseLCP{}.Categories(g.TopicNames())
	for id, row := range ComputeApplications(g, cats) {
		ra := row[RoleAsymmetry]
		if ra <= -1 || ra >= 1 {
			t.Errorf("RA(%s) = %v, outside (-1, 1)", id, ra)
		}
	}
}

func TestRoleAsymmetry_Isolated(t *testing.T) {
	in := hubInput()
	in.Applications = append(in.Applications, model.Application{ID: "A9"})
	g := buildGraph(t, in)
	cats := category.PairwiseLCP{}.Categories(g.TopicNames())
	apps := ComputeApplications(g, cats)
	if apps["A9"][RoleAsymmetry] != 0 {
		t.Errorf("RA of isolated application = %v, want 0", apps["A9"][RoleAsymmetry])
	}
	if apps["A9"][Reach] != 0 {
		t.Errorf("R of isolated application = %v, want 0", apps["A9"][Reach])
	}
}

func TestReach_ExcludesSelf(t *testing.T) {
	in := model.Input{
		Applications: []model.Application{{ID: "A0"}},
		Topics:       []model.Topic{{ID: "T1", Name: "loop"}},
		PublishesTo:  []model.Edge{{From: "A0", To: "T1"}},
		SubscribesTo: []model.Edge{{From: "A0", To: "T1"}},
	}
	g := buildGraph(t, in)
	cats := category.PairwiseLCP{}.Categories(g.TopicNames())
	if r := ComputeApplications(g, cats)["A0"][Reach]; r != 0 {
		t.Errorf("self-loop must not count toward reach, got %v", r)
	}
}

func TestComputeTopics(t *testing.T) {
	in := model.Input{
		Applications: []model.Application{{ID: "A0"}, {ID: "A1"}, {ID: "A2"}, {ID: "A3"}, {ID: "A4"}},
		Topics:       []model.Topic{{ID: "T0", Name: "bus"}, {ID: "T1", Name: "idle"}},
		Nodes:        []model.Node{{ID: "N1"}, {ID: "N2"}},
		PublishesTo: []model.Edge{
			{From: "A0", To: "T0"}, {From: "A1", To: "T0"},
			{From: "A2", To: "T0"}, {From: "A3", To: "T0"},
		},
		SubscribesTo: []model.Edge{
			{From: "A1", To: "T0"}, {From: "A2", To: "T0"},
			{From: "A3", To: "T0"}, {From: "A4", To: "T0"},
		},
		RunsOn: []model.Edge{
			{From: "A0", To: "N1"}, {From: "A1", To: "N1"},
			{From: "A2", To: "N2"}, {From: "A3", To: "N2"}, {From: "A4", To: "N2"},
		},
	}
	g := buildGraph(t, in)
	topics := ComputeTopics(g)

	backbone := topics["T0"]
	if backbone[Coverage] != 8 {
		t.Errorf("C(T0) = %v, want 8", backbone[Coverage])
	}
	if backbone[Imbalance] != 0 {
		t.Errorf("I(T0) = %v, want 0", backbone[Imbalance])
	}
	if backbone[PhysicalSpread] != 2 {
		t.Errorf("PS(T0) = %v, want 2", backbone[PhysicalSpread])
	}

	idle := topics["T1"]
	if idle[Coverage] != 0 || idle[Imbalance] != 0 || idle[PhysicalSpread] != 0 {
		t.Errorf("unused topic metrics = %v, want all zero", idle)
	}
}

func TestImbalance_Bounds(t *testing.T) {
	// 3 publishers, 0 subscribers: |3-0| / (3+0+1) = 0.75.
	in := model.Input{
		Applications: []model.Application{{ID: "A0"}, {ID: "A1"}, {ID: "A2"}},
		Topics:       []model.Topic{{ID: "T0", Name: "out.only"}},
		PublishesTo:  []model.Edge{{From: "A0", To: "T0"}, {From: "A1", To: "T0"}, {From: "A2", To: "T0"}},
	}
	g := buildGraph(t, in)
	got := ComputeTopics(g)["T0"][Imbalance]
	if math.Abs(got-0.75) > 1e-12 {
		t.Errorf("I(T0) = %v, want 0.75", got)
	}
	if got < 0 || got >= 1 {
		t.Errorf("I(T0) = %v, outside [0, 1)", got)
	}
}

func TestComputeNodes_InteractionDensity(t *testing.T) {
	g := buildGraph(t, hubInput())
	nodes := ComputeNodes(g)

	// N1 hosts A0 and A1; A0 publishes T1 which A1 subscribes to.
	if nodes["N1"][NodeDensity] != 2 {
		t.Errorf("ND(N1) = %v, want 2", nodes["N1"][NodeDensity])
	}
	if nodes["N1"][InteractionDensity] != 1 {
		t.Errorf("NID(N1) = %v, want 1", nodes["N1"][InteractionDensity])
	}

	// N2 hosts A2, A3, A4: none of them interact with each other.
	if nodes["N2"][NodeDensity] != 3 {
		t.Errorf("ND(N2) = %v, want 3", nodes["N2"][NodeDensity])
	}
	if nodes["N2"][InteractionDensity] != 0 {
		t.Errorf("NID(N2) = %v, want 0", nodes["N2"][InteractionDensity])
	}
}

func TestInteractionDensity_PairCountsOnce(t *testing.T) {
	// Two applications connected over two topics and in both directions
	// still form exactly one interacting pair.
	in := model.Input{
		Applications: []model.Application{{ID: "A0"}, {ID: "A1"}},
		Topics:       []model.Topic{{ID: "T1", Name: "cmd"}, {ID: "T2", Name: "ack"}},
		Nodes:        []model.Node{{ID: "N1"}},
		PublishesTo:  []model.Edge{{From: "A0", To: "T1"}, {From: "A1", To: "T2"}},
		SubscribesTo: []model.Edge{{From: "A1", To: "T1"}, {From: "A0", To: "T2"}},
		RunsOn:       []model.Edge{{From: "A0", To: "N1"}, {From: "A1", To: "N1"}},
	}
	g := buildGraph(t, in)
	if nid := ComputeNodes(g)["N1"][InteractionDensity]; nid != 1 {
		t.Errorf("NID(N1) = %v, want 1", nid)
	}
}

func TestComputeLibraries(t *testing.T) {
	in := hubInput()
	in.Libraries = []model.Library{{ID: "L1"}, {ID: "L2"}}
	in.Uses = []model.Edge{
		{From: "A0", To: "L1"}, {From: "A1", To: "L1"},
		{From: "A2", To: "L1"}, {From: "A3", To: "L1"},
		{From: "A4", To: "L2"},
	}
	g := buildGraph(t, in)
	libs := ComputeLibraries(g)

	if libs["L1"][LibraryCoverage] != 4 {
		t.Errorf("LC(L1) = %v, want 4", libs["L1"][LibraryCoverage])
	}
	// L1 users: A0,A1 on N1; A2,A3 on N2 -> max co-location 2.
	if libs["L1"][LibraryConcentration] != 2 {
		t.Errorf("LCon(L1) = %v, want 2", libs["L1"][LibraryConcentration])
	}
	if libs["L2"][LibraryCoverage] != 1 || libs["L2"][LibraryConcentration] != 1 {
		t.Errorf("L2 metrics = %v, want LC=1 LCon=1", libs["L2"])
	}
}

func TestForKind_CoversAllKinds(t *testing.T) {
	for _, kind := range []model.Kind{
		model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary,
	} {
		if len(ForKind(kind)) == 0 {
			t.Errorf("no metrics registered for kind %s", kind)
		}
	}
}
