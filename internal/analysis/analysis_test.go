package analysis

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/pubscope/pubscope/internal/config"
	"github.com/pubscope/pubscope/internal/loader"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/pattern"
)

func edges(pairs ...string) []model.Edge {
	out := make([]model.Edge, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.Edge{From: pairs[i], To: pairs[i+1]})
	}
	return out
}

func namedApps(ids ...string) []model.Application {
	out := make([]model.Application, len(ids))
	for i, id := range ids {
		out[i] = model.Application{ID: id, Name: "svc-" + id}
	}
	return out
}

// hubDataset has one application, a1, that touches four topic
// categories, reaches five peers, skews toward publishing, and shares
// the most libraries. It should dominate the application ranking.
func hubDataset() *loader.Dataset {
	return &loader.Dataset{
		Name:         "hub",
		Applications: namedApps("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"),
		Topics: []model.Topic{
			{ID: "t1", Name: "orders.created"},
			{ID: "t2", Name: "billing.invoiced"},
			{ID: "t3", Name: "inventory.low"},
			{ID: "t4", Name: "shipping.dispatched"},
			{ID: "t5", Name: "audit.events"},
			{ID: "t6", Name: "orders.updated"},
			{ID: "t7", Name: "inventory.restocked"},
			{ID: "t8", Name: "billing.paid"},
		},
		Libraries: []model.Library{
			{ID: "l1", Name: "serde"}, {ID: "l2", Name: "authkit"},
			{ID: "l3", Name: "httpx"}, {ID: "l4", Name: "retryer"},
			{ID: "l5", Name: "tracer"},
		},
		Relations: loader.Relations{
			PublishesTo: edges(
				"a1", "t1", "a1", "t2", "a1", "t3",
				"a2", "t6", "a4", "t7", "a4", "t8",
				"a6", "t4", "a7", "t5",
			),
			SubscribesTo: edges(
				"a2", "t1", "a3", "t1", "a6", "t1",
				"a4", "t2", "a5", "t3", "a1", "t4",
				"a8", "t5", "a3", "t6", "a5", "t7", "a6", "t8",
			),
			Uses: edges(
				"a1", "l1", "a1", "l2", "a1", "l3",
				"a2", "l1", "a2", "l5",
				"a3", "l2", "a4", "l3", "a5", "l4",
			),
		},
	}
}

// backboneDataset has one balanced, widely shared topic among skewed
// or narrow ones.
func backboneDataset() *loader.Dataset {
	return &loader.Dataset{
		Name:         "backbone",
		Applications: namedApps("p1", "p2", "p3", "p4", "s1", "s2", "s3", "s4"),
		Topics: []model.Topic{
			{ID: "bus", Name: "platform.bus"},
			{ID: "u2", Name: "alerts.raised"},
			{ID: "u3", Name: "jobs.started"},
			{ID: "u4", Name: "jobs.finished"},
			{ID: "u5", Name: "audit.trail"},
			{ID: "u6", Name: "alerts.cleared"},
		},
		Relations: loader.Relations{
			PublishesTo: edges(
				"p1", "bus", "p2", "bus", "p3", "bus", "p4", "bus",
				"p1", "u2",
				"p2", "u3", "p3", "u3",
				"p4", "u4",
				"p1", "u5", "s3", "u5", "s4", "u5",
				"p2", "u6",
			),
			SubscribesTo: edges(
				"s1", "bus", "s2", "bus", "s3", "bus", "s4", "bus",
				"s1", "u3", "s2", "u4", "s1", "u5",
				"s2", "u6", "s3", "u6",
			),
		},
	}
}

func run(t *testing.T, ds *loader.Dataset) *Result {
	t.Helper()
	res, err := Run(context.Background(), ds, config.DefaultAnalysis())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRunHubApplicationDominates(t *testing.T) {
	res := run(t, hubDataset())

	apps := res.Kinds[model.KindApplication]
	if len(apps.Ranking) != 8 {
		t.Fatalf("application ranking has %d rows", len(apps.Ranking))
	}
	top := apps.Ranking[0]
	if top.ID != "a1" {
		t.Fatalf("top application = %s (score %v), want a1", top.ID, top.Score)
	}
	if top.Name != "svc-a1" {
		t.Errorf("top name = %q", top.Name)
	}

	wantPats := []pattern.Name{pattern.RoleSkew, pattern.ContextSpread, pattern.SharedDependencyExposure}
	if !reflect.DeepEqual(top.Patterns, wantPats) {
		t.Errorf("a1 patterns = %v, want %v", top.Patterns, wantPats)
	}

	// RS is shared by four applications, CS by two, SD by two:
	// 1/4 + 1/2 + 1/2. Extremity caps at tau for R, RA, TC, and LE.
	if got := top.PatternScore; math.Abs(got-1.25) > 1e-9 {
		t.Errorf("a1 pattern score = %v, want 1.25", got)
	}
	if got := top.UniScore; math.Abs(got-1.2) > 1e-9 {
		t.Errorf("a1 uni score = %v, want 1.2", got)
	}
	if got := top.Score; math.Abs(got-1.61) > 1e-9 {
		t.Errorf("a1 score = %v, want 1.61", got)
	}

	if got := apps.TriggerSets[pattern.RoleSkew]; !reflect.DeepEqual(got, []string{"a1", "a3", "a5", "a7"}) {
		t.Errorf("RS trigger set = %v", got)
	}
}

// TestRunFiveAppHub exercises a population at the quartile minimum:
// five applications, where a0 publishes four topics across three
// categories and a1..a4 each subscribe to one. Reach sorts to
// [1 1 1 1 4], so Q3 = 1 and a0 classifies high despite the repeats.
func TestRunFiveAppHub(t *testing.T) {
	ds := &loader.Dataset{
		Name:         "small-hub",
		Applications: namedApps("a0", "a1", "a2", "a3", "a4"),
		Topics: []model.Topic{
			{ID: "t1", Name: "orders.created"},
			{ID: "t2", Name: "orders.cancelled"},
			{ID: "t3", Name: "billing.invoiced"},
			{ID: "t4", Name: "shipping.sent"},
		},
		Relations: loader.Relations{
			PublishesTo: edges("a0", "t1", "a0", "t2", "a0", "t3", "a0", "t4"),
			SubscribesTo: edges(
				"a1", "t1", "a2", "t2", "a3", "t3", "a4", "t4",
			),
		},
	}
	res := run(t, ds)

	apps := res.Kinds[model.KindApplication]
	if len(apps.Ranking) != 5 {
		t.Fatalf("application ranking has %d rows", len(apps.Ranking))
	}
	if got := apps.TriggerSets[pattern.RoleSkew]; !reflect.DeepEqual(got, []string{"a0"}) {
		t.Errorf("RS trigger set = %v, want [a0]", got)
	}
	if got := apps.TriggerSets[pattern.ContextSpread]; !reflect.DeepEqual(got, []string{"a0"}) {
		t.Errorf("CS trigger set = %v, want [a0]", got)
	}

	top := apps.Ranking[0]
	if top.ID != "a0" {
		t.Fatalf("top application = %s (score %v), want a0", top.ID, top.Score)
	}
	// RS and CS are each singleton sets: 1 + 1. Extremity caps at tau
	// for R, RA, and TC.
	if math.Abs(top.PatternScore-2) > 1e-9 {
		t.Errorf("a0 pattern score = %v, want 2", top.PatternScore)
	}
	if math.Abs(top.UniScore-0.9) > 1e-9 {
		t.Errorf("a0 uni score = %v, want 0.9", top.UniScore)
	}
	if math.Abs(top.Score-2.27) > 1e-9 {
		t.Errorf("a0 score = %v, want 2.27", top.Score)
	}
	for _, row := range apps.Ranking[1:] {
		if row.Score != 0 {
			t.Errorf("%s score = %v, want 0", row.ID, row.Score)
		}
	}
}

// TestRunSingleActiveTopic ranks one fully shared topic against four
// unused ones. Coverage sorts to [0 0 0 0 8], which is a valid
// population even though only two values occur.
func TestRunSingleActiveTopic(t *testing.T) {
	ds := &loader.Dataset{
		Name:         "single-active",
		Applications: namedApps("a0", "a1", "a2", "a3", "a4"),
		Topics: []model.Topic{
			{ID: "t0", Name: "platform.events"},
			{ID: "t1", Name: "idle.alpha"},
			{ID: "t2", Name: "idle.beta"},
			{ID: "t3", Name: "idle.gamma"},
			{ID: "t4", Name: "idle.delta"},
		},
		Relations: loader.Relations{
			PublishesTo: edges("a0", "t0", "a1", "t0", "a2", "t0", "a3", "t0"),
			SubscribesTo: edges(
				"a1", "t0", "a2", "t0", "a3", "t0", "a4", "t0",
			),
		},
	}
	res := run(t, ds)

	tops := res.Kinds[model.KindTopic]
	if tops.Ranking[0].ID != "t0" {
		t.Fatalf("top topic = %s, want t0", tops.Ranking[0].ID)
	}
	// Coverage is t0's only classification: 8 against Q3 = 0 caps at
	// tau, scaled by lambda.
	if got := tops.Ranking[0].Score; math.Abs(got-0.09) > 1e-9 {
		t.Errorf("t0 score = %v, want 0.09", got)
	}
	for _, row := range tops.Ranking[1:] {
		if row.Score != 0 {
			t.Errorf("%s score = %v, want 0", row.ID, row.Score)
		}
	}
}

// TestRunPurePublisherOutlier checks that one extreme metric cannot
// dominate the ranking. a0 publishes five topics nobody subscribes to:
// its role asymmetry triggers RS but its reach is zero, so a1, which
// triggers four patterns, must outrank it.
func TestRunPurePublisherOutlier(t *testing.T) {
	ds := &loader.Dataset{
		Name:         "pure-publisher",
		Applications: namedApps("a0", "a1", "a2", "a3", "a4"),
		Topics: []model.Topic{
			{ID: "t1", Name: "stream.alpha"},
			{ID: "t2", Name: "stream.beta"},
			{ID: "t3", Name: "stream.gamma"},
			{ID: "t4", Name: "stream.delta"},
			{ID: "t5", Name: "stream.epsilon"},
			{ID: "x1", Name: "orders.created"},
			{ID: "x2", Name: "billing.invoiced"},
			{ID: "x3", Name: "audit.log"},
		},
		Libraries: []model.Library{
			{ID: "l1", Name: "serde"}, {ID: "l2", Name: "authkit"},
		},
		Relations: loader.Relations{
			PublishesTo: edges(
				"a0", "t1", "a0", "t2", "a0", "t3", "a0", "t4", "a0", "t5",
				"a2", "x1", "a3", "x2", "a4", "x3",
			),
			SubscribesTo: edges("a1", "x1", "a1", "x2", "a1", "x3"),
			Uses:         edges("a1", "l1", "a1", "l2"),
		},
	}
	res := run(t, ds)

	apps := res.Kinds[model.KindApplication]
	if got := apps.TriggerSets[pattern.WideReach]; !reflect.DeepEqual(got, []string{"a1"}) {
		t.Errorf("WR trigger set = %v, want [a1]", got)
	}
	if got := apps.TriggerSets[pattern.RoleSkew]; !reflect.DeepEqual(got, []string{"a0", "a1"}) {
		t.Errorf("RS trigger set = %v, want [a0 a1]", got)
	}

	byID := make(map[string]Row, len(apps.Ranking))
	for _, row := range apps.Ranking {
		byID[row.ID] = row
	}
	a0, a1 := byID["a0"], byID["a1"]
	if !reflect.DeepEqual(a0.Patterns, []pattern.Name{pattern.RoleSkew}) {
		t.Errorf("a0 patterns = %v, want [RS]", a0.Patterns)
	}
	// a0: RS shared with a1 (1/2) plus capped RA extremity.
	if math.Abs(a0.Score-0.59) > 1e-9 {
		t.Errorf("a0 score = %v, want 0.59", a0.Score)
	}
	// a1: WR 1 + RS 1/2 + CS 1 + SD 1, plus four capped extremities.
	if math.Abs(a1.Score-3.86) > 1e-9 {
		t.Errorf("a1 score = %v, want 3.86", a1.Score)
	}
	if a0.Score >= a1.Score {
		t.Error("single-metric outlier outranked a multi-pattern entity")
	}
	if apps.Ranking[0].ID != "a1" {
		t.Errorf("top application = %s, want a1", apps.Ranking[0].ID)
	}
}

func TestRunDetectsHubFeedbackLoop(t *testing.T) {
	res := run(t, hubDataset())

	// a1 -> t1 -> a6 and a6 -> t4 -> a1.
	if len(res.Cycles.PairLoops) != 1 {
		t.Fatalf("PairLoops = %+v", res.Cycles.PairLoops)
	}
	got := res.Cycles.PairLoops[0]
	if got.AppA != "a1" || got.AppB != "a6" || got.Forward != "t1" || got.Backward != "t4" {
		t.Errorf("PairLoops[0] = %+v", got)
	}
}

func TestRunBackboneTopic(t *testing.T) {
	res := run(t, backboneDataset())

	tops := res.Kinds[model.KindTopic]
	if got := tops.TriggerSets[pattern.CommunicationBackbone]; !reflect.DeepEqual(got, []string{"bus"}) {
		t.Fatalf("CB trigger set = %v, want [bus]", got)
	}
	if tops.Ranking[0].ID != "bus" {
		t.Errorf("top topic = %s, want bus", tops.Ranking[0].ID)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	a := run(t, hubDataset())
	b := run(t, hubDataset())

	for _, kind := range []model.Kind{
		model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary,
	} {
		if !reflect.DeepEqual(a.Kinds[kind].Ranking, b.Kinds[kind].Ranking) {
			t.Errorf("%s ranking differs between runs", kind)
		}
		if !reflect.DeepEqual(a.Kinds[kind].TriggerSets, b.Kinds[kind].TriggerSets) {
			t.Errorf("%s trigger sets differ between runs", kind)
		}
	}
	if !reflect.DeepEqual(a.Cycles, b.Cycles) {
		t.Error("cycle reports differ between runs")
	}
}

func TestRunRejectsBrokenDataset(t *testing.T) {
	ds := hubDataset()
	ds.Relations.PublishesTo = append(ds.Relations.PublishesTo, model.Edge{From: "a1", To: "nope"})

	_, err := Run(context.Background(), ds, config.DefaultAnalysis())
	if !errors.Is(err, model.ErrUnknownEntity) {
		t.Fatalf("err = %v, want ErrUnknownEntity", err)
	}
}

func TestStageErrorAborts(t *testing.T) {
	res := &Result{}
	boom := errors.New("boom")

	err := res.stage(context.Background(), "failing", func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("stage error = %v, want boom", err)
	}
	if len(res.Stages) != 1 || res.Stages[0].Stage != "failing" {
		t.Errorf("failed stage not timed: %+v", res.Stages)
	}
}

func TestRunRejectsInvalidParams(t *testing.T) {
	for name, cfg := range map[string]config.AnalysisConfig{
		"tau_above_one": {Tau: 2, Lambda: 0.3, MinLCPLength: 3, TopK: 10},
		"zero_value":    {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Run(context.Background(), hubDataset(), cfg)
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRunKeepsParamsAndTimesStages(t *testing.T) {
	res := run(t, hubDataset())

	if res.Params != config.DefaultAnalysis() {
		t.Errorf("params rewritten: %+v", res.Params)
	}
	want := []string{"graph", "categories", "metrics", "evaluate", "cycles", "statistics"}
	if len(res.Stages) != len(want) {
		t.Fatalf("stages = %+v", res.Stages)
	}
	for i, st := range res.Stages {
		if st.Stage != want[i] {
			t.Errorf("stage[%d] = %s, want %s", i, st.Stage, want[i])
		}
	}
	if res.FinishedAt.Before(res.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
}

func TestStatistics(t *testing.T) {
	res := run(t, hubDataset())
	st := res.Stats

	if st.Applications != 8 || st.Topics != 8 || st.Libraries != 5 || st.Nodes != 0 {
		t.Errorf("counts = %+v", st)
	}
	if st.PublishEdges != 8 || st.SubscribeEdges != 10 || st.UsesEdges != 8 {
		t.Errorf("edge counts = %+v", st)
	}
	if len(st.TopApplications) == 0 || st.TopApplications[0].ID != "a1" {
		t.Errorf("TopApplications = %+v", st.TopApplications)
	}
	if len(st.TopTopics) == 0 || st.TopTopics[0].ID != "t1" {
		t.Errorf("TopTopics = %+v", st.TopTopics)
	}
}
