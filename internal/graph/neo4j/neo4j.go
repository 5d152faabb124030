// Package neo4j implements graph.Repository on Neo4j. Each dataset is
// a :System node owning its entities; relationship types mirror the
// dataset edge lists.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pubscope/pubscope/internal/graph"
	"github.com/pubscope/pubscope/internal/loader"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/observability"
)

// Repository implements graph.Repository using Neo4j.
type Repository struct {
	driver neo4j.DriverWithContext
}

// New creates a Neo4j-backed repository.
func New(ctx context.Context, uri, username, password string) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Repository{driver: driver}, nil
}

var relType = map[string]string{
	"publishes_to":  "PUBLISHES_TO",
	"subscribes_to": "SUBSCRIBES_TO",
	"runs_on":       "RUNS_ON",
	"uses":          "USES",
}

// StoreDataset persists one dataset, replacing any previous version
// stored under the same name.
func (r *Repository) StoreDataset(ctx context.Context, ds *loader.Dataset) error {
	ctx, span := observability.StartGraphDBSpan(ctx, "store")
	start := time.Now()
	err := r.storeDataset(ctx, ds)
	size := len(ds.Applications) + len(ds.Topics) + len(ds.Nodes) + len(ds.Libraries)
	observability.RecordStageResult(span, size, start, err)
	return err
}

func (r *Repository) storeDataset(ctx context.Context, ds *loader.Dataset) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			"MATCH (s:System {name: $name}) OPTIONAL MATCH (s)-[:OWNS]->(e) DETACH DELETE s, e",
			map[string]any{"name": ds.Name}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx,
			"CREATE (s:System {name: $name})",
			map[string]any{"name": ds.Name}); err != nil {
			return nil, err
		}

		if err := createEntities(ctx, tx, ds.Name, "Application", apps(ds)); err != nil {
			return nil, err
		}
		if err := createTopics(ctx, tx, ds); err != nil {
			return nil, err
		}
		if err := createEntities(ctx, tx, ds.Name, "Host", hosts(ds)); err != nil {
			return nil, err
		}
		if err := createEntities(ctx, tx, ds.Name, "Library", libs(ds)); err != nil {
			return nil, err
		}

		for rel, edges := range map[string][]model.Edge{
			"publishes_to":  ds.Relations.PublishesTo,
			"subscribes_to": ds.Relations.SubscribesTo,
			"runs_on":       ds.Relations.RunsOn,
			"uses":          ds.Relations.Uses,
		} {
			if err := createEdges(ctx, tx, ds.Name, rel, edges); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store dataset %s: %w", ds.Name, err)
	}
	return nil
}

type entity struct {
	id, name string
}

func apps(ds *loader.Dataset) []entity {
	out := make([]entity, len(ds.Applications))
	for i, a := range ds.Applications {
		out[i] = entity{a.ID, a.Name}
	}
	return out
}

func hosts(ds *loader.Dataset) []entity {
	out := make([]entity, len(ds.Nodes))
	for i, n := range ds.Nodes {
		out[i] = entity{n.ID, n.Name}
	}
	return out
}

func libs(ds *loader.Dataset) []entity {
	out := make([]entity, len(ds.Libraries))
	for i, l := range ds.Libraries {
		out[i] = entity{l.ID, l.Name}
	}
	return out
}

func createEntities(ctx context.Context, tx neo4j.ManagedTransaction, system, label string, entities []entity) error {
	for _, e := range entities {
		_, err := tx.Run(ctx,
			fmt.Sprintf("MATCH (s:System {name: $system}) "+
				"CREATE (s)-[:OWNS]->(:%s {id: $id, name: $name, system: $system})", label),
			map[string]any{"system": system, "id": e.id, "name": e.name})
		if err != nil {
			return err
		}
	}
	return nil
}

func createTopics(ctx context.Context, tx neo4j.ManagedTransaction, ds *loader.Dataset) error {
	for _, t := range ds.Topics {
		qos := make(map[string]any, len(t.QoS))
		for k, v := range t.QoS {
			qos["qos_"+k] = v
		}
		_, err := tx.Run(ctx,
			"MATCH (s:System {name: $system}) "+
				"CREATE (s)-[:OWNS]->(t:Topic {id: $id, name: $name, size: $size, system: $system}) "+
				"SET t += $qos",
			map[string]any{"system": ds.Name, "id": t.ID, "name": t.Name, "size": t.Size, "qos": qos})
		if err != nil {
			return err
		}
	}
	return nil
}

func createEdges(ctx context.Context, tx neo4j.ManagedTransaction, system, rel string, edges []model.Edge) error {
	for _, e := range edges {
		_, err := tx.Run(ctx,
			fmt.Sprintf("MATCH (a {id: $from, system: $system}), (b {id: $to, system: $system}) "+
				"CREATE (a)-[:%s]->(b)", relType[rel]),
			map[string]any{"system": system, "from": e.From, "to": e.To})
		if err != nil {
			return fmt.Errorf("%s %s -> %s: %w", rel, e.From, e.To, err)
		}
	}
	return nil
}

// LoadDataset retrieves a stored system by name.
func (r *Repository) LoadDataset(ctx context.Context, name string) (*loader.Dataset, error) {
	ctx, span := observability.StartGraphDBSpan(ctx, "load")
	start := time.Now()
	ds, err := r.loadDataset(ctx, name)
	size := 0
	if ds != nil {
		size = len(ds.Applications) + len(ds.Topics) + len(ds.Nodes) + len(ds.Libraries)
	}
	observability.RecordStageResult(span, size, start, err)
	return ds, err
}

func (r *Repository) loadDataset(ctx context.Context, name string) (*loader.Dataset, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		ds := &loader.Dataset{Name: name}

		records, err := tx.Run(ctx,
			"MATCH (:System {name: $system})-[:OWNS]->(e) "+
				"RETURN labels(e) AS labels, properties(e) AS props",
			map[string]any{"system": name})
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			rec := records.Record()
			labels, _ := rec.Get("labels")
			props, _ := rec.Get("props")
			addEntity(ds, labels.([]any), props.(map[string]any))
		}

		for rel, neoType := range relType {
			records, err := tx.Run(ctx,
				fmt.Sprintf("MATCH (a {system: $system})-[:%s]->(b {system: $system}) "+
					"RETURN a.id AS from, b.id AS to ORDER BY from, to", neoType),
				map[string]any{"system": name})
			if err != nil {
				return nil, err
			}
			var edges []model.Edge
			for records.Next(ctx) {
				rec := records.Record()
				from, _ := rec.Get("from")
				to, _ := rec.Get("to")
				edges = append(edges, model.Edge{From: from.(string), To: to.(string)})
			}
			setEdges(ds, rel, edges)
		}
		return ds, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", name, err)
	}
	return result.(*loader.Dataset), nil
}

func addEntity(ds *loader.Dataset, labels []any, props map[string]any) {
	id, _ := props["id"].(string)
	name, _ := props["name"].(string)

	for _, l := range labels {
		switch l {
		case "Application":
			ds.Applications = append(ds.Applications, model.Application{ID: id, Name: name})
		case "Topic":
			t := model.Topic{ID: id, Name: name}
			if size, ok := props["size"].(int64); ok {
				t.Size = int(size)
			}
			for k, v := range props {
				if len(k) > 4 && k[:4] == "qos_" {
					if t.QoS == nil {
						t.QoS = make(map[string]string)
					}
					t.QoS[k[4:]], _ = v.(string)
				}
			}
			ds.Topics = append(ds.Topics, t)
		case "Host":
			ds.Nodes = append(ds.Nodes, model.Node{ID: id, Name: name})
		case "Library":
			ds.Libraries = append(ds.Libraries, model.Library{ID: id, Name: name})
		}
	}
}

func setEdges(ds *loader.Dataset, rel string, edges []model.Edge) {
	switch rel {
	case "publishes_to":
		ds.Relations.PublishesTo = edges
	case "subscribes_to":
		ds.Relations.SubscribesTo = edges
	case "runs_on":
		ds.Relations.RunsOn = edges
	case "uses":
		ds.Relations.Uses = edges
	}
}

// ListDatasets returns the stored system names.
func (r *Repository) ListDatasets(ctx context.Context) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, "MATCH (s:System) RETURN s.name AS name ORDER BY name", nil)
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("name")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return result.([]string), nil
}

// Close releases the driver.
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graph.Repository = (*Repository)(nil)
