// Package loader reads the JSON interaction-graph dataset format: one
// document per system holding entity lists and typed relationship edge
// lists. Referential integrity is checked by the graph model during
// Build, not here.
package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pubscope/pubscope/internal/model"
)

// Dataset is the on-disk document shape.
type Dataset struct {
	Name         string              `json:"name,omitempty"`
	Applications []model.Application `json:"applications"`
	Topics       []model.Topic       `json:"topics"`
	Nodes        []model.Node        `json:"nodes"`
	Libraries    []model.Library     `json:"libraries"`
	Relations    Relations           `json:"relationships"`
}

// Relations groups the typed edge lists.
type Relations struct {
	PublishesTo  []model.Edge `json:"publishes_to"`
	SubscribesTo []model.Edge `json:"subscribes_to"`
	RunsOn       []model.Edge `json:"runs_on"`
	Uses         []model.Edge `json:"uses"`
}

// Input converts the dataset into graph model input.
func (d *Dataset) Input() model.Input {
	return model.Input{
		Applications: d.Applications,
		Topics:       d.Topics,
		Nodes:        d.Nodes,
		Libraries:    d.Libraries,
		PublishesTo:  d.Relations.PublishesTo,
		SubscribesTo: d.Relations.SubscribesTo,
		RunsOn:       d.Relations.RunsOn,
		Uses:         d.Relations.Uses,
	}
}

// Parse decodes one dataset document.
func Parse(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := json.NewDecoder(r)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return &ds, nil
}

// Load reads and decodes a dataset file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if ds.Name == "" {
		ds.Name = path
	}
	return ds, nil
}
