// Package graph provides persistent storage for interaction-graph
// datasets.
package graph

import (
	"context"

	"github.com/pubscope/pubscope/internal/loader"
)

// Repository stores and retrieves interaction-graph datasets.
type Repository interface {
	// StoreDataset persists one system's entities and relationships.
	// Storing a dataset under an existing name replaces it.
	StoreDataset(ctx context.Context, ds *loader.Dataset) error
	// LoadDataset retrieves a system by name.
	LoadDataset(ctx context.Context, name string) (*loader.Dataset, error)
	// ListDatasets returns the stored system names.
	ListDatasets(ctx context.Context) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
