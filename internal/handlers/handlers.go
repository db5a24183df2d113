package handlers

import (
	"context"

	"media-picker/internal/dispatcher"
	"media-picker/internal/indexer"
	"media-picker/internal/mediaindex"
	"media-picker/internal/metrics"
)

// MediaIndex is the read side of the media index used by the API.
type MediaIndex interface {
	dispatcher.Source
	Buckets(ctx context.Context) ([]mediaindex.Bucket, error)
	Stats(ctx context.Context) (metrics.Stats, error)
}

// IndexController is the part of the indexer the API drives.
type IndexController interface {
	IsReady() bool
	GetHealthStatus() indexer.HealthStatus
	TriggerIndex() bool
}

type Handlers struct {
	index   MediaIndex
	indexer IndexController
}

func New(index MediaIndex, idx IndexController) *Handlers {
	return &Handlers{
		index:   index,
		indexer: idx,
	}
}
