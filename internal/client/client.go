// Package client is the contract with the fitness API and its HTTP binding.
package client

import (
	"context"

	"github.com/roach88/fitsync/internal/model"
)

// Client is the network surface the sync engine and the run timeline use.
// Day arguments are server day numbers.
type Client interface {
	GetProgress(ctx context.Context) ([]model.ProgressResponse, error)
	GetProgressDay(ctx context.Context, day int) (model.ProgressResponse, error)
	CreateProgress(ctx context.Context, req model.ProgressRequest) (model.ProgressResponse, error)
	UpdateProgress(ctx context.Context, day int, req model.ProgressRequest) (model.ProgressResponse, error)
	DeleteProgress(ctx context.Context, day int) error
	DeletePhoto(ctx context.Context, day int, slot string) error
	StartRun(ctx context.Context, date *string) (model.RunResponse, error)
	GetCurrentRun(ctx context.Context) (model.RunResponse, error)
}
