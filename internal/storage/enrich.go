package storage

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// signConcurrency caps parallel signing calls per batch. Signing is mostly
// local CPU plus an occasional credential refresh, so a small cap is plenty.
const signConcurrency = 8

// HasImageKeys is implemented by any entity that owns an ordered list of
// image object keys and wants them resolved to signed URLs before the
// response goes out.
type HasImageKeys interface {
	ObjectKeys() []string
	SetImageURLs([]Grant)
}

// EnrichImages signs a read URL for every image key of every entity,
// fanning the signing calls out concurrently. Entity order and per-entity
// image order are preserved regardless of completion order. The first
// signing error aborts the batch.
func (s *Service) EnrichImages(ctx context.Context, entities []HasImageKeys) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	results := make([][]Grant, len(entities))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)

	for i, entity := range entities {
		keys := entity.ObjectKeys()
		results[i] = make([]Grant, len(keys))

		for j, key := range keys {
			i, j, key := i, j, key
			g.Go(func() error {
				grant, err := s.SignRead(ctx, key)
				if err != nil {
					return err
				}
				results[i][j] = grant
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, entity := range entities {
		entity.SetImageURLs(results[i])
	}
	return nil
}
