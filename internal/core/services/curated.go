package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/logger"
)

// curatedReader loads CURATED entities. Undecodable records are skipped
// with a warning so one damaged file never hides the rest.
type curatedReader struct {
	records driven.RecordStore
	codec   driven.EntityCodec
}

// artifacts returns every curated artifact in kind order, then key order.
func (r curatedReader) artifacts(ctx context.Context) ([]*domain.Artifact, error) {
	var out []*domain.Artifact
	for _, kind := range domain.ArtifactKinds {
		keys, err := r.records.List(ctx, string(kind)+"/")
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if _, _, ok := domain.CuratedKeyParts(key); !ok {
				continue
			}
			rec, err := r.records.Get(ctx, key)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			a, err := r.codec.DecodeArtifact(rec.Data)
			if err != nil {
				logger.Warn("skipping unreadable artifact %s: %v", key, err)
				continue
			}
			if !a.IsCurated() {
				logger.Warn("skipping %s: stored under a curated key with status %s", key, a.Status)
				continue
			}
			a.Key = key
			out = append(out, a)
		}
	}
	return out, nil
}

// topics returns every curated topic in key order.
func (r curatedReader) topics(ctx context.Context) ([]*domain.Topic, error) {
	keys, err := r.records.List(ctx, domain.KindTopic+"/")
	if err != nil {
		return nil, err
	}
	var out []*domain.Topic
	for _, key := range keys {
		if _, _, ok := domain.CuratedKeyParts(key); !ok {
			continue
		}
		rec, err := r.records.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		t, err := r.codec.DecodeTopic(rec.Data)
		if err != nil {
			logger.Warn("skipping unreadable topic %s: %v", key, err)
			continue
		}
		if !t.IsCurated() {
			continue
		}
		t.Key = key
		out = append(out, t)
	}
	return out, nil
}
