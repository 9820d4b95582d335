package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/textnorm"
)

// Ensure LookupService implements the interface.
var _ driving.LookupService = (*LookupService)(nil)

// LookupService serves topics by name from curated content only.
// It never assembles, drafts or promotes.
type LookupService struct {
	records driven.RecordStore
	codec   driven.EntityCodec
	curated curatedReader
	metrics driven.MetricsRecorder
}

// NewLookupService creates a lookup service. metrics may be nil.
func NewLookupService(records driven.RecordStore, codec driven.EntityCodec, metrics driven.MetricsRecorder) *LookupService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &LookupService{
		records: records,
		codec:   codec,
		curated: curatedReader{records: records, codec: codec},
		metrics: metrics,
	}
}

// Lookup returns the CURATED topic for name, or the options available when
// none exists.
func (s *LookupService) Lookup(ctx context.Context, name string) (*domain.LookupResult, error) {
	name = strings.TrimSpace(name)
	slug := domain.Slug(name)
	if slug == "" {
		return nil, fmt.Errorf("topic name is empty: %w", domain.ErrInvalidInput)
	}
	key := domain.CuratedKey(domain.KindTopic, slug)
	result := &domain.LookupResult{Name: name, Key: key}

	rec, err := s.records.Get(ctx, key)
	switch {
	case err == nil:
		t, err := s.codec.DecodeTopic(rec.Data)
		if err != nil {
			return nil, err
		}
		if t.IsCurated() {
			t.Key = key
			result.Outcome = domain.LookupFound
			result.Topic = t
			s.metrics.LookupServed(string(domain.LookupFound))
			return result, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	result.Outcome = domain.LookupNotFound
	result.Instruction = fmt.Sprintf("canon topic draft %q", name)

	if result.DraftKeys, err = s.topicDrafts(ctx, slug); err != nil {
		return nil, err
	}
	if result.MatchingTerms, err = s.matchingTerms(ctx, textnorm.FoldName(name)); err != nil {
		return nil, err
	}
	if result.RelatedTopics, err = s.relatedTopics(ctx, name); err != nil {
		return nil, err
	}

	s.metrics.LookupServed(string(domain.LookupNotFound))
	return result, nil
}

// ListTopics returns curated topic names, sorted.
func (s *LookupService) ListTopics(ctx context.Context) ([]string, error) {
	topics, err := s.curated.topics(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, firstNonEmpty(t.Name, textnorm.Display(t.Slug)))
	}
	slices.Sort(names)
	return names, nil
}

// topicDrafts returns pending drafts for slug, newest first.
func (s *LookupService) topicDrafts(ctx context.Context, slug string) ([]string, error) {
	keys, err := s.records.List(ctx, domain.DraftPrefix(domain.KindTopic, slug))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if parts, ok := domain.ParseDraftKey(k); ok && parts.Slug == slug {
			out = append(out, k)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (s *LookupService) matchingTerms(ctx context.Context, query string) ([]domain.TermMatch, error) {
	artifacts, err := s.curated.artifacts(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.TermMatch
	for _, a := range artifacts {
		term := firstNonEmpty(a.Term, a.Title, a.Name)
		if strings.Contains(textnorm.FoldName(term), query) {
			out = append(out, domain.TermMatch{Key: a.Key, Kind: a.Kind, Term: term})
		}
	}
	return out, nil
}

// relatedTopics returns curated topic names sharing a word with name.
func (s *LookupService) relatedTopics(ctx context.Context, name string) ([]string, error) {
	words := textnorm.Words(name)
	topics, err := s.curated.topics(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, t := range topics {
		display := firstNonEmpty(t.Name, textnorm.Display(t.Slug))
		for _, w := range textnorm.Words(display) {
			if slices.Contains(words, w) {
				out = append(out, display)
				break
			}
		}
	}
	slices.Sort(out)
	return out, nil
}
