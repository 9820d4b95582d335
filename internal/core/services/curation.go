package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
)

// Ensure CurationService implements the interface.
var _ driving.CurationService = (*CurationService)(nil)

// CurationService is the only writer of artifacts and topics. Every write
// goes through RecordStore.CompareAndSwap against the revision last read.
type CurationService struct {
	records driven.RecordStore
	codec   driven.EntityCodec
	ledger  driving.CitationLedger
	metrics driven.MetricsRecorder
	now     func() time.Time
}

// NewCurationService creates a curation service. metrics may be nil.
func NewCurationService(
	records driven.RecordStore,
	codec driven.EntityCodec,
	ledger driving.CitationLedger,
	metrics driven.MetricsRecorder,
) *CurationService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &CurationService{
		records: records,
		codec:   codec,
		ledger:  ledger,
		metrics: metrics,
		now:     time.Now,
	}
}

// SaveDraft stores an artifact as DRAFT and removes older drafts of the
// same kind and name.
func (s *CurationService) SaveDraft(ctx context.Context, artifact *domain.Artifact) (*driving.DraftResult, error) {
	if artifact == nil {
		return nil, fmt.Errorf("artifact is nil: %w", domain.ErrInvalidInput)
	}
	if !artifact.Kind.IsValid() {
		return nil, fmt.Errorf("artifact kind %q: %w", artifact.Kind, domain.ErrUnsupportedType)
	}
	name := domain.Slug(firstNonEmpty(artifact.Name, artifact.Term, artifact.Title))
	if name == "" {
		return nil, fmt.Errorf("artifact needs a name, term or title: %w", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	draft := *artifact
	draft.Name = name
	draft.Status = domain.StatusDraft
	draft.ReviewedBy = ""
	draft.History = nil
	draft.LastUpdated = now
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	data, err := s.codec.EncodeArtifact(&draft)
	if err != nil {
		return nil, err
	}
	key := domain.DraftKey(string(draft.Kind), name, now)
	if err := s.put(ctx, key, data); err != nil {
		return nil, err
	}

	replaced, err := s.pruneDrafts(ctx, string(draft.Kind), name, key)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.ledger.ValidateArtifact(ctx, &draft)
	if err != nil {
		return nil, err
	}

	logger.Info("saved draft %s (%d unresolved citation(s))", key, len(unresolved))
	return &driving.DraftResult{Key: key, Replaced: replaced, Unresolved: unresolved}, nil
}

// SaveTopicDraft stores a topic as DRAFT and removes older drafts of the
// same topic.
func (s *CurationService) SaveTopicDraft(ctx context.Context, topic *domain.Topic) (*driving.DraftResult, error) {
	if topic == nil {
		return nil, fmt.Errorf("topic is nil: %w", domain.ErrInvalidInput)
	}
	slug := domain.Slug(firstNonEmpty(topic.Slug, topic.Name))
	if slug == "" {
		return nil, fmt.Errorf("topic needs a name: %w", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	draft := *topic
	draft.Slug = slug
	if draft.Name == "" {
		draft.Name = slug
	}
	draft.Status = domain.StatusDraft
	draft.ReviewedBy = ""
	draft.History = nil
	draft.LastUpdated = now
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	data, err := s.codec.EncodeTopic(&draft)
	if err != nil {
		return nil, err
	}
	key := domain.DraftKey(domain.KindTopic, slug, now)
	if err := s.put(ctx, key, data); err != nil {
		return nil, err
	}

	replaced, err := s.pruneDrafts(ctx, domain.KindTopic, slug, key)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.ledger.ValidateTopic(ctx, &draft)
	if err != nil {
		return nil, err
	}

	logger.Info("saved topic draft %s (%d unresolved citation(s))", key, len(unresolved))
	return &driving.DraftResult{Key: key, Replaced: replaced, Unresolved: unresolved}, nil
}

// Promote moves a draft to CURATED. It fails closed: any gate failure
// leaves the store unchanged.
func (s *CurationService) Promote(ctx context.Context, req driving.PromoteRequest) (*driving.PromoteResult, error) {
	parts, ok := domain.ParseDraftKey(req.DraftKey)
	if !ok {
		return nil, fmt.Errorf("%q is not a draft key: %w", req.DraftKey, domain.ErrInvalidInput)
	}
	dest := req.Destination
	if dest == "" {
		dest = domain.CuratedKey(parts.Kind, parts.Slug)
	}
	if kind, _, ok := domain.CuratedKeyParts(dest); !ok || kind != parts.Kind {
		return nil, fmt.Errorf("destination %q must be a %s key: %w", dest, parts.Kind, domain.ErrInvalidInput)
	}

	draftRec, err := s.records.Get(ctx, req.DraftKey)
	if err != nil {
		return nil, err
	}

	var p promotable
	if parts.Kind == domain.KindTopic {
		t, err := s.codec.DecodeTopic(draftRec.Data)
		if err != nil {
			return nil, err
		}
		p = topicEntity{t}
	} else {
		a, err := s.codec.DecodeArtifact(draftRec.Data)
		if err != nil {
			return nil, err
		}
		p = artifactEntity{a}
	}

	reviewer := strings.TrimSpace(req.ReviewedBy)
	var reasons []string
	if reviewer == "" {
		reasons = append(reasons, "a human reviewer is required")
	}
	if reason := p.citationGap(); reason != "" {
		reasons = append(reasons, reason)
	}
	unresolved, err := p.validate(ctx, s.ledger)
	if err != nil {
		return nil, err
	}
	if len(reasons) > 0 || len(unresolved) > 0 {
		s.metrics.PromotionAttempted("denied")
		logger.Warn("promotion of %s denied: %d reason(s), %d unresolved citation(s)", req.DraftKey, len(reasons), len(unresolved))
		return nil, &domain.PromotionDeniedError{DraftKey: req.DraftKey, Reasons: reasons, Unresolved: unresolved}
	}

	expected := domain.NoRevision
	action := domain.ActionPromote
	var prior promotable
	existing, err := s.records.Get(ctx, dest)
	switch {
	case err == nil:
		if !req.AllowEdit {
			s.metrics.PromotionAttempted("refused")
			return nil, &domain.RefusedOverwriteError{Key: dest}
		}
		prior, err = s.decodeAs(parts.Kind, existing.Data)
		if err != nil {
			return nil, err
		}
		expected = existing.Revision
		action = domain.ActionEdit
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	now := s.now().UTC()
	rev := domain.Revision{
		ID:         uuid.NewString(),
		Action:     action,
		ReviewedBy: reviewer,
		DraftKey:   req.DraftKey,
		At:         now,
	}
	data, err := p.curate(s.codec, prior, rev)
	if err != nil {
		return nil, err
	}

	newRev, err := s.records.CompareAndSwap(ctx, dest, expected, data)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.PromotionAttempted("conflict")
		}
		return nil, err
	}

	if err := s.records.Delete(ctx, req.DraftKey, draftRec.Revision); err != nil {
		logger.Warn("promoted %s but could not remove draft %s: %v", dest, req.DraftKey, err)
	}

	outcome := "promoted"
	if action == domain.ActionEdit {
		outcome = "edited"
	}
	s.metrics.PromotionAttempted(outcome)
	logger.Info("%s %s -> %s by %s", outcome, req.DraftKey, dest, reviewer)
	return &driving.PromoteResult{Key: dest, Revision: newRev, Edited: action == domain.ActionEdit}, nil
}

// Checkout copies a CURATED entity into a new draft. Promoting that draft
// back requires the edit override.
func (s *CurationService) Checkout(ctx context.Context, curatedKey string) (*driving.DraftResult, error) {
	kind, _, ok := domain.CuratedKeyParts(curatedKey)
	if !ok {
		return nil, fmt.Errorf("%q is not a curated key: %w", curatedKey, domain.ErrInvalidInput)
	}
	rec, err := s.records.Get(ctx, curatedKey)
	if err != nil {
		return nil, err
	}
	if kind == domain.KindTopic {
		t, err := s.codec.DecodeTopic(rec.Data)
		if err != nil {
			return nil, err
		}
		t.GeneratedBy = "checkout:" + curatedKey
		return s.SaveTopicDraft(ctx, t)
	}
	a, err := s.codec.DecodeArtifact(rec.Data)
	if err != nil {
		return nil, err
	}
	a.GeneratedBy = "checkout:" + curatedKey
	return s.SaveDraft(ctx, a)
}

// Get returns an artifact by draft or curated key.
func (s *CurationService) Get(ctx context.Context, key string) (*domain.Artifact, error) {
	if kindOfKey(key) == domain.KindTopic {
		return nil, fmt.Errorf("%s is a topic: %w", key, domain.ErrUnsupportedType)
	}
	rec, err := s.records.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	a, err := s.codec.DecodeArtifact(rec.Data)
	if err != nil {
		return nil, err
	}
	a.Key = key
	return a, nil
}

// GetTopic returns a topic by draft or curated key.
func (s *CurationService) GetTopic(ctx context.Context, key string) (*domain.Topic, error) {
	if kindOfKey(key) != domain.KindTopic {
		return nil, fmt.Errorf("%s is not a topic: %w", key, domain.ErrUnsupportedType)
	}
	rec, err := s.records.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	t, err := s.codec.DecodeTopic(rec.Data)
	if err != nil {
		return nil, err
	}
	t.Key = key
	return t, nil
}

// ListCurated returns curated keys for a kind, or every curated key.
func (s *CurationService) ListCurated(ctx context.Context, kind string) ([]string, error) {
	prefix := ""
	if kind != "" {
		prefix = kind + "/"
	}
	keys, err := s.records.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if _, _, ok := domain.CuratedKeyParts(k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// ListDrafts returns draft keys for a kind, or every draft key.
func (s *CurationService) ListDrafts(ctx context.Context, kind string) ([]string, error) {
	prefix := domain.DraftsPrefix
	if kind != "" {
		prefix += kind + "/"
	}
	return s.records.List(ctx, prefix)
}

// History returns the review log of a curated entity.
func (s *CurationService) History(ctx context.Context, key string) ([]domain.Revision, error) {
	kind, _, ok := domain.CuratedKeyParts(key)
	if !ok {
		return nil, fmt.Errorf("%q is not a curated key: %w", key, domain.ErrInvalidInput)
	}
	rec, err := s.records.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	p, err := s.decodeAs(kind, rec.Data)
	if err != nil {
		return nil, err
	}
	return p.history(), nil
}

// DeleteDraft removes a draft. Curated keys are refused.
func (s *CurationService) DeleteDraft(ctx context.Context, key string) error {
	if !domain.IsDraftKey(key) {
		if _, _, ok := domain.CuratedKeyParts(key); ok {
			return &domain.RefusedOverwriteError{Key: key}
		}
		return fmt.Errorf("%q is not a draft key: %w", key, domain.ErrInvalidInput)
	}
	rec, err := s.records.Get(ctx, key)
	if err != nil {
		return err
	}
	return s.records.Delete(ctx, key, rec.Revision)
}

// CleanDrafts removes every draft.
func (s *CurationService) CleanDrafts(ctx context.Context) (int, error) {
	keys, err := s.records.List(ctx, domain.DraftsPrefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		if err := s.DeleteDraft(ctx, key); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// put writes data at key, replacing whatever revision is stored there.
// Only used for draft keys.
func (s *CurationService) put(ctx context.Context, key string, data []byte) error {
	expected := domain.NoRevision
	rec, err := s.records.Get(ctx, key)
	switch {
	case err == nil:
		expected = rec.Revision
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	_, err = s.records.CompareAndSwap(ctx, key, expected, data)
	return err
}

// pruneDrafts removes drafts of kind+slug other than keep. Draft prefixes
// can collide ("clock_" also prefixes "clock_domain_"), so the slug is
// compared after parsing.
func (s *CurationService) pruneDrafts(ctx context.Context, kind, slug, keep string) ([]string, error) {
	keys, err := s.records.List(ctx, domain.DraftPrefix(kind, slug))
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, key := range keys {
		if key == keep {
			continue
		}
		parts, ok := domain.ParseDraftKey(key)
		if !ok || parts.Kind != kind || parts.Slug != slug {
			continue
		}
		if err := s.DeleteDraft(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return removed, err
		}
		removed = append(removed, key)
	}
	return removed, nil
}

func (s *CurationService) decodeAs(kind string, data []byte) (promotable, error) {
	if kind == domain.KindTopic {
		t, err := s.codec.DecodeTopic(data)
		if err != nil {
			return nil, err
		}
		return topicEntity{t}, nil
	}
	a, err := s.codec.DecodeArtifact(data)
	if err != nil {
		return nil, err
	}
	return artifactEntity{a}, nil
}

// promotable abstracts over artifacts and topics during promotion.
type promotable interface {
	citationGap() string
	validate(ctx context.Context, ledger driving.CitationLedger) ([]domain.UnresolvedCitation, error)
	history() []domain.Revision
	createdAt() time.Time
	curate(codec driven.EntityCodec, prior promotable, rev domain.Revision) ([]byte, error)
}

type artifactEntity struct{ a *domain.Artifact }

func (e artifactEntity) citationGap() string {
	if e.a.Kind.RequiresCitation() && len(e.a.Citations) == 0 {
		return fmt.Sprintf("%s artifacts need at least one citation", e.a.Kind)
	}
	return ""
}

func (e artifactEntity) validate(ctx context.Context, l driving.CitationLedger) ([]domain.UnresolvedCitation, error) {
	return l.ValidateArtifact(ctx, e.a)
}

func (e artifactEntity) history() []domain.Revision { return e.a.History }
func (e artifactEntity) createdAt() time.Time       { return e.a.CreatedAt }

func (e artifactEntity) curate(codec driven.EntityCodec, prior promotable, rev domain.Revision) ([]byte, error) {
	out := *e.a
	out.Key = ""
	out.Status = domain.StatusCurated
	out.ReviewedBy = rev.ReviewedBy
	out.LastUpdated = rev.At
	out.History = appendHistory(prior, rev)
	if prior != nil && !prior.createdAt().IsZero() {
		out.CreatedAt = prior.createdAt()
	}
	return codec.EncodeArtifact(&out)
}

type topicEntity struct{ t *domain.Topic }

func (e topicEntity) citationGap() string {
	if len(e.t.Citations()) == 0 {
		return "a topic needs at least one curated entry or source"
	}
	return ""
}

func (e topicEntity) validate(ctx context.Context, l driving.CitationLedger) ([]domain.UnresolvedCitation, error) {
	return l.ValidateTopic(ctx, e.t)
}

func (e topicEntity) history() []domain.Revision { return e.t.History }
func (e topicEntity) createdAt() time.Time       { return e.t.CreatedAt }

func (e topicEntity) curate(codec driven.EntityCodec, prior promotable, rev domain.Revision) ([]byte, error) {
	out := *e.t
	out.Key = ""
	out.Status = domain.StatusCurated
	out.ReviewedBy = rev.ReviewedBy
	out.LastUpdated = rev.At
	out.History = appendHistory(prior, rev)
	if prior != nil && !prior.createdAt().IsZero() {
		out.CreatedAt = prior.createdAt()
	}
	return codec.EncodeTopic(&out)
}

func appendHistory(prior promotable, rev domain.Revision) []domain.Revision {
	var h []domain.Revision
	if prior != nil {
		h = append(h, prior.history()...)
	}
	return append(h, rev)
}

// kindOfKey returns the kind segment of a draft or curated key.
func kindOfKey(key string) string {
	if parts, ok := domain.ParseDraftKey(key); ok {
		return parts.Kind
	}
	kind, _, _ := domain.CuratedKeyParts(key)
	return kind
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// nopMetrics discards every observation.
type nopMetrics struct{}

func (nopMetrics) DocumentIngested(string, int, int, time.Duration) {}
func (nopMetrics) PromotionAttempted(string)                        {}
func (nopMetrics) OracleCalled(string, time.Duration)               {}
func (nopMetrics) LookupServed(string)                              {}
