// AngelaMos | 2026
// service.go

package consultation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/llm"
	"github.com/carterperez-dev/mystic-backend/internal/prompt"
)

const tracerName = "github.com/carterperez-dev/mystic-backend/internal/consultation"

var consultationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mystic_consultations_total",
		Help: "Consultation lifecycle events by kind",
	},
	[]string{"kind", "event"},
)

// Policy is the per-kind access configuration.
type Policy struct {
	AllowAnonymous bool
	RequirePayment bool
}

// Archiver stores archived transcripts. A nil Archiver archives in place
// without uploading.
type Archiver interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const transcriptLinkExpiry = 15 * time.Minute

type ServiceConfig struct {
	Repo      Repository
	LLM       llm.Client
	Prompts   *prompt.Registry
	Archiver  Archiver
	Features  map[Kind]*Feature
	Policies  map[Kind]Policy
	Validator *validator.Validate
	Logger    *slog.Logger
	Now       func() time.Time
}

type Service struct {
	repo      Repository
	llm       llm.Client
	prompts   *prompt.Registry
	archiver  Archiver
	features  map[Kind]*Feature
	policies  map[Kind]Policy
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		llm:       cfg.LLM,
		prompts:   cfg.Prompts,
		archiver:  cfg.Archiver,
		features:  cfg.Features,
		policies:  cfg.Policies,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.prompts == nil {
		s.prompts = prompt.DefaultRegistry()
	}
	if s.features == nil {
		s.features = DefaultFeatures()
	}
	if s.validator == nil {
		s.validator = core.NewValidator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Feature looks up a consultation kind by its URL name.
func (s *Service) Feature(kind Kind) (*Feature, error) {
	f, ok := s.features[kind]
	if !ok {
		return nil, fmt.Errorf("consultation kind %q: %w", kind, core.ErrNotFound)
	}
	return f, nil
}

// owner maps the requester onto the stored owner id. An empty requester is
// anonymous and only accepted where the kind's policy allows it.
func (s *Service) owner(kind Kind, requesterID string) (string, error) {
	if requesterID != "" {
		return requesterID, nil
	}
	if s.policies[kind].AllowAnonymous {
		return AnonymousOwner, nil
	}
	return "", fmt.Errorf("%s requires sign in: %w", kind, core.ErrUnauthorized)
}

func (s *Service) Create(
	ctx context.Context,
	requesterID string,
	kind Kind,
	raw json.RawMessage,
) (*Consultation, error) {
	feature, err := s.Feature(kind)
	if err != nil {
		return nil, err
	}

	owner, err := s.owner(kind, requesterID)
	if err != nil {
		return nil, err
	}

	input, metadata, err := s.decodeInput(feature, raw)
	if err != nil {
		return nil, err
	}

	stored, err := toObject(input)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	tier := input.Tier()
	price := feature.Price(tier)
	if feature.Paid && price.IsZero() {
		s.logger.WarnContext(ctx, "tier has no price, consultation recorded at zero",
			"kind", kind,
			"tier", tier,
		)
	}

	c := &Consultation{
		ID:        uuid.New().String(),
		Kind:      kind,
		UserID:    owner,
		Input:     stored,
		Questions: input.Questions(),
		Responses: List{},
		Metadata:  metadata,
		Tier:      tier,
		Price:     price,
		Status:    StatusPending,
	}
	if feature.Paid {
		pending := PaymentPending
		c.PaymentStatus = &pending
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	consultationsTotal.WithLabelValues(string(kind), "created").Inc()
	s.logger.InfoContext(ctx, "consultation created",
		"kind", kind,
		"id", c.ID,
		"tier", tier,
		"price", price.StringFixed(2),
	)

	return c, nil
}

func (s *Service) decodeInput(feature *Feature, raw json.RawMessage) (Input, Object, error) {
	input := feature.newInput()

	if err := json.Unmarshal(raw, input); err != nil {
		return nil, nil, core.InvalidInput("invalid %s request body", feature.Kind)
	}

	if t, ok := input.(trimmer); ok {
		t.Trim()
	}

	if err := s.validator.Struct(input); err != nil {
		return nil, nil, core.InvalidInput("%s", core.FormatValidationError(err))
	}

	metadata := Object{}
	if p, ok := input.(preparer); ok {
		derived, err := p.Prepare(s.now())
		if err != nil {
			return nil, nil, err
		}
		for k, v := range derived {
			metadata[k] = v
		}
	}

	return input, metadata, nil
}

// Generate asks the model one question at a time, in order, and completes
// the record. Nothing is stored unless every call succeeded; a concurrent
// generation that stored first wins and this call fails with
// core.ErrConflict.
func (s *Service) Generate(
	ctx context.Context,
	requesterID string,
	kind Kind,
	id string,
) (*Consultation, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "consultation.generate",
		attribute.String("consultation.kind", string(kind)),
		attribute.String("consultation.id", id),
	)
	c, err := s.generate(ctx, requesterID, kind, id)
	core.EndSpan(span, err)
	return c, err
}

func (s *Service) generate(
	ctx context.Context,
	requesterID string,
	kind Kind,
	id string,
) (*Consultation, error) {
	feature, err := s.Feature(kind)
	if err != nil {
		return nil, err
	}

	c, err := s.get(ctx, requesterID, kind, id)
	if err != nil {
		return nil, err
	}

	if c.Status == StatusArchived {
		return nil, fmt.Errorf("generate %s %s: archived: %w", kind, id, core.ErrConflict)
	}

	if feature.Paid && s.policies[kind].RequirePayment && !c.IsPaid() {
		return nil, fmt.Errorf("generate %s %s: %w", kind, id, core.ErrPaymentRequired)
	}

	responses := make(List, 0, len(c.Questions))
	for i, question := range c.Questions {
		msgs, err := s.prompts.Render(string(kind), prompt.Data{
			Input:    c.Input,
			Question: question,
			Index:    i + 1,
			Total:    len(c.Questions),
		})
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", kind, err)
		}

		completion, err := s.llm.Invoke(ctx, msgs)
		if err != nil {
			consultationsTotal.WithLabelValues(string(kind), "generation_failed").Inc()
			s.logger.WarnContext(ctx, "model call failed",
				"kind", kind,
				"id", id,
				"question", i+1,
				"error", err,
			)
			return nil, fmt.Errorf("generate %s question %d: %w: %w", kind, i+1, core.ErrGeneration, err)
		}

		text := completion.Text()
		if text == "" {
			consultationsTotal.WithLabelValues(string(kind), "generation_failed").Inc()
			return nil, fmt.Errorf("generate %s question %d: empty answer: %w", kind, i+1, core.ErrGeneration)
		}
		responses = append(responses, text)
	}

	metadata := Object{}
	for k, v := range c.Metadata {
		metadata[k] = v
	}
	for k, v := range feature.Extract(responses) {
		metadata[k] = v
	}

	completed := StatusCompleted
	now := s.now().UTC()
	updated, err := s.repo.UpdateIfRevision(ctx, kind, id, c.Revision, Patch{
		Responses:   responses,
		Metadata:    metadata,
		Status:      &completed,
		CompletedAt: &now,
	})
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			consultationsTotal.WithLabelValues(string(kind), "generation_conflict").Inc()
		}
		return nil, err
	}

	consultationsTotal.WithLabelValues(string(kind), "completed").Inc()
	s.logger.InfoContext(ctx, "consultation completed",
		"kind", kind,
		"id", id,
		"responses", len(responses),
	)

	return updated, nil
}

func (s *Service) Get(
	ctx context.Context,
	requesterID string,
	kind Kind,
	id string,
) (*Consultation, error) {
	if _, err := s.Feature(kind); err != nil {
		return nil, err
	}
	return s.get(ctx, requesterID, kind, id)
}

func (s *Service) get(
	ctx context.Context,
	requesterID string,
	kind Kind,
	id string,
) (*Consultation, error) {
	owner, err := s.owner(kind, requesterID)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if !c.OwnedBy(owner) {
		return nil, fmt.Errorf("get %s %s: %w", kind, id, core.ErrNotFound)
	}

	return c, nil
}

func (s *Service) List(
	ctx context.Context,
	requesterID string,
	kind Kind,
) ([]Consultation, error) {
	if _, err := s.Feature(kind); err != nil {
		return nil, err
	}

	owner, err := s.owner(kind, requesterID)
	if err != nil {
		return nil, err
	}

	return s.repo.ListByUser(ctx, kind, owner)
}

// Archive moves a completed record to archived, uploading its transcript
// first when an archiver is configured.
func (s *Service) Archive(
	ctx context.Context,
	requesterID string,
	kind Kind,
	id string,
) (*Consultation, error) {
	if _, err := s.Feature(kind); err != nil {
		return nil, err
	}

	c, err := s.get(ctx, requesterID, kind, id)
	if err != nil {
		return nil, err
	}

	if c.Status != StatusCompleted {
		return nil, fmt.Errorf("archive %s %s: status %s: %w", kind, id, c.Status, core.ErrConflict)
	}

	archived := StatusArchived
	patch := Patch{Status: &archived}

	if s.archiver != nil {
		key := TranscriptKey(c)
		body, err := json.Marshal(NewTranscript(c))
		if err != nil {
			return nil, fmt.Errorf("encode transcript: %w", err)
		}

		if err := s.archiver.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
			return nil, fmt.Errorf("upload transcript: %w: %w", core.ErrStorageUnavailable, err)
		}
		patch.ArchiveKey = &key
	}

	updated, err := s.repo.UpdateIfRevision(ctx, kind, id, c.Revision, patch)
	if err != nil {
		return nil, err
	}

	consultationsTotal.WithLabelValues(string(kind), "archived").Inc()
	return updated, nil
}

// TranscriptURL returns a short-lived download link for an archived
// transcript.
func (s *Service) TranscriptURL(
	ctx context.Context,
	requesterID string,
	kind Kind,
	id string,
) (string, time.Time, error) {
	if _, err := s.Feature(kind); err != nil {
		return "", time.Time{}, err
	}

	c, err := s.get(ctx, requesterID, kind, id)
	if err != nil {
		return "", time.Time{}, err
	}

	if s.archiver == nil || c.ArchiveKey == nil {
		return "", time.Time{}, fmt.Errorf("transcript %s %s: %w", kind, id, core.ErrNotFound)
	}

	url, err := s.archiver.PresignGet(ctx, *c.ArchiveKey, transcriptLinkExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign transcript: %w: %w", core.ErrStorageUnavailable, err)
	}

	return url, s.now().Add(transcriptLinkExpiry).UTC(), nil
}

type KindStats struct {
	Kind   Kind           `json:"kind"`
	Title  string         `json:"title"`
	Counts map[Status]int `json:"counts"`
}

// Stats counts records per status for every kind, ordered by kind name.
func (s *Service) Stats(ctx context.Context) ([]KindStats, error) {
	kinds := make([]Kind, 0, len(s.features))
	for kind := range s.features {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)

	out := make([]KindStats, 0, len(kinds))
	for _, kind := range kinds {
		counts, err := s.repo.CountByStatus(ctx, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, KindStats{Kind: kind, Title: s.features[kind].Title, Counts: counts})
	}
	return out, nil
}

func toObject(v any) (Object, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	obj := Object{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return obj, nil
}
