package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"idsearch/internal/infra/persistence/memory"
	"idsearch/pkg/domain"
)

// Service exposes the registry operations over a persistent store.
type Service struct {
	store   PersistentStore
	schemes *SchemeRegistry
	logger  zerolog.Logger
	metrics MetricsRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger used for operation events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the recorder observing every service operation.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithSchemes replaces the default scheme registry.
func WithSchemes(registry *SchemeRegistry) Option {
	return func(s *Service) {
		if registry != nil {
			s.schemes = registry
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		schemes: NewSchemeRegistry(),
		logger:  zerolog.Nop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Schemes returns the scheme registry used for lookups.
func (s *Service) Schemes() *SchemeRegistry {
	return s.schemes
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn().Err(err).Str("operation", op).Msg("operation failed")
	}
}

// resolveCenter finds a center by name, falling back to its ID. An empty
// reference means no scope.
func resolveCenter(view TransactionView, ref string) (Center, error) {
	if ref == "" {
		return Center{}, nil
	}
	if c, ok := view.FindCenterByName(ref); ok {
		return c, nil
	}
	if c, ok := view.FindCenter(ref); ok {
		return c, nil
	}
	return Center{}, domain.NewNotFoundError(EntityCenter, ref)
}

// ListCenters returns every center ordered by name.
func (s *Service) ListCenters(ctx context.Context) (centers []Center, err error) {
	defer func(start time.Time) { s.observe(ctx, "list_centers", start, err) }(time.Now())
	err = s.store.View(ctx, func(view TransactionView) error {
		centers = view.ListCenters()
		return nil
	})
	return centers, err
}

// CreateCenter registers a center. Name and investigator together must be unique.
func (s *Service) CreateCenter(ctx context.Context, center Center) (created Center, res Result, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_center", start, err) }(time.Now())
	if center.Name == "" || center.Investigator == "" {
		return Center{}, Result{}, domain.NewValidationError("center", center.Name, "name and investigator are required")
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if centerExists(tx.Snapshot(), center) {
			return domain.NewConflictError(EntityCenter, center.Name, "center already registered for "+center.Investigator)
		}
		var err error
		created, err = tx.CreateCenter(center)
		return err
	})
	if err == nil {
		s.logger.Info().Str("center_id", created.ID).Str("center", created.Name).Msg("center created")
	}
	return created, res, err
}

// RegisterParticipant stores a new participant. The center may be given by
// name or ID, and the consortium ID must not already resolve to anyone.
func (s *Service) RegisterParticipant(ctx context.Context, p Participant) (created Participant, res Result, err error) {
	defer func(start time.Time) { s.observe(ctx, "register_participant", start, err) }(time.Now())
	canonical, err := s.schemes.Lookup(SchemeCanonical)
	if err != nil {
		return Participant{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = registerParticipant(tx, canonical, p)
		return err
	})
	if err == nil {
		s.logger.Info().Str("consortium_id", created.ConsortiumID).Msg("participant registered")
	}
	return created, res, err
}

// AttachSample links a sample or cell line record to an existing participant.
// sample must be a RutgersLCL, DNASample, SerumSample or LocalDNASample.
func (s *Service) AttachSample(ctx context.Context, consortiumID string, sample any) (res Result, err error) {
	defer func(start time.Time) { s.observe(ctx, "attach_sample", start, err) }(time.Now())
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		owner, ok := tx.FindParticipant(consortiumID)
		if !ok {
			return domain.NewNotFoundError(EntityParticipant, consortiumID)
		}
		return attachSample(tx, owner, sample)
	})
	return res, err
}

// Participant fetches a participant by canonical consortium ID.
func (s *Service) Participant(ctx context.Context, consortiumID string) (p Participant, err error) {
	defer func(start time.Time) { s.observe(ctx, "participant", start, err) }(time.Now())
	err = s.store.View(ctx, func(view TransactionView) error {
		found, ok := view.FindParticipant(consortiumID)
		if !ok {
			return domain.NewNotFoundError(EntityParticipant, consortiumID)
		}
		p = found
		return nil
	})
	return p, err
}

// Holdings returns the records owned by a participant.
func (s *Service) Holdings(ctx context.Context, consortiumID string) (h domain.Holdings, err error) {
	defer func(start time.Time) { s.observe(ctx, "holdings", start, err) }(time.Now())
	err = s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindParticipant(consortiumID); !ok {
			return domain.NewNotFoundError(EntityParticipant, consortiumID)
		}
		h = view.Holdings(consortiumID)
		return nil
	})
	return h, err
}

func registerParticipant(tx Transaction, canonical Scheme, p Participant) (Participant, error) {
	view := tx.Snapshot()
	center, err := resolveCenter(view, p.CenterID)
	if err != nil {
		return Participant{}, err
	}
	if center.ID == "" {
		return Participant{}, domain.NewValidationError("center", p.CenterID, "center is required")
	}
	if owners := canonical.match(view, p.ConsortiumID, ""); len(owners) > 0 {
		return Participant{}, domain.NewConflictError(EntityParticipant, p.ConsortiumID, "identifier already in use")
	}
	p.CenterID = center.ID
	return tx.CreateParticipant(p)
}

func attachSample(tx Transaction, owner Participant, sample any) error {
	switch v := sample.(type) {
	case RutgersLCL:
		v.ConsortiumID = owner.ConsortiumID
		_, err := tx.CreateLCL(v)
		return err
	case DNASample:
		v.ConsortiumID = owner.ConsortiumID
		_, err := tx.CreateDNASample(v)
		return err
	case SerumSample:
		v.ConsortiumID = owner.ConsortiumID
		_, err := tx.CreateSerumSample(v)
		return err
	case LocalDNASample:
		v.ConsortiumID = owner.ConsortiumID
		if v.CenterID == "" {
			v.CenterID = owner.CenterID
		} else {
			center, err := resolveCenter(tx.Snapshot(), v.CenterID)
			if err != nil {
				return err
			}
			v.CenterID = center.ID
		}
		_, err := tx.CreateLocalDNASample(v)
		return err
	default:
		return domain.NewValidationError("sample", fmt.Sprintf("%T", sample), "unsupported sample type")
	}
}
