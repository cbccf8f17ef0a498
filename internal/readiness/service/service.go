package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	readinessmetrics "mirathi/internal/readiness/metrics"
	"mirathi/internal/readiness/models"
	"mirathi/internal/sentinel"
	id "mirathi/pkg/domain"
	"mirathi/pkg/platform/audit"
	"mirathi/pkg/requestcontext"
)

const defaultFactRetries = 3

// Service orchestrates readiness assessment lifecycle management. Every
// mutation runs inside the StoreTx boundary: load, mutate the aggregate,
// check invariants, save with the version guard, and append the raised
// domain events to the outbox, all committing as one unit.
type Service struct {
	store        AssessmentStore
	cache        SnapshotCache
	outbox       OutboxAppender
	auditEmitter *auditEmitter
	metrics      *readinessmetrics.Metrics
	logger       *slog.Logger
	tx           StoreTx
	factRetries  int
}

func New(store AssessmentStore, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	retries := cfg.factRetries
	if retries <= 0 {
		retries = defaultFactRetries
	}
	return &Service{
		store:        store,
		cache:        cfg.cache,
		outbox:       cfg.outbox,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
		logger:       cfg.logger,
		tx:           tx,
		factRetries:  retries,
	}
}

// CreateAssessment opens a readiness assessment for an estate. An estate
// holds at most one assessment; a second create surfaces CodeConflict.
func (s *Service) CreateAssessment(ctx context.Context, cmd CreateAssessmentCommand) (*models.ReadinessAssessment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	succession, err := models.NewSuccessionContext(cmd.Context)
	if err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		a, raised, err := models.NewReadinessAssessment(cmd.EstateID, cmd.FamilyID, succession, now)
		if err != nil {
			return err
		}
		if cmd.SeedBaseline {
			for _, params := range models.BaselineRisks(cmd.EstateID, succession, now) {
				_, detected, err := a.AddRiskFlag(params, now)
				if err != nil {
					return err
				}
				raised = append(raised, detected...)
			}
		}
		if err := a.CheckInvariants(); err != nil {
			return err
		}
		if err := s.store.Create(txCtx, a); err != nil {
			return wrapAssessmentErr(err)
		}
		if err := s.appendOutbox(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventAssessmentCreated, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Decision:     string(a.Score.Status),
		})
		assessment = a
		events = raised
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	return assessment, nil
}

// GetAssessment loads an assessment by ID, consulting the snapshot cache
// first when one is configured.
func (s *Service) GetAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	if cached := s.cacheFind(ctx, func(cacheCtx context.Context) (*models.ReadinessAssessment, error) {
		return s.cache.Find(cacheCtx, assessmentID)
	}); cached != nil {
		return cached, nil
	}
	assessment, err := s.store.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, wrapAssessmentErr(err)
	}
	s.cacheSave(ctx, assessment)
	return assessment, nil
}

// GetAssessmentByEstate loads the estate's assessment through the cache's
// estate pointer, falling back to the store.
func (s *Service) GetAssessmentByEstate(ctx context.Context, estateID id.EstateID) (*models.ReadinessAssessment, error) {
	if err := requireEstateID(estateID); err != nil {
		return nil, err
	}
	if cached := s.cacheFind(ctx, func(cacheCtx context.Context) (*models.ReadinessAssessment, error) {
		return s.cache.FindByEstate(cacheCtx, estateID)
	}); cached != nil {
		return cached, nil
	}
	assessment, err := s.store.FindByEstate(ctx, estateID)
	if err != nil {
		return nil, wrapAssessmentErr(err)
	}
	s.cacheSave(ctx, assessment)
	return assessment, nil
}

// ListRiskFlags returns the assessment's risk flags matching the filter,
// ordered by descending display priority.
func (s *Service) ListRiskFlags(ctx context.Context, assessmentID id.AssessmentID, filter RiskFlagFilter) ([]*models.RiskFlag, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	assessment, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	var flags []*models.RiskFlag
	for _, flag := range assessment.RiskFlags {
		if filter.matches(flag) {
			flags = append(flags, flag)
		}
	}
	now := requestcontext.Now(ctx)
	slices.SortStableFunc(flags, func(x, y *models.RiskFlag) int {
		return y.PriorityScore(now) - x.PriorityScore(now)
	})
	return flags, nil
}

// AddRiskFlag detects a new risk on an assessment. A duplicate of an
// unresolved flag with the same fingerprint surfaces CodeInvariantViolation.
func (s *Service) AddRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd AddRiskFlagCommand) (*models.RiskFlag, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		flag       *models.RiskFlag
		events     []models.DomainEvent
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)
		risk, raised, err := a.AddRiskFlag(cmd.params(), now)
		if err != nil {
			return err
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventRiskFlagAdded, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Subject:      risk.ID.String(),
			Decision:     string(risk.Severity),
			Reason:       risk.Description,
		})
		assessment, flag, events = a, risk, raised
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	s.invalidateCache(ctx, assessment)
	return flag, nil
}

// ResolveRiskFlag closes one risk flag by explicit decision.
func (s *Service) ResolveRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd ResolveRiskCommand) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)
		raised, err := a.ResolveRiskFlag(cmd.RiskFlagID, cmd.Method, cmd.ResolvedBy, cmd.Notes, now)
		if err != nil {
			return err
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventRiskFlagResolved, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Subject:      cmd.RiskFlagID.String(),
			Decision:     string(cmd.Method),
			Reason:       cmd.Notes,
			ActorID:      cmd.ResolvedBy,
		})
		assessment, events = a, raised
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	s.invalidateCache(ctx, assessment)
	return assessment, nil
}

// ReopenRiskFlag returns a resolved flag to active, putting its deduction
// back on the score.
func (s *Service) ReopenRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd ReopenRiskCommand) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)
		raised, err := a.ReopenRiskFlag(cmd.RiskFlagID, cmd.Reason, now)
		if err != nil {
			return err
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventRiskFlagReopened, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Subject:      cmd.RiskFlagID.String(),
			Reason:       cmd.Reason,
		})
		assessment, events = a, raised
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	s.invalidateCache(ctx, assessment)
	return assessment, nil
}

// DisputeRiskFlag marks a flag as contested. The flag keeps counting against
// the score until the dispute settles.
func (s *Service) DisputeRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd DisputeRiskCommand) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)
		raised, err := a.DisputeRiskFlag(cmd.RiskFlagID, cmd.Reason, cmd.DisputedBy, now)
		if err != nil {
			return err
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventRiskFlagDisputed, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Subject:      cmd.RiskFlagID.String(),
			Reason:       cmd.Reason,
			ActorID:      cmd.DisputedBy,
		})
		assessment, events = a, raised
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	s.invalidateCache(ctx, assessment)
	return assessment, nil
}

// UpdateRiskSeverity reclassifies one flag. An unchanged severity is a no-op:
// nothing is saved and no events are appended.
func (s *Service) UpdateRiskSeverity(ctx context.Context, assessmentID id.AssessmentID, cmd UpdateSeverityCommand) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
		changed    bool
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		// The aggregate treats an unchanged severity as a no-op with no
		// events, so the change has to be detected before mutating.
		willChange := false
		if flag, ok := a.RiskFlag(cmd.RiskFlagID); ok {
			willChange = flag.Severity != cmd.Severity
		}
		now := requestcontext.Now(txCtx)
		raised, err := a.UpdateRiskSeverity(cmd.RiskFlagID, cmd.Severity, cmd.Reason, now)
		if err != nil {
			return err
		}
		if !willChange {
			assessment = a
			return nil
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventRiskSeverityUpdated, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Subject:      cmd.RiskFlagID.String(),
			Decision:     string(cmd.Severity),
			Reason:       cmd.Reason,
		})
		assessment, events, changed = a, raised, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	if changed {
		s.invalidateCache(ctx, assessment)
	}
	return assessment, nil
}

// UpdateContext replaces the succession context and recomputes everything
// derived from it. A value-equal context is a no-op.
func (s *Service) UpdateContext(ctx context.Context, assessmentID id.AssessmentID, cmd UpdateContextCommand) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}
	succession, err := models.NewSuccessionContext(cmd.Context)
	if err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
		changed    bool
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)
		raised, didChange, err := a.UpdateContext(succession, now)
		if err != nil {
			return err
		}
		if !didChange {
			assessment = a
			return nil
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventContextUpdated, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Decision:     string(a.Score.Status),
			Reason:       "succession context updated",
		})
		assessment, events, changed = a, raised, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	if changed {
		s.invalidateCache(ctx, assessment)
	}
	return assessment, nil
}

// MarkComplete is the terminal transition, allowed only when the score gate
// permits filing. A completed assessment rejects all further mutations.
func (s *Service) MarkComplete(ctx context.Context, assessmentID id.AssessmentID) (*models.ReadinessAssessment, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return nil, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)
		raised, err := a.MarkComplete(now)
		if err != nil {
			return err
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventAssessmentCompleted, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Decision:     string(a.Score.Status),
			Reason:       fmt.Sprintf("final score %d", a.Score.Score),
		})
		assessment, events = a, raised
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEventMetrics(events)
	s.invalidateCache(ctx, assessment)
	return assessment, nil
}

// persist is the shared tail of every mutation: invariants, version-guarded
// save, and outbox append, all inside the caller's transaction.
func (s *Service) persist(ctx context.Context, a *models.ReadinessAssessment, events []models.DomainEvent, now time.Time) error {
	if err := a.CheckInvariants(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, a); err != nil {
		return wrapAssessmentErr(err)
	}
	return s.appendOutbox(ctx, a, events, now)
}

// cacheFind consults the snapshot cache, treating every failure as a miss.
func (s *Service) cacheFind(ctx context.Context, find func(ctx context.Context) (*models.ReadinessAssessment, error)) *models.ReadinessAssessment {
	if s.cache == nil {
		return nil
	}
	assessment, err := find(ctx)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.WarnContext(ctx, "assessment cache read failed", "error", err)
		}
		return nil
	}
	return assessment
}

func (s *Service) cacheSave(ctx context.Context, assessment *models.ReadinessAssessment) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, assessment); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "assessment cache save failed",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}
}

func (s *Service) invalidateCache(ctx context.Context, assessment *models.ReadinessAssessment) {
	if s.cache == nil || assessment == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, assessment.ID, assessment.EstateID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "assessment cache invalidation failed",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}
}

func (s *Service) incrementConcurrencyConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementConcurrencyConflicts()
	}
}

func (s *Service) incrementAutoResolutions(trigger string, count int) {
	if s.metrics != nil {
		s.metrics.IncrementAutoResolutions(trigger, count)
	}
}

func (s *Service) incrementFactEventsProcessed(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementFactEventsProcessed(eventType, outcome)
	}
}
