// Package classification tags pipeline messages with an action and decides
// whether they are forwarded downstream.
package classification

import (
	"context"
	"fmt"
	"time"

	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/lastseen"
	"actiontag/internal/logger"
	"actiontag/pkg/cel"
	"actiontag/pkg/classifier"
	"actiontag/pkg/errors"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
	"actiontag/pkg/tracing"
)

// Origins label metrics by the entry point that produced the document.
const (
	OriginBroker = "broker"
	OriginHTTP   = "http"
	OriginCLI    = "cli"
)

type Service struct {
	classifier *classifier.Classifier
	filter     *cel.Filter
	cfg        config.ClassificationConfig
	lastSeen   lastseen.Repository
	logger     logger.Logger
}

// NewService compiles the configured filter up front so a bad expression
// fails at startup. lastSeen may be nil.
func NewService(c *classifier.Classifier, cfg config.ClassificationConfig, lastSeen lastseen.Repository, log logger.Logger) (*Service, error) {
	if c == nil {
		c = classifier.Default()
	}

	s := &Service{
		classifier: c,
		cfg:        cfg,
		lastSeen:   lastSeen,
		logger:     log,
	}

	if cfg.Filter != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
		}
		filter, err := evaluator.CompileFilter(cfg.Filter)
		if err != nil {
			return nil, errors.ErrValidation.WithCause(err).WithDetail("field", "classification.filter")
		}
		s.filter = filter
	}

	metrics.SetClassificationRules(len(c.Rules()))
	return s, nil
}

func (s *Service) Rules() classifier.Table {
	return s.classifier.Rules()
}

func (s *Service) LastSeen(ctx context.Context) (*lastseen.Entry, error) {
	if s.lastSeen == nil {
		return nil, errors.ErrNotFound.WithDetail("key", "last_seen")
	}
	return s.lastSeen.Get(ctx)
}

// ClassifyDocument annotates a single document outside of the pipeline.
func (s *Service) ClassifyDocument(ctx context.Context, input interface{}, origin string) (models.Document, error) {
	ctx, span := tracing.StartClassifySpan(ctx, "classification.classify_document", origin)
	defer span.End()

	start := time.Now()
	doc, err := s.classifier.Classify(input)
	if err != nil {
		span.RecordError(err)
		metrics.IncClassificationError(errors.Code(err), origin)
		return nil, err
	}

	action, _ := doc.Action()
	span.SetAttributes(tracing.ActionKey.String(string(action)))
	metrics.ObserveClassification(string(action), origin, time.Since(start))

	s.record(ctx, doc)
	return doc, nil
}

// Classify tags msg in place and reports whether it should be forwarded.
func (s *Service) Classify(ctx context.Context, msg *models.MessageEnvelope) (models.ActionTag, bool, error) {
	ctx, span := tracing.StartClassifySpan(ctx, "classification.classify", OriginBroker)
	defer span.End()

	if msg == nil {
		return "", false, errors.ErrValidation.WithDetail("field", "envelope")
	}

	start := time.Now()
	doc, err := s.classifier.Classify(msg.Body())
	if err != nil {
		span.RecordError(err)
		metrics.IncClassificationError(errors.Code(err), OriginBroker)
		return "", false, err
	}

	action, _ := doc.Action()
	msg.Payload = doc
	msg.Metadata.Classification = &models.ClassificationInfo{
		Action:       action,
		ClassifiedAt: time.Now().UTC(),
	}
	span.SetAttributes(tracing.ActionKey.String(string(action)))

	s.record(ctx, doc)

	forward, err := s.applyFilter(ctx, *msg, action)
	metrics.ObserveClassification(string(action), OriginBroker, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return action, false, err
	}

	if !forward {
		metrics.ClassificationFilteredTotal.WithLabelValues(string(action)).Inc()
		s.logger.DebugwCtx(ctx, "Filter dropped classified message",
			"message_id", msg.ID,
			"action", action,
		)
	}
	return action, forward, nil
}

func (s *Service) applyFilter(ctx context.Context, msg models.MessageEnvelope, action models.ActionTag) (bool, error) {
	if s.filter == nil {
		return true, nil
	}

	ok, err := s.filter.Evaluate(ctx, msg, action)
	if err != nil {
		return s.handleEvaluationError(ctx, msg, err)
	}
	return ok, nil
}

func (s *Service) handleEvaluationError(ctx context.Context, msg models.MessageEnvelope, err error) (bool, error) {
	s.logger.ErrorwCtx(ctx, "Filter evaluation error",
		"message_id", msg.ID,
		"filter", s.filter.Expression(),
		"error", err,
	)

	switch s.cfg.Fallback.OnError {
	case constants.FallbackAllow:
		metrics.FallbackUsageTotal.WithLabelValues("classification", "allow_on_error", "evaluation_error").Inc()
		s.logger.WarnwCtx(ctx, "Evaluation error, forwarding message (fallback: allow)",
			"message_id", msg.ID,
		)
		return true, nil
	case constants.FallbackDeny:
		metrics.FallbackUsageTotal.WithLabelValues("classification", "deny_on_error", "evaluation_error").Inc()
		s.logger.WarnwCtx(ctx, "Evaluation error, dropping message (fallback: deny)",
			"message_id", msg.ID,
		)
		return false, nil
	default:
		return false, errors.ErrValidation.WithCause(err).WithDetail("filter", s.filter.Expression())
	}
}

// record never fails classification; the last-seen document is best effort.
func (s *Service) record(ctx context.Context, doc models.Document) {
	if s.lastSeen == nil {
		return
	}
	if err := s.lastSeen.Record(ctx, doc); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to record last-seen document",
			"error", err,
		)
	}
}
