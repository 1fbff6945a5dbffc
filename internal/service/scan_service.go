package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/medscan/internal/service")

type ScanService struct {
	repo     scan.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewScanService(repo scan.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger, timeout time.Duration) *ScanService {
	return &ScanService{
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
		timeout:  timeout,
		now:      time.Now,
	}
}

// ApplyScan records one transition for the package identified by cmd.Code.
//
// The lookup, the rule check and the write run as one locked unit of work, so
// for a given code at most one validation and at most one dispensing ever
// succeed. Domain rejections come back as the scan.Err* sentinels; everything
// else is a *scan.StorageError and leaves the record unchanged.
func (s *ScanService) ApplyScan(ctx context.Context, cmd scan.Command, meta RequestMeta) (*scan.Result, error) {
	code, ok := scan.NormalizeCode(cmd.Code)
	actor := strings.TrimSpace(cmd.Actor)

	var errs []string
	if !ok {
		errs = append(errs, "code must be between 1 and 64 characters")
	}
	if actor == "" {
		errs = append(errs, "user is required")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if !cmd.Mode.IsValid() {
		s.metrics.ScanTransitionsTotal.WithLabelValues("invalid", string(scan.KindInvalidMode)).Inc()
		return nil, scan.ErrInvalidMode
	}

	ctx, span := tracer.Start(ctx, "ScanService.ApplyScan", trace.WithAttributes(
		attribute.String("scan.code", code),
		attribute.String("scan.mode", string(cmd.Mode)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		status scan.Status
		at     time.Time
	)
	start := time.Now()
	_, err := s.repo.Transition(ctx, code, func(rec *scan.Record) error {
		at = s.now().UTC()
		st, err := rec.Apply(cmd.Mode, actor, at)
		if err != nil {
			return err
		}
		status = st
		return nil
	})
	s.metrics.ScanDuration.WithLabelValues(string(cmd.Mode)).Observe(time.Since(start).Seconds())

	if err != nil {
		err = asScanError(err)
		kind := scan.KindOf(err)
		s.metrics.ScanTransitionsTotal.WithLabelValues(string(cmd.Mode), string(kind)).Inc()
		span.SetAttributes(attribute.String("scan.outcome", string(kind)))

		if scan.IsRejection(err) {
			s.log.Info("scan rejected",
				zap.String("code", code),
				zap.String("mode", string(cmd.Mode)),
				zap.String("actor", actor),
				zap.String("kind", string(kind)),
			)
			return nil, err
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failure")
		s.log.Error("scan failed",
			zap.String("code", code),
			zap.String("mode", string(cmd.Mode)),
			zap.String("storage_kind", string(scan.StorageKindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.ScanTransitionsTotal.WithLabelValues(string(cmd.Mode), "success").Inc()
	span.SetAttributes(attribute.String("scan.outcome", string(status)))

	action := domain.ActionValidate
	if cmd.Mode == scan.ModeDispensing {
		action = domain.ActionDispense
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       action,
		ResourceType: "scan_record",
		ResourceID:   code,
		IPAddress:    meta.IP,
		RequestID:    meta.RequestID,
		Outcome:      string(status),
	})

	s.log.Info("scan applied",
		zap.String("code", code),
		zap.String("mode", string(cmd.Mode)),
		zap.String("actor", actor),
		zap.String("status", string(status)),
	)

	return &scan.Result{
		Code:   code,
		Mode:   cmd.Mode,
		Status: status,
		Actor:  actor,
		At:     at,
	}, nil
}

// asScanError guarantees callers only ever see a domain sentinel or a
// *scan.StorageError.
func asScanError(err error) error {
	if scan.KindOf(err) != scan.KindUnknown {
		return err
	}

	kind := scan.StorageUnknown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = scan.StorageTimeout
	}
	return &scan.StorageError{Kind: kind, Op: "transition", Err: err}
}
