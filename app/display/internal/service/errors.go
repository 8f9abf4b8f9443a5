package service

import (
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/iWorld-y/watch_tower/app/display/internal/biz"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/storage"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/synth"
)

const (
	ReasonConfig           = "CONFIG_ERROR"
	ReasonQuotaExceeded    = "QUOTA_EXCEEDED"
	ReasonPermissionDenied = "PERMISSION_DENIED"
	ReasonNoResults        = "NO_RESULTS"
	ReasonAnalysisFailed   = "ANALYSIS_FAILED"
	ReasonBadRequest       = "BAD_REQUEST"
	ReasonWatchNotFound    = "WATCH_NOT_FOUND"
	ReasonDomainNotFound   = "DOMAIN_NOT_FOUND"
)

// toError 将流水线错误映射为带原因码的 kratos 错误
func toError(err error) error {
	if err == nil {
		return nil
	}
	if se := new(errors.Error); stderrors.As(err, &se) {
		return se
	}
	msg := err.Error()
	switch {
	case stderrors.Is(err, search.ErrQuotaExceeded):
		return errors.New(429, ReasonQuotaExceeded, msg)
	case stderrors.Is(err, search.ErrPermissionDenied):
		return errors.Forbidden(ReasonPermissionDenied, msg)
	case stderrors.Is(err, search.ErrMisconfigured), stderrors.Is(err, engine.ErrNoDomains):
		return errors.InternalServer(ReasonConfig, msg)
	case stderrors.Is(err, engine.ErrNoResults):
		return errors.NotFound(ReasonNoResults, msg)
	case stderrors.Is(err, synth.ErrAnalysisFailed):
		return errors.New(502, ReasonAnalysisFailed, msg)
	case stderrors.Is(err, engine.ErrEmptyTopic),
		stderrors.Is(err, engine.ErrInvalidTimeframe),
		stderrors.Is(err, engine.ErrInvalidBudget),
		stderrors.Is(err, storage.ErrInvalidDomain),
		stderrors.Is(err, storage.ErrInvalidWatch),
		stderrors.Is(err, biz.ErrInvalidFlags):
		return errors.BadRequest(ReasonBadRequest, msg)
	}
	return errors.InternalServer("INTERNAL", msg).WithCause(err)
}

// notFound 区分监控与域名两类缺失
func notFound(err error, reason string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound(reason, err.Error())
	}
	return toError(err)
}
