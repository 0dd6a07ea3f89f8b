package telemetry

import (
	"context"
	"fmt"
	"log/slog"
)

// API is how components report what happens to them. Ids are short dotted
// names ("session.stale"), namespaced with ScopedAPI.
//
// note: fault injection point
type API interface {
	// ReportBroken is for failures someone should look at.
	ReportBroken(id string, params ...any)
	// ReportWarning is for failures that are expected to happen now and then,
	// like a rejected login or an unreachable portal.
	ReportWarning(id string, params ...any)
	ReportDebug(id string, params ...any)
	// ReportCount records a gauge-like sample, samples are not summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>:".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return s.namespace + ":" + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(id string, params ...any) {
	s.inner.ReportDebug(s.scoped(id), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}

// SlogAPI writes reports to Logger, slog.Default() when nil.
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// attrs puts errors under "err" and other params under "params.<i>". nil
// params are dropped, callers pass optional errors as is.
func (SlogAPI) attrs(id string, params []any) []any {
	out := []any{"id", id}
	for i, p := range params {
		switch v := p.(type) {
		case nil:
		case error:
			out = append(out, "err", v.Error())
		default:
			out = append(out, fmt.Sprintf("params.%d", i), v)
		}
	}
	return out
}

func (s SlogAPI) report(level slog.Level, msg, id string, params []any) {
	s.logger().Log(context.Background(), level, msg, s.attrs(id, params)...)
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.report(slog.LevelError, "broken component", id, params)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.report(slog.LevelWarn, "warning", id, params)
}

func (s SlogAPI) ReportDebug(id string, params ...any) {
	s.report(slog.LevelDebug, "debug", id, params)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger().Info("count", "id", id, "n", count)
}
