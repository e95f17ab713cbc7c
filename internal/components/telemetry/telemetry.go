package telemetry

import (
	"fmt"
)

// API is the reporting surface every component logs and counts through. Keeping it an
// interface lets tests assert on what a component reported.
//
// Report ids name the component and method that produced the report, lowercase with
// underscores for components and dashes for methods, e.g. `eclass_client.get-courses`.
// ScopedAPI prefixes the package namespace so ids stay short at the call site.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component failing in a way someone needs to fix.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that is tolerated, ex. a portal page whose
	// layout was not recognized.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is dropped in production.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a point-in-time count of some event.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id and message with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI wraps inner so that everything reported carries namespace.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
