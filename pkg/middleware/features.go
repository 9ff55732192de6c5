package middleware

import (
	"net/http"

	"github.com/platinummonkey/backer/pkg/features"
	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/observability"
)

// FeatureDeniedMessage is returned when the gate rejects a request
const FeatureDeniedMessage = "You don't have access to this feature."

// FeatureGate evaluates flag once per request for the request subject. It
// must run after AuthMiddleware. A nil flags provider enables everything.
func FeatureGate(flags features.Flags, flag string, metrics *observability.Metrics) func(http.Handler) http.Handler {
	if flags == nil {
		flags = features.AllEnabled{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if !flags.Enabled(r.Context(), flag, subject.DistinctID()) {
				metrics.RecordFeatureGateDenial(flag)
				observability.FromContext(r.Context()).
					WithField("flag", flag).
					WithField("distinct_id", subject.DistinctID()).
					Debug("Feature gate denied request")
				httputil.WriteForbidden(w, FeatureDeniedMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
