package signing

import (
	"time"

	"github.com/roach88/recipesync/internal/ir"
)

// Finding codes reported by Audit.
const (
	FindingUnsigned    = "unsigned-eligible"
	FindingStale       = "stale-signature"
	FindingExpired     = "expired-signature"
	FindingBad         = "bad-signature"
	FindingIneligible  = "signed-ineligible"
	FindingUnencodable = "unencodable-content"
)

// Finding is one problem discovered by Audit.
type Finding struct {
	Kind    ir.Kind `json:"kind"`
	ID      string  `json:"id"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

// Audit inspects signatures without changing anything. It reports what
// the next Reconcile pass (without Force) would act on, plus
// cryptographically invalid signatures when verifier is non-nil.
func Audit(entities []ir.Signable, maxAge time.Duration, now time.Time, verifier Verifier) []Finding {
	var findings []Finding
	add := func(e ir.Signable, code, msg string) {
		findings = append(findings, Finding{Kind: e.EntityKind(), ID: e.EntityID(), Code: code, Message: msg})
	}

	for _, e := range entities {
		sig := e.CurrentSignature()
		if !e.Eligible() {
			if sig != nil {
				add(e, FindingIneligible, "signature present on an entity that should not be signed")
			}
			continue
		}
		if sig == nil {
			add(e, FindingUnsigned, "no signature")
			continue
		}

		payload, err := ir.CanonicalPayload(e)
		if err != nil {
			add(e, FindingUnencodable, err.Error())
			continue
		}
		if ir.IsStale(e.EntityKind(), sig, payload) {
			add(e, FindingStale, "content changed since signing")
			continue
		}
		if maxAge > 0 && sig.Age(now) >= maxAge {
			add(e, FindingExpired, "signed "+sig.Timestamp.Format(time.RFC3339)+", older than "+maxAge.String())
		}
		if verifier != nil {
			if err := verifier.Verify(payload, sig); err != nil {
				add(e, FindingBad, err.Error())
			}
		}
	}
	return findings
}
