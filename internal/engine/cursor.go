package engine

import "github.com/org/bookforge/internal/provider"

// decision is what a failed attempt tells the cursor to do next.
type decision int

const (
	// decisionNextCredential retries the same model on the next
	// credential, falling through to the next model once the pool for
	// the current model is spent.
	decisionNextCredential decision = iota
	// decisionNextModel abandons the current model entirely and starts
	// the next one from the first credential.
	decisionNextModel
)

// decide maps an attempt failure to a cursor move. Quota, auth and
// overload failures are credential-scoped: another key may work.
// Content blocks and unknown failures are model-scoped: retrying the
// same model with a different key would reproduce them.
func decide(kind provider.ErrorKind) decision {
	switch kind {
	case provider.KindQuotaExceeded,
		provider.KindAuthInvalid,
		provider.KindOverloaded,
		provider.KindEmptyResponse:
		return decisionNextCredential
	default:
		return decisionNextModel
	}
}

// cursor is a position in the (model, credential) attempt grid.
type cursor struct {
	model      int
	credential int
}

// advance computes the next position. The second return is false when
// the grid is exhausted. Pure; no I/O and no state outside the value.
func (c cursor) advance(d decision, modelCount, credentialCount int) (cursor, bool) {
	switch d {
	case decisionNextCredential:
		if c.credential+1 < credentialCount {
			return cursor{model: c.model, credential: c.credential + 1}, true
		}
		fallthrough
	default:
		if c.model+1 < modelCount {
			return cursor{model: c.model + 1, credential: 0}, true
		}
		return cursor{}, false
	}
}
