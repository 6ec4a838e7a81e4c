// Package authz adapts the external authorization oracle. The oracle is
// ground truth: it is re-queried on every disclosure decision and every
// full-answer retrieval, and its verdict is never cached, so a revocation
// takes effect on the very next access.
package authz

import "context"

// Authorizer reports whether a user may currently see full answers.
type Authorizer interface {
	Check(ctx context.Context, userID int64) (bool, error)
}
