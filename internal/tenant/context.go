package tenant

import "context"

// DefaultBranchID is the branch every request falls back to when the
// upstream resolver supplied nothing usable.
const DefaultBranchID int64 = 1

type contextKey struct{}

// WithBranch returns a context carrying the given branch as the active one.
// Non-positive ids are clamped back to the default branch so a bogus header
// can never zero out tenancy.
func WithBranch(ctx context.Context, branchID int64) context.Context {
	if branchID <= 0 {
		branchID = DefaultBranchID
	}
	return context.WithValue(ctx, contextKey{}, branchID)
}

// FromContext returns the active branch for the request. Contexts that never
// went through WithBranch resolve to the default branch.
func FromContext(ctx context.Context) int64 {
	if ctx == nil {
		return DefaultBranchID
	}
	if id, ok := ctx.Value(contextKey{}).(int64); ok && id > 0 {
		return id
	}
	return DefaultBranchID
}
