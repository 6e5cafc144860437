package common

import (
	"context"
	"strings"
)

// UserContext holds per-request user configuration resolved from the
// Authorization header or X-Vista-* headers. When absent (nil), the server
// operates in single-tenant mode with the "default" user.
type UserContext struct {
	UserID    string
	Language  string // preferred response language override ("pt" or "en")
	UserLevel string // "beginner", "intermediate", "advanced"
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or "default" when no user
// context is present. Used by the conversation store for scoping.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return "default"
}

// ResolveLanguage returns the user-context language if present and valid.
// Validates pt/en only; empty string means "detect from the message".
func ResolveLanguage(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.Language != "" {
		lang := strings.ToLower(uc.Language)
		if lang == "pt" || lang == "en" {
			return lang
		}
	}
	return ""
}

// ResolveUserLevel returns the user-context experience level, defaulting to
// "beginner" — answers should assume the least context, not the most.
func ResolveUserLevel(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserLevel != "" {
		switch strings.ToLower(uc.UserLevel) {
		case "beginner", "intermediate", "advanced":
			return strings.ToLower(uc.UserLevel)
		}
	}
	return "beginner"
}
