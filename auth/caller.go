package auth

import "context"

type callerKey struct{}

func WithCaller(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, callerKey{}, username)
}

// CallerFrom returns the verified username stored on ctx, or "" for an
// anonymous request.
func CallerFrom(ctx context.Context) string {
	username, _ := ctx.Value(callerKey{}).(string)
	return username
}
