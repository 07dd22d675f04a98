package auth

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Authorize is the single ownership policy. The router calls it with the
// username named in the request path, the stores call it with the owner
// read from the locked row.
//
// An anonymous caller gets codes.Unauthenticated and a mismatch gets
// codes.PermissionDenied; both are reported to clients as 401.
func Authorize(caller, owner string) error {
	if caller == "" {
		return status.Error(codes.Unauthenticated, "Unauthorized")
	}
	if caller != owner {
		return status.Error(codes.PermissionDenied, "Unauthorized")
	}
	return nil
}

// RequireCaller rejects the anonymous caller.
func RequireCaller(caller string) error {
	if caller == "" {
		return status.Error(codes.Unauthenticated, "Unauthorized")
	}
	return nil
}
