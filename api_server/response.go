package main

import (
	"encoding/json"
	"log"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// httpStatus maps the store and gate error codes to HTTP.
func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated, codes.PermissionDenied:
		return http.StatusUnauthorized
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("Error writing response: ", err.Error())
	}
}

// writeError reports err in the error envelope. Errors without a known
// code are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	st, ok := status.FromError(err)
	code := http.StatusInternalServerError
	if ok {
		code = httpStatus(st.Code())
	}
	message := http.StatusText(code)
	if code == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		message = st.Message()
	}
	writeJSON(w, code, errorResponse{Error: errorBody{Message: message, Status: code}})
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, status.Error(codes.InvalidArgument, err.Error()))
}
