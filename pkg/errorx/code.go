package errorx

import "net/http"

type Code int

var Unknown = Error{Code: Internal, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010
	Validation       Code = 100011

	// State machine codes
	Conflict         Code = 200001
	AlreadyClaimed   Code = 200002
	CapacityExceeded Code = 200003
	LotteryClosed    Code = 200004

	// External collaborator codes
	Ledger   Code = 300001
	External Code = 300002
)

var httpStatuses = map[Code]int{
	BadRequest:       http.StatusBadRequest,
	BadResponse:      http.StatusInternalServerError,
	PermissionDenied: http.StatusForbidden,
	NotFound:         http.StatusNotFound,
	Unauthenticated:  http.StatusUnauthorized,
	AlreadyExists:    http.StatusConflict,
	Internal:         http.StatusInternalServerError,
	Unavailable:      http.StatusServiceUnavailable,
	NotImplemented:   http.StatusNotImplemented,
	TooManyRequests:  http.StatusTooManyRequests,
	Validation:       http.StatusUnprocessableEntity,
	Conflict:         http.StatusConflict,
	AlreadyClaimed:   http.StatusConflict,
	CapacityExceeded: http.StatusConflict,
	LotteryClosed:    http.StatusConflict,
	Ledger:           http.StatusServiceUnavailable,
	External:         http.StatusBadGateway,
}
