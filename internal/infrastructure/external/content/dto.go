package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRAPHQL ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Request is the body POSTed to the GraphQL endpoint.
type Request struct {
	Query         string `json:"query"`
	Variables     any    `json:"variables,omitempty"`
	OperationName string `json:"operationName"`
}

// Response is the body returned by the GraphQL endpoint.
type Response struct {
	Data   json.RawMessage   `json:"data,omitempty"`
	Errors []GraphQLErrorDTO `json:"errors,omitempty"`
}

// GraphQLErrorDTO is one entry of the response errors array.
type GraphQLErrorDTO struct {
	Message    string           `json:"message"`
	Path       []any            `json:"path,omitempty"`
	Extensions *ErrorExtensions `json:"extensions,omitempty"`
}

// ErrorExtensions carries the machine-readable error code.
type ErrorExtensions struct {
	Code string `json:"code,omitempty"`
}

// Error codes set by the server in extensions.code.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeBadUserInput  = "BAD_USER_INPUT"
	CodeConflict      = "CONFLICT"
	CodeReferenced    = "STILL_REFERENCED"
	CodeUnauthorized  = "UNAUTHENTICATED"
	CodeUnknownOp     = "PERSISTED_QUERY_NOT_FOUND"
	CodeInternalError = "INTERNAL_SERVER_ERROR"
)

// GraphQLError is returned when the server answers with a non-empty errors
// array. It matches shared.ErrRemoteRejected, plus shared.ErrNotFound,
// shared.ErrValidation, shared.ErrAlreadyExists, shared.ErrInvalidEntity or
// shared.ErrUnauthorized depending on the first error code.
type GraphQLError struct {
	Operation string
	Errors    []GraphQLErrorDTO
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, strings.Join(msgs, "; "))
}

// Code returns the first error code, if any.
func (e *GraphQLError) Code() string {
	for _, ge := range e.Errors {
		if ge.Extensions != nil && ge.Extensions.Code != "" {
			return ge.Extensions.Code
		}
	}
	return ""
}

func (e *GraphQLError) Is(target error) bool {
	if target == shared.ErrRemoteRejected {
		return true
	}
	switch e.Code() {
	case CodeNotFound:
		return target == shared.ErrNotFound
	case CodeBadUserInput:
		return target == shared.ErrValidation
	case CodeConflict:
		return target == shared.ErrAlreadyExists
	case CodeReferenced:
		return target == shared.ErrInvalidEntity
	case CodeUnauthorized:
		return target == shared.ErrUnauthorized
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY DTOs
// ══════════════════════════════════════════════════════════════════════════════

// RefDTO is a related entity reduced to id and name.
type RefDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserDTO is a user as returned by the content server.
type UserDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	StudentID string     `json:"studentID"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ClassDTO is a class as returned by the content server.
type ClassDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Schedule    string  `json:"schedule"`
	Teacher     *RefDTO `json:"teacher"`
}

// AttendanceDTO is an attendance record. Recognized is the select value
// "1" or "0".
type AttendanceDTO struct {
	ID               string     `json:"id"`
	Date             *time.Time `json:"date,omitempty"`
	Recognized       string     `json:"recognized,omitempty"`
	ConfidenceScore  float64    `json:"confidenceScore,omitempty"`
	ImageCapturedURL string     `json:"imageCapturedURL,omitempty"`
	User             *RefDTO    `json:"user"`
	Class            *RefDTO    `json:"class"`
}

// DeletedDTO is the selection returned by delete mutations.
type DeletedDTO struct {
	ID string `json:"id"`
}

// ══════════════════════════════════════════════════════════════════════════════
// VARIABLES
// ══════════════════════════════════════════════════════════════════════════════

// StringFilter matches a field exactly.
type StringFilter struct {
	Equals string `json:"equals"`
}

// IDFilter matches a relation by id.
type IDFilter struct {
	ID StringFilter `json:"id"`
}

// WhereUnique selects a single entity.
type WhereUnique struct {
	ID string `json:"id"`
}

// UserWhere filters users.
type UserWhere struct {
	ID   *StringFilter `json:"id,omitempty"`
	Role *StringFilter `json:"role,omitempty"`
}

// ClassWhere filters classes.
type ClassWhere struct {
	ID      *StringFilter `json:"id,omitempty"`
	Teacher *IDFilter     `json:"teacher,omitempty"`
}

// AttendanceWhere filters attendance records.
type AttendanceWhere struct {
	User  *IDFilter `json:"user,omitempty"`
	Class *IDFilter `json:"class,omitempty"`
}

// Connect links a relation on create or update.
type Connect struct {
	Connect WhereUnique `json:"connect"`
}

// UserCreateInput is the data of createUser.
type UserCreateInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	StudentID string `json:"studentID,omitempty"`
	Role      string `json:"role"`
}

// UserUpdateInput is the data of updateUser. Nil fields are left unchanged.
type UserUpdateInput struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	StudentID *string `json:"studentID,omitempty"`
}

// ClassCreateInput is the data of createClass.
type ClassCreateInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	Teacher     *Connect `json:"teacher,omitempty"`
}

// ClassUpdateInput is the data of updateClass.
type ClassUpdateInput struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Schedule    *string  `json:"schedule,omitempty"`
	Teacher     *Connect `json:"teacher,omitempty"`
}

// AttendanceCreateInput is the data of createAttendance.
type AttendanceCreateInput struct {
	Date             *time.Time `json:"date,omitempty"`
	Recognized       string     `json:"recognized,omitempty"`
	ConfidenceScore  float64    `json:"confidenceScore,omitempty"`
	ImageCapturedURL string     `json:"imageCapturedURL,omitempty"`
	User             Connect    `json:"user"`
	Class            Connect    `json:"class"`
}

// AttendanceUpdateInput is the data of updateAttendance.
type AttendanceUpdateInput struct {
	Date             *time.Time `json:"date,omitempty"`
	Recognized       *string    `json:"recognized,omitempty"`
	ConfidenceScore  *float64   `json:"confidenceScore,omitempty"`
	ImageCapturedURL *string    `json:"imageCapturedURL,omitempty"`
}

// WhereVars is the variables shape of list queries and single deletes.
type WhereVars[W any] struct {
	Where W `json:"where"`
}

// DataVars is the variables shape of create mutations.
type DataVars[D any] struct {
	Data D `json:"data"`
}

// UpdateVars is the variables shape of update mutations.
type UpdateVars[D any] struct {
	Where WhereUnique `json:"where"`
	Data  D           `json:"data"`
}
