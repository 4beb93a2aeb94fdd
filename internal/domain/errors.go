package domain

import "errors"

// Error codes are short opaque strings; the API layer owns any
// user-friendly translation.
const (
	CodeMultiface      = "0x573bkd1" // more than one face where a single face is required
	CodeNoFace         = "0x64bb17c" // no face detected in the submitted image
	CodeQualityGate    = "0x81adf52" // sample quality below the enrollment threshold
	CodeTemplateSource = "0x3b2c1aa" // wrong cardinality of template source inputs
	CodeCandidates     = "0x92dd402" // candidate count out of range
	CodeThreshold      = "0xa11f003" // threshold out of range
	CodeNotFound       = "0x1f4d9c0" // referenced entity does not exist
	CodeBadDocument    = "0xcd5e014" // malformed metadata document or payload
)

// Error is a typed domain failure carrying an opaque code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code string) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
