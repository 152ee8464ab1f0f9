package utils

// RiverError is the shared error type for the river packages. Packages
// declare their failure modes as package-level values via NewRiverError and
// attach context at the failure site with WithDetails. Matching is by the
// base message, so errors.Is works across detail-carrying copies.
type RiverError struct {
	msg     string
	details string
}

func NewRiverError(msg string) *RiverError {
	return &RiverError{msg: msg}
}

func (e *RiverError) Error() string {
	if e.details == "" {
		return e.msg
	}
	return e.msg + ": " + e.details
}

// WithDetails returns a copy of e carrying extra context. The copy still
// matches the original value under errors.Is.
func (e *RiverError) WithDetails(details string) *RiverError {
	return &RiverError{msg: e.msg, details: details}
}

func (e *RiverError) Is(target error) bool {
	t, ok := target.(*RiverError)
	return ok && t.msg == e.msg
}
