package api

// ValidateCall checks an inbound envelope before dispatch. A malformed
// envelope is a protocol violation and the call is rejected before
// execution.
func ValidateCall(c *Call) *APIError {
	if c == nil {
		return NewProtocolViolationError("missing call envelope")
	}
	if !ValidateCallID(c.ID) {
		return &APIError{
			Type:    ErrorTypeProtocolViolation,
			Param:   "id",
			Message: "call id must be a non-empty printable token of at most 128 characters",
		}
	}
	if c.Method == "" {
		return &APIError{
			Type:    ErrorTypeProtocolViolation,
			Param:   "method",
			Message: "method is required",
		}
	}
	return nil
}
