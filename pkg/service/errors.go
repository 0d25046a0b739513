package service

// ValidationError rejects a request whose inputs are malformed or fail a
// configured bound. The call mutates nothing.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// StateError rejects a request that is valid in form but not in the
// current lifecycle state, such as a duplicate registration.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

func IsState(err error) bool {
	_, ok := err.(*StateError)
	return ok
}

// AuthorizationError rejects a caller who is not allowed to perform the
// operation, such as a non-participant stopping a game.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

func IsAuthorization(err error) bool {
	_, ok := err.(*AuthorizationError)
	return ok
}

// ArithmeticError rejects a request whose amounts would overflow. It is
// never silently wrapped.
type ArithmeticError struct {
	Reason string
}

func (e *ArithmeticError) Error() string {
	return e.Reason
}

func IsArithmetic(err error) bool {
	_, ok := err.(*ArithmeticError)
	return ok
}
