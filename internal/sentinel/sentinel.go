package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an immutable sentinel error backed by a string constant.
//
// Because Error is a comparable type, the == comparison used by errors.Is
// matches it correctly through wrapped error chains without an Is method.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
