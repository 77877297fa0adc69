package errors

import stdErrors "errors"

// User-visible messages are standardized so that low-level exception text
// never reaches an observer. These mirror the canonical strings called out
// in the error handling design.
const (
	MessageConnectionTimedOut = "Connection timed out. Please check the server IP and try again."
	MessageInvalidHost        = "Invalid server IP address. Please check the address and try again."
	MessageConnectionRefused  = "Connection refused. Please make sure the server is running."
	MessageAuthFailed         = "Authentication failed. Please check the password and try again."
	MessageGenericIOError     = "Connection lost. Attempting to reconnect..."
)

// UserMessage maps an error produced by this package to one of the
// standardized strings above. Errors outside this hierarchy fall back to the
// generic I/O message rather than leaking their Error() text.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return MessageConnectionTimedOut
	default:
	}

	var af *AuthFailedError
	if stdErrors.As(err, &af) {
		return MessageAuthFailed
	}
	return MessageGenericIOError
}
