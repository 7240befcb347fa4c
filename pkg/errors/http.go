package errors

type HTTPError struct {
	Code       string
	Message    string
	StatusCode int
}

func NewHTTPError(b *BusinessError, statusCode int) *HTTPError {
	return &HTTPError{
		Code:       b.Code,
		Message:    b.Message,
		StatusCode: statusCode,
	}
}

func (e HTTPError) Error() string {
	return e.Message
}
