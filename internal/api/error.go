package api

// HTTPError carries the status and public message for a failed request.
// ErrorLog holds the internal cause and only ever reaches the logs.
type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

type ApiError struct {
	Error string `json:"message"`
}