package domain

// Transport-level error codes surfaced to API clients.
const (
	CodeFileMissing            = "FILE_MISSING"
	CodeURLMissing             = "URL_MISSING"
	CodeURLForbidden           = "URL_FORBIDDEN"
	CodeFetchFailed            = "FETCH_FAILED"
	CodeUnsupportedContentType = "UNSUPPORTED_CONTENT_TYPE"
	CodePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeCSVEmpty               = "CSV_EMPTY"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeNotFound               = "NOT_FOUND"
	CodeMethodNotAllowed       = "METHOD_NOT_ALLOWED"
	CodeDBError                = "DB_ERROR"
)

// ImportError is a pipeline failure with a stable code and an HTTP status
// for the API layer. Row-level problems become ImportIssues instead;
// ImportError is reserved for failures that stop the whole invocation.
type ImportError struct {
	Code    string
	Status  int
	Message string
}

func (e *ImportError) Error() string {
	return e.Message
}

// NewImportError builds an ImportError. Status defaults to 400 when zero.
func NewImportError(code, message string, status int) *ImportError {
	if status == 0 {
		status = 400
	}
	return &ImportError{Code: code, Status: status, Message: message}
}
