package fakturownia

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	httpClient "github.com/pablop76/hikashop-fakturownia/internal/client/http"
)

// ErrMissingID is returned when a successful response carries no resource id.
var ErrMissingID = errors.New("response carries no id")

// APIError is a non-success answer from the API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fakturownia %s (%d): %s", e.Op, e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a failed call. The remote "message" or
// "error" field is preferred over the raw body.
func newAPIError(op string, statusCode int, body string) *APIError {
	return &APIError{Op: op, StatusCode: statusCode, Message: remoteMessage(body)}
}

// asAPIError converts an *httpClient.HTTPError into an APIError. Other
// errors are returned unchanged.
func asAPIError(op string, err error) error {
	var httpErr *httpClient.HTTPError
	if errors.As(err, &httpErr) {
		return newAPIError(op, httpErr.StatusCode, httpErr.Body)
	}
	return errors.Wrapf(err, "fakturownia %s", op)
}

func remoteMessage(body string) string {
	var ae apiError
	if err := json.Unmarshal([]byte(body), &ae); err == nil {
		if s := stringify(ae.Message); s != "" {
			return s
		}
		if s := stringify(ae.Error); s != "" {
			return s
		}
	}
	return strings.TrimSpace(body)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
