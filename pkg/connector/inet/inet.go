package inet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/connector"
)

// DefaultTimeout bounds a single request, including reading the response body.
var DefaultTimeout = 30 * time.Second

// ErrResponseTooLarge indicates the server sent more than connector.MaxResponseLength bytes.
var ErrResponseTooLarge = errors.New("response exceeds maximum length")

// HttpError is returned when the server answers with a non-2xx status. Message holds the
// response body, which for the auth endpoint carries a structured error payload.
type HttpError struct {
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.Code), e.Message)
}

func (e *HttpError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests
}

// TransportError indicates the request never produced an HTTP response: DNS failures, refused or
// reset connections, and timeouts.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error reaching %s: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return true
}

// IsTransportError returns true if err, or an error it wraps, is a *TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// Connection POSTs JSON documents to the connectedcars.io endpoints with the headers the backend
// expects from the mobile app.
type Connection struct {
	UserAgent string
	namespace string
	client    *resty.Client
}

// NewConnection creates a Connection for the given account namespace. If httpClient is nil, a
// client with DefaultTimeout is used.
func NewConnection(namespace string, httpClient *http.Client) *Connection {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	client := resty.NewWithClient(httpClient)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	return &Connection{
		UserAgent: connector.DefaultUserAgent,
		namespace: namespace,
		client:    client,
	}
}

// Namespace returns the account namespace the connection was created for.
func (c *Connection) Namespace() string {
	return c.namespace
}

// PostJSON serializes body to JSON and sends it to url. If authHeader is not empty, it's sent as
// the Authorization header.
//
// The response body is returned for 2xx responses. Other statuses produce an *HttpError, and
// failures to reach the server produce a *TransportError.
func (c *Connection) PostJSON(ctx context.Context, url, authHeader string, body interface{}) ([]byte, error) {
	request := c.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.UserAgent).
		SetHeader(connector.NamespaceHeader, connector.OrganizationNamespace(c.namespace)).
		SetBody(body)
	if authHeader != "" {
		request.SetHeader("Authorization", authHeader)
	}

	log.Debug("Sending request to %s", url)
	result, err := request.Post(url)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	payload := result.Body()
	if len(payload) > connector.MaxResponseLength {
		return nil, ErrResponseTooLarge
	}
	log.Debug("Server returned %d: %s (%d bytes)", result.StatusCode(), http.StatusText(result.StatusCode()), len(payload))
	if result.StatusCode() < 200 || result.StatusCode() >= 300 {
		return nil, &HttpError{Code: result.StatusCode(), Message: string(payload)}
	}
	return payload, nil
}
