// Package graphql sends authenticated queries to the connectedcars.io GraphQL endpoint.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/internal/metrics"
	"github.com/jnxxx/connectedcars-go/pkg/connector/inet"
)

// DefaultGraphURL is the base URL of the GraphQL API.
const DefaultGraphURL = "https://api.connectedcars.io/"

// Response is a decoded GraphQL response envelope, e.g. {"data": {...}}.
type Response = map[string]any

// TokenSource supplies bearer tokens. *account.Account implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Executor runs a GraphQL query. *Client implements it.
type Executor interface {
	Execute(ctx context.Context, query string) (Response, error)
}

type invalidator interface {
	Invalidate()
}

// Client sends queries to the GraphQL endpoint.
type Client struct {
	GraphURL string

	conn   *inet.Connection
	tokens TokenSource
}

// NewClient returns a Client that authenticates with tokens and sends requests over conn.
func NewClient(conn *inet.Connection, tokens TokenSource) *Client {
	return &Client{
		GraphURL: DefaultGraphURL,
		conn:     conn,
		tokens:   tokens,
	}
}

type request struct {
	Query string `json:"query"`
}

func (c *Client) url() string {
	return strings.TrimRight(c.GraphURL, "/") + "/graphql"
}

// Execute sends query and returns the decoded response.
//
// When the server answers with a non-2xx status, the status is logged and Execute returns a nil
// Response and a nil error: the query produced no data. Errors are returned when no token could be
// obtained, when the server could not be reached (*inet.TransportError), and when a 2xx body is
// not valid JSON.
func (c *Client) Execute(ctx context.Context, query string) (Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.conn.PostJSON(ctx, c.url(), "Bearer "+token, &request{Query: query})
	if err != nil {
		var httpErr *inet.HttpError
		if errors.As(err, &httpErr) {
			metrics.GraphqlRequests.WithLabelValues(metrics.StatusClass(httpErr.Code)).Inc()
			log.Warning("GraphQL request failed with HTTP status %d", httpErr.Code)
			if httpErr.Code == http.StatusUnauthorized {
				if tokens, ok := c.tokens.(invalidator); ok {
					tokens.Invalidate()
				}
			}
			return nil, nil
		}
		metrics.GraphqlRequests.WithLabelValues("transport").Inc()
		return nil, err
	}
	metrics.GraphqlRequests.WithLabelValues("2xx").Inc()

	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unable to parse GraphQL response: %w", err)
	}
	logErrors(response)
	return response, nil
}

// logErrors reports entries of the GraphQL "errors" array. Fields that failed to resolve are
// simply missing from "data".
func logErrors(response Response) {
	entries, ok := response["errors"].([]any)
	if !ok {
		return
	}
	for _, entry := range entries {
		if e, ok := entry.(map[string]any); ok {
			log.Debug("GraphQL error: %v (path %v)", e["message"], e["path"])
		}
	}
}
