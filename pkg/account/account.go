// Package account manages the bearer credential for a connectedcars.io account.
//
// An [Account] logs in with an email address and password, remembers the resulting token until
// shortly before it expires, and transparently logs in again when it's needed. Any number of
// goroutines may call [Account.Token] at once; while no valid token exists, exactly one login
// request is in flight and every caller receives its result.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/singleflight"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/internal/metrics"
	"github.com/jnxxx/connectedcars-go/pkg/connector/inet"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
)

const (
	// DefaultAuthURL is the base URL of the authentication API.
	DefaultAuthURL = "https://auth-api.connectedcars.io/"
	// DefaultHeadroom is subtracted from the server-declared lifetime of a token so that it's
	// replaced before the server starts rejecting it.
	DefaultHeadroom = 120 * time.Second

	loginEndpoint = "auth/login/email/password"
)

// Account allows authenticating against a connectedcars.io account.
type Account struct {
	Email     string
	Namespace string
	AuthURL   string
	Headroom  time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	password   string
	conn       *inet.Connection
	lock       sync.Mutex
	credential *Credential
	lifecycle  *fsm.FSM
	flight     singleflight.Group
}

// New returns an [Account] for the given credentials. The namespace selects the tenant (e.g.
// "minvolkswagen"). If httpClient is nil, a default client is used.
func New(email, password, namespace string, httpClient *http.Client) *Account {
	return &Account{
		Email:     email,
		Namespace: namespace,
		AuthURL:   DefaultAuthURL,
		Headroom:  DefaultHeadroom,
		Clock:     time.Now,
		password:  password,
		conn:      inet.NewConnection(namespace, httpClient),
		lifecycle: newLifecycle(),
	}
}

// Connection returns the HTTP connection used by the account. The GraphQL client shares it so
// that both endpoints send identical headers.
func (a *Account) Connection() *inet.Connection {
	return a.conn
}

func (a *Account) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

// State returns the current credential state: StateNoToken, StateValid, or StateExpired.
func (a *Account) State() string {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.credential != nil && !a.credential.Valid(a.now()) {
		transition(context.Background(), a.lifecycle, eventExpire)
	}
	return a.lifecycle.Current()
}

// Credential returns a copy of the current credential, or nil if there is none.
func (a *Account) Credential() *Credential {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.credential == nil {
		return nil
	}
	c := *a.credential
	return &c
}

// Invalidate discards the current credential. The next call to [Account.Token] logs in again.
func (a *Account) Invalidate() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.credential = nil
	transition(context.Background(), a.lifecycle, eventReset)
}

// cached returns the current token if it's still valid.
func (a *Account) cached(ctx context.Context) (string, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.credential.Valid(a.now()) {
		return a.credential.Token, true
	}
	if a.credential != nil {
		transition(ctx, a.lifecycle, eventExpire)
	}
	return "", false
}

func (a *Account) store(ctx context.Context, credential *Credential) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.credential = credential
	if credential == nil {
		transition(ctx, a.lifecycle, eventReset)
	} else {
		transition(ctx, a.lifecycle, eventAcquire)
	}
}

// Token returns a bearer token, logging in first if no valid token is cached.
//
// Errors are of type *AuthError. If ctx expires while another goroutine's login is in flight,
// Token returns ctx.Err() and the login continues in the background.
func (a *Account) Token(ctx context.Context) (string, error) {
	if token, ok := a.cached(ctx); ok {
		return token, nil
	}

	result := a.flight.DoChan("token", func() (interface{}, error) {
		// A login that finished after the check above already stored a fresh credential.
		if token, ok := a.cached(ctx); ok {
			return token, nil
		}
		credential, err := a.login(context.WithoutCancel(ctx))
		a.store(ctx, credential)
		if err != nil {
			return "", err
		}
		return credential.Token, nil
	})

	select {
	case r := <-result:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *Account) loginURL() string {
	return strings.TrimRight(a.AuthURL, "/") + "/" + loginEndpoint
}

func (a *Account) login(ctx context.Context) (*Credential, error) {
	log.Debug("Getting access token for %s...", a.Email)
	requestedAt := a.now()
	body, err := a.conn.PostJSON(ctx, a.loginURL(), "", &loginRequest{Email: a.Email, Password: a.password})
	if err != nil {
		var httpErr *inet.HttpError
		if errors.As(err, &httpErr) {
			// Rejections usually carry a structured payload despite the status code.
			if authErr := parseLoginError([]byte(httpErr.Message)); authErr != nil {
				metrics.LoginAttempts.WithLabelValues("rejected").Inc()
				return nil, authErr
			}
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			return nil, &AuthError{Kind: KindOther, Message: fmt.Sprintf("authentication failed: %s", httpErr), Err: err}
		}
		metrics.LoginAttempts.WithLabelValues("transport").Inc()
		log.Warning("Authentication failed: %s", err)
		return nil, &AuthError{Kind: KindTransport, Message: err.Error(), Err: err}
	}

	if authErr := parseLoginError(body); authErr != nil {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return nil, authErr
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, &AuthError{Kind: KindOther, Message: "authentication response is not valid JSON", Err: err}
	}
	token, okToken := lookup.GetString(payload, lookup.Path{"token"})
	expires, okExpires := lookup.GetFloat(payload, lookup.Path{"expires"})
	if !okToken || token == "" || !okExpires {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, &AuthError{Kind: KindOther, Message: "authentication response did not include a token"}
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	lifetime := time.Duration(expires)*time.Second - a.Headroom
	credential := &Credential{Token: token, ExpiresAt: requestedAt.Add(lifetime)}
	log.Debug("Got access token: %s... (valid until %s)", prefix(token, 20), credential.ExpiresAt.Format(time.RFC3339))
	return credential, nil
}

// parseLoginError returns an *AuthError if body contains an {"error": ..., "message": ...}
// payload.
func parseLoginError(body []byte) *AuthError {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if _, ok := payload["error"]; !ok {
		return nil
	}
	message, ok := lookup.GetString(payload, lookup.Path{"message"})
	if !ok {
		return nil
	}
	kind := kindFromMessage(message)
	log.Debug("Authentication rejected (%s): %s", kind, message)
	return &AuthError{Kind: kind, Message: message}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
