// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bindery-foundation/bindery/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// binder socket. Separate from the server's read/write timeouts — it
// covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the server to
// send a response after writing the request. Matched to the server's
// readTimeout + writeTimeout to leave room for handler execution.
const responseReadTimeout = 45 * time.Second

// maxResponseSize matches the server's maxRequestSize for symmetry.
const maxResponseSize = 1024 * 1024

// RemoteError is returned by client calls when the daemon responds
// with ok=false: the request reached the daemon and was rejected
// there. Connection and encoding failures are plain errors.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("binder error on %q: %s", e.Action, e.Message)
}

// Client talks to a binder daemon over its Unix socket. Each method
// opens a new connection (matching the server's one-request-per-
// connection model), performs one exchange, and closes it.
//
// A client carries at most one session token, injected into call
// requests as the "session" field. UseSession installs the token,
// typically obtained from NewSession.
type Client struct {
	socketPath string
	session    string
}

// NewClient creates a client for the binder socket at socketPath.
// The client starts without a session: calls run anonymously at
// assurance level 0 until UseSession installs a token.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// UseSession installs the session token sent with subsequent calls.
// An empty token reverts the client to anonymous calls.
func (c *Client) UseSession(token string) {
	c.session = token
}

// Session returns the installed session token, or empty.
func (c *Client) Session() string { return c.session }

// CallVerb invokes a verb and returns its Outcome. The error covers
// requests the daemon refused at the transport level (unknown API,
// verb, or session); verb-level failure lives in the Outcome.
func (c *Client) CallVerb(ctx context.Context, api, verb string, payload map[string]any) (*Outcome, error) {
	fields := map[string]any{
		"api":  api,
		"verb": verb,
	}
	if payload != nil {
		fields["payload"] = payload
	}
	if c.session != "" {
		fields["session"] = c.session
	}

	var outcome Outcome
	if err := c.call(ctx, ActionCall, fields, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Describe lists one API's surface, or every API when api is empty.
func (c *Client) Describe(ctx context.Context, api string) (*DescribeResponse, error) {
	fields := map[string]any{}
	if api != "" {
		fields["api"] = api
	}
	var response DescribeResponse
	if err := c.call(ctx, ActionDescribe, fields, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// EmitEvent broadcasts an event through the daemon to every hosted
// API.
func (c *Client) EmitEvent(ctx context.Context, event string, payload map[string]any) (*EmitResponse, error) {
	fields := map[string]any{"event": event}
	if payload != nil {
		fields["payload"] = payload
	}
	var response EmitResponse
	if err := c.call(ctx, ActionEmit, fields, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// NewSession mints a session on the daemon and installs its token on
// the client.
func (c *Client) NewSession(ctx context.Context) (*SessionNewResponse, error) {
	var response SessionNewResponse
	if err := c.call(ctx, ActionSessionNew, nil, &response); err != nil {
		return nil, err
	}
	c.session = response.Session
	return &response, nil
}

// Status returns daemon liveness information.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var response StatusResponse
	if err := c.call(ctx, ActionStatus, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// call sends one request and decodes the success payload into result
// (when result is non-nil and the response carries data).
func (c *Client) call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &RemoteError{Action: action, Message: response.Error}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

// send connects, writes the request, and reads the response. Each
// call creates a new connection.
func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side. CBOR is self-delimiting so this
	// isn't strictly necessary, but it lets the server's read side
	// see EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response, nil
}
