package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// oauthError is the RFC 6749 section 5.2 error body. Microsoft adds the interval hint on slow_down.
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Interval         int    `json:"interval"`
}

// response is a fully read HTTP response.
type response struct {
	Status int
	Body   []byte
}

func (r response) ok() bool {
	return r.Status >= 200 && r.Status < 300
}

// postForm sends a form-encoded POST and reads the whole response.
func postForm(ctx context.Context, client HTTPDoer, op, endpoint string, data url.Values) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return response{}, &Error{Kind: KindConfiguration, Op: op, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return send(ctx, client, op, req)
}

// postJSON marshals body and sends it as a JSON POST.
func postJSON(ctx context.Context, client HTTPDoer, op, endpoint string, body any) (response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return response{}, &Error{Kind: KindConfiguration, Op: op, Message: "encoding request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return response{}, &Error{Kind: KindConfiguration, Op: op, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return send(ctx, client, op, req)
}

// getBearer sends a GET authorized with a bearer token.
func getBearer(ctx context.Context, client HTTPDoer, op, endpoint, token string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return response{}, &Error{Kind: KindConfiguration, Op: op, Message: "creating request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return send(ctx, client, op, req)
}

func send(ctx context.Context, client HTTPDoer, op string, req *http.Request) (response, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, cancelled(ctx, op)
		}
		return response{}, &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return response{}, cancelled(ctx, op)
		}
		return response{}, &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Message: "reading response", Err: err}
	}
	return response{Status: resp.StatusCode, Body: body}, nil
}

// decode unmarshals a response body, reporting a malformed response on failure.
func decode(op string, r response, target any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return &Error{Kind: KindMalformedResponse, Op: op, Status: r.Status, Message: "empty body"}
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return &Error{Kind: KindMalformedResponse, Op: op, Status: r.Status, Message: "decoding response", Err: err}
	}
	return nil
}

// unexpectedStatus classifies a non-2xx status that no hop-specific rule handled.
func unexpectedStatus(op string, r response) error {
	kind := KindNetwork
	if r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden {
		kind = KindAuthorization
	}
	return &Error{Kind: kind, Op: op, Status: r.Status, Message: fmt.Sprintf("unexpected status %s", http.StatusText(r.Status))}
}

// missingField reports a response that parsed but lacks a required field.
func missingField(op string, r response, field string) error {
	return &Error{Kind: KindMalformedResponse, Op: op, Status: r.Status, Message: "missing " + field}
}
