package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 64 << 10

// ErrNoToken is returned when an operation needs a token and none is held.
var ErrNoToken = errors.New("session: no token")

// APIError carries a non-2xx answer from the auth API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// User is the profile returned by GET /api/users/me.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber"`
	Birthdate   *time.Time `json:"birthdate,omitempty"`
	ProfileURL  string     `json:"profileUrl"`
	Address     string     `json:"address"`
	Roles       []string   `json:"roles"`
}

// SignUpRequest is the body of POST /api/auth/signUp.
type SignUpRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Name        string   `json:"name,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
	Birthdate   string   `json:"birthdate,omitempty"`
	ProfileURL  string   `json:"profileUrl,omitempty"`
	Address     string   `json:"address,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// UserSummary is the answer to a successful sign-up.
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string `json:"token"`
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

// call sends body as JSON and decodes a 2xx answer into out. Non-2xx answers
// become *APIError carrying the server message, or fallback when absent.
func (c *apiClient) call(ctx context.Context, method, path, token string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func apiError(resp *http.Response, fallback string) *APIError {
	e := &APIError{Status: resp.StatusCode, Message: fallback}

	var envelope struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
		e.Message = envelope.Message
	}
	return e
}
