// Command smoke exercises a running server over HTTP: it opens a session,
// submits one message and prints the resulting thread.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const baseURL = "http://localhost:8080"

type openSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type message struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type sessionState struct {
	Messages  []message `json:"messages"`
	Pending   bool      `json:"pending"`
	LastError string    `json:"last_error"`
}

func main() {
	text := "Hello"
	if len(os.Args) > 1 {
		text = os.Args[1]
	}

	fmt.Println("Opening session...")
	opened, err := openSession()
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	fmt.Printf("Session %s opened\n", opened.SessionID)

	if err := submit(opened.Token, text); err != nil {
		log.Fatalf("Failed to submit: %v", err)
	}

	startTime := time.Now()
	state, err := waitForState(opened.Token)
	if err != nil {
		log.Fatalf("Failed to read state: %v", err)
	}
	fmt.Printf("Reply after %v\n", time.Since(startTime))

	for _, m := range state.Messages {
		fmt.Printf("[%s] %s\n", m.Sender, m.Text)
	}
	if state.LastError != "" {
		log.Fatalf("Session reported an error: %s", state.LastError)
	}
}

func openSession() (openSessionResponse, error) {
	var opened openSessionResponse
	resp, err := do(http.MethodPost, "/api/v1/sessions", "", nil)
	if err != nil {
		return opened, err
	}
	return opened, decode(resp, http.StatusCreated, &opened)
}

func submit(token, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	resp, err := do(http.MethodPost, "/api/v1/session/messages", token, body)
	if err != nil {
		return err
	}

	var result struct {
		Accepted bool `json:"accepted"`
	}
	if err := decode(resp, http.StatusAccepted, &result); err != nil {
		return err
	}
	if !result.Accepted {
		return fmt.Errorf("submission was ignored")
	}
	return nil
}

func waitForState(token string) (sessionState, error) {
	var state sessionState
	resp, err := do(http.MethodGet, "/api/v1/session?wait=true", token, nil)
	if err != nil {
		return state, err
	}
	return state, decode(resp, http.StatusOK, &state)
}

func do(method, path, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func decode(resp *http.Response, wantStatus int, v any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, v)
}
