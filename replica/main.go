// Command replica is a terminal render surface for the chat server: it opens
// a session, sends stdin lines as submissions and prints the thread.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	httpadapter "github.com/satriahrh/cocoa-chat/adapters/http"
	wsadapter "github.com/satriahrh/cocoa-chat/adapters/websocket"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "replica",
		Short: "Chat with the server from a terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.InOrStdin(), cmd.OutOrStdout(), serverURL)
		},
	}
	cmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "chat server base URL")
	return cmd
}

func run(in io.Reader, out io.Writer, serverURL string) error {
	opened, err := openSession(serverURL)
	if err != nil {
		return err
	}

	wsURL, err := websocketURL(serverURL, opened.Token)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", serverURL, err)
	}
	defer conn.Close()

	r := &renderer{out: out}
	go func() {
		for {
			var frame wsadapter.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				fmt.Fprintln(out, "connection closed:", err)
				return
			}
			r.render(frame)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		conn.Close()
		os.Exit(0)
	}()

	fmt.Fprintln(out, "Type a message and press enter (type 'exit' to quit):")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "exit" {
			break
		}
		frame := wsadapter.Frame{Type: wsadapter.FrameSubmit, Text: text, Timestamp: time.Now().UTC()}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("sending message: %w", err)
		}
	}
	return scanner.Err()
}

func openSession(serverURL string) (httpadapter.OpenSessionResponse, error) {
	var opened httpadapter.OpenSessionResponse

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(strings.TrimRight(serverURL, "/")+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		return opened, fmt.Errorf("opening session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return opened, fmt.Errorf("opening session: status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(&opened); err != nil {
		return opened, fmt.Errorf("decoding session: %w", err)
	}
	return opened, nil
}

func websocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// renderer prints only what changed since the previous snapshot.
type renderer struct {
	out       io.Writer
	version   int64
	shown     int
	lastError string
	pending   bool
}

func (r *renderer) render(frame wsadapter.Frame) {
	switch frame.Type {
	case wsadapter.FrameError:
		if frame.Error != nil {
			fmt.Fprintf(r.out, "! %s\n", frame.Error.Message)
		}
	case wsadapter.FrameShutdown:
		fmt.Fprintln(r.out, "! server is shutting down")
	case wsadapter.FrameState:
		if frame.State == nil || frame.State.Version <= r.version {
			return
		}
		r.version = frame.State.Version

		for _, msg := range frame.State.Messages[min(r.shown, len(frame.State.Messages)):] {
			fmt.Fprintf(r.out, "%-4s> %s\n", msg.Sender, msg.Text)
		}
		r.shown = len(frame.State.Messages)

		if frame.State.Pending && !r.pending {
			fmt.Fprintln(r.out, "... thinking")
		}
		r.pending = frame.State.Pending

		if frame.State.LastError != "" && frame.State.LastError != r.lastError {
			fmt.Fprintf(r.out, "! %s\n", frame.State.LastError)
		}
		r.lastError = frame.State.LastError
	}
}
