package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsadapter "github.com/satriahrh/cocoa-chat/adapters/websocket"
	"github.com/satriahrh/cocoa-chat/domain"
)

func TestWebsocketURL(t *testing.T) {
	got, err := websocketURL("http://localhost:8080", "abc")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws?token=abc", got)

	got, err = websocketURL("https://chat.example.com/base/", "a b")
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/base/ws?token=a+b", got)
}

func TestRendererPrintsOnlyNewMessages(t *testing.T) {
	var out bytes.Buffer
	r := &renderer{out: &out}

	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: &domain.SessionState{
		Version:  2,
		Messages: []domain.Message{{Text: "Hello", Sender: domain.SenderUser}},
		Pending:  true,
	}})
	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: &domain.SessionState{
		Version: 3,
		Messages: []domain.Message{
			{Text: "Hello", Sender: domain.SenderUser},
			{Text: "Hi there", Sender: domain.SenderBot},
		},
	}})

	assert.Equal(t, "user> Hello\n... thinking\nbot > Hi there\n", out.String())
}

func TestRendererPrintsErrorsOnce(t *testing.T) {
	var out bytes.Buffer
	r := &renderer{out: &out}

	state := &domain.SessionState{Version: 1, LastError: "MissingCredential"}
	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: state})
	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: state})

	assert.Equal(t, "! MissingCredential\n", out.String())
}

func TestRendererIgnoresStaleSnapshots(t *testing.T) {
	var out bytes.Buffer
	r := &renderer{out: &out}

	three := []domain.Message{
		{Text: "one", Sender: domain.SenderUser},
		{Text: "first", Sender: domain.SenderBot},
		{Text: "two", Sender: domain.SenderUser},
	}
	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: &domain.SessionState{Version: 4, Messages: three, Pending: true}})
	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: &domain.SessionState{Version: 3, Messages: three[:2]}})
	r.render(wsadapter.Frame{Type: wsadapter.FrameState, State: &domain.SessionState{
		Version:  5,
		Messages: append(append([]domain.Message(nil), three...), domain.Message{Text: "second", Sender: domain.SenderBot}),
	}})

	assert.Equal(t, "user> one\nbot > first\nuser> two\n... thinking\nbot > second\n", out.String())
}

func TestRendererShutdown(t *testing.T) {
	var out bytes.Buffer
	r := &renderer{out: &out}
	r.render(wsadapter.Frame{Type: wsadapter.FrameShutdown})
	assert.Equal(t, "! server is shutting down\n", out.String())
}
