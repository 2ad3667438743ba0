package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satriahrh/cocoa-chat/config"
)

type countingCloser struct {
	closed int
	err    error
}

func (c *countingCloser) Close() error {
	c.closed++
	return c.err
}

func TestCloseAllClosesEveryClient(t *testing.T) {
	ok := &countingCloser{}
	failing := &countingCloser{err: errors.New("rpc: already closed")}
	last := &countingCloser{}

	err := closeAll(context.Background(), []io.Closer{ok, failing, last})

	assert.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, ok.closed)
	assert.Equal(t, 1, failing.closed)
	assert.Equal(t, 1, last.closed)
}

func TestCloseAllWithoutClients(t *testing.T) {
	assert.NoError(t, closeAll(context.Background(), nil))
}

func TestNewVoiceDisabled(t *testing.T) {
	synthesizer, transcriber, closers := newVoice(context.Background(), config.Config{VoiceEnabled: false})
	assert.Nil(t, synthesizer)
	assert.Nil(t, transcriber)
	assert.Empty(t, closers)
}
