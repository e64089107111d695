package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aimd54/reward-economy/pkg/logger"
)

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestCloseLog_ReportsFailure(t *testing.T) {
	var stderr bytes.Buffer
	closeLog(failingCloser{}, &stderr)
	assert.Equal(t, "failed to close log output: disk full\n", stderr.String())
}

func TestCloseLog_Quiet(t *testing.T) {
	var stderr bytes.Buffer
	closeLog(logger.Nop(), &stderr)
	assert.Empty(t, stderr.String())
}
