package service

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestNoopEmailService_LogCodes(t *testing.T) {
	msg := OneTimeCodeEmail{To: "alice@example.com", Code: "482913", Purpose: "registration", ExpiresIn: 5 * time.Minute}

	t.Run("development", func(t *testing.T) {
		buf := captureLog(t)
		svc := &NoopEmailService{LogCodes: true}
		require.NoError(t, svc.SendOneTimeCode(context.Background(), msg))
		assert.Contains(t, buf.String(), "code=482913")
		assert.Contains(t, buf.String(), "to=alice@example.com")
	})

	t.Run("release", func(t *testing.T) {
		buf := captureLog(t)
		svc := &NoopEmailService{}
		require.NoError(t, svc.SendOneTimeCode(context.Background(), msg))
		assert.NotContains(t, buf.String(), "482913")
		assert.Contains(t, buf.String(), "purpose=registration")
	})
}
