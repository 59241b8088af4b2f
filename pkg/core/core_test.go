package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"not found", NotFound("ToDo with id=%d not found", 7), KindNotFound, "ToDo with id=7 not found"},
		{"conflict", Conflict("Email already registered"), KindConflict, "Email already registered"},
		{"unauthorized", Unauthorized("Not authenticated"), KindUnauthorized, "Not authenticated"},
		{"validation", Validation("title: too short"), KindValidation, "title: too short"},
		{"bad request", BadRequest("ToDo is not deleted"), KindBadRequest, "ToDo is not deleted"},
		{"internal", Internal(errors.New("disk full"), "insert todo"), KindInternal, "Internal Server Error"},
		{"plain error", errors.New("boom"), KindInternal, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.True(t, IsKind(tt.err, tt.kind))
			assert.Equal(t, tt.msg, PublicMessage(tt.err))
		})
	}

	assert.False(t, IsKind(nil, KindInternal))
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("list todos: %w", Internal(cause, "query failed"))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "list todos: query failed: connection reset", err.Error())

	wrapped := fmt.Errorf("patch: %w", NotFound("gone"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "gone", PublicMessage(wrapped))
	assert.Equal(t, "not_found", KindOf(wrapped).String())
}

func TestJSONEncode(t *testing.T) {
	data, err := JSONEncode(map[string]string{"detail": "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"ok"}`, string(data))

	_, err = JSONEncode(nil)
	assert.True(t, IsKind(err, KindInternal))

	_, err = JSONEncode(make(chan int))
	assert.Error(t, err)
}

func TestJSONDecode(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}

	require.NoError(t, JSONDecode([]byte(`{"title":"buy milk"}`), &v))
	assert.Equal(t, "buy milk", v.Title)

	for name, body := range map[string]string{
		"empty":     ``,
		"malformed": `{"title":`,
		"trailing":  `{"title":"a"} {"title":"b"}`,
		"type":      `{"title":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := JSONDecode([]byte(body), &v)
			assert.True(t, IsKind(err, KindValidation), "got %v", err)
		})
	}

	assert.True(t, IsKind(JSONDecode([]byte(`{}`), nil), KindInternal))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-1")
	logger.WithContext(ctx).WithFields(map[string]interface{}{"todo_id": 3}).Infof("created %s", "todo")

	out := buf.String()
	assert.Contains(t, out, `"msg":"created todo"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"todo_id":3`)

	buf.Reset()
	logger.Debug("visible at debug")
	assert.Contains(t, buf.String(), "visible at debug")

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LoggerConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "warn", Format: "logfmt", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))

	// no request id in context leaves the logger unchanged
	assert.Equal(t, logger, logger.WithContext(context.Background()))
	assert.Equal(t, logger, logger.WithFields(nil))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-request-id")
	assert.Equal(t, "test-request-id", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	id1, id2 := GenerateRequestID(), GenerateRequestID()
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}
