package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) (stdout string, stderr string) {
	origOut, origErr := os.Stdout, os.Stderr
	defer func() { os.Stdout, os.Stderr = origOut, origErr }()

	rOut, wOut, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")
	rErr, wErr, err := os.Pipe()
	require.NoError(t, err, "failed to create stderr pipe")

	os.Stdout, os.Stderr = wOut, wErr

	fn()

	err = wOut.Close()
	require.NoError(t, err, "failed to close stdout pipe")
	err = wErr.Close()
	require.NoError(t, err, "failed to close stderr pipe")

	outBytes, err := io.ReadAll(rOut)
	require.NoError(t, err, "failed to read stdout pipe")
	errBytes, err := io.ReadAll(rErr)
	require.NoError(t, err, "failed to read stderr pipe")

	return string(outBytes), string(errBytes)
}

func TestLogger_parseLevel(t *testing.T) {
	levels := map[string]slog.Level{
		LevelDebug: slog.LevelDebug,
		LevelInfo:  slog.LevelInfo,
		LevelWarn:  slog.LevelWarn,
		LevelError: slog.LevelError,
	}

	for name, expected := range levels {
		for _, input := range []string{strings.ToLower(name), strings.ToUpper(name)} {
			got, err := parseLevel(input)

			require.NoError(t, err, "level %q", input)
			require.Equal(t, expected, got, "level %q", input)
		}
	}

	for _, input := range []string{"", "unknown", "trace"} {
		_, err := parseLevel(input)
		require.Error(t, err, "level %q should be rejected", input)
	}
}

func TestLogger_NewTextLogger(t *testing.T) {
	stdout, stderr := capture(t, func() {
		logger, err := NewTextLogger(LevelInfo)
		require.NoError(t, err)

		logger.Info("test message", "key", "value")
	})

	require.Empty(t, stdout, "Text logger should not write to stdout")
	require.NotEmpty(t, stderr, "Text logger should write to stderr")

	require.Contains(t, stderr, "test message")
	require.Contains(t, stderr, "key=value")
	require.Contains(t, stderr, "INFO")
	require.Contains(t, stderr, "source=logger_test.go:", "source should point to the caller without directories")
}

func TestLogger_New(t *testing.T) {
	t.Run("dev is text", func(t *testing.T) {
		_, stderr := capture(t, func() {
			logger, err := New(EnvDevelopment, LevelInfo)
			require.NoError(t, err)

			logger.Info("hello")
		})

		require.Contains(t, stderr, "msg=hello")
	})

	t.Run("prod is json", func(t *testing.T) {
		_, stderr := capture(t, func() {
			logger, err := New(EnvProduction, LevelInfo)
			require.NoError(t, err)

			logger.Info("hello")
		})

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(stderr), &entry))
		require.Equal(t, "hello", entry["msg"])
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := New("staging", LevelInfo)
		require.Error(t, err)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := New(EnvProduction, "verbose")
		require.Error(t, err)
	})
}

func TestLogger_NewJSONLogger(t *testing.T) {
	stdout, stderr := capture(t, func() {
		logger, err := NewJSONLogger(LevelInfo)
		require.NoError(t, err, "NewJSONLogger should not return an error")

		logger.Info("test message", "key", "value")
	})

	require.Empty(t, stdout, "JSON logger should not write to stdout by default")
	require.NotEmpty(t, stderr, "JSON logger should write to stderr")

	var entry map[string]any
	err := json.Unmarshal([]byte(stderr), &entry)
	require.NoError(t, err, "JSON log should be valid")
	require.Equal(t, "test message", entry["msg"], "JSON log should contain the message")
	require.Equal(t, "INFO", entry["level"], "JSON log should contain the level")
	require.Equal(t, "value", entry["key"], "JSON log should contain key-value pairs")
}

func TestLogger_NewNoOpLogger(t *testing.T) {
	stdout, stderr := capture(t, func() {
		logger := NewNoOpLogger()
		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")
	})

	require.Empty(t, stdout, "NoOp logger should not write to stdout")
	require.Empty(t, stderr, "NoOp logger should not write to stderr")
}

func TestLogger_Levels(t *testing.T) {
	logAll := func(l Logger) {
		l.Debug("debug")
		l.Info("info")
		l.Warn("warn")
		l.Error("error")
	}

	tests := []struct {
		level   string
		written []string
		skipped []string
	}{
		{LevelDebug, []string{"msg=debug", "msg=info", "msg=warn", "msg=error"}, nil},
		{LevelInfo, []string{"msg=info", "msg=warn", "msg=error"}, []string{"msg=debug"}},
		{LevelWarn, []string{"msg=warn", "msg=error"}, []string{"msg=debug", "msg=info"}},
		{LevelError, []string{"msg=error"}, []string{"msg=debug", "msg=info", "msg=warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			stdout, stderr := capture(t, func() {
				logger, err := NewTextLogger(tt.level)
				require.NoError(t, err)

				logAll(logger)
			})

			require.Empty(t, stdout)
			for _, line := range tt.written {
				require.Contains(t, stderr, line)
			}
			for _, line := range tt.skipped {
				require.NotContains(t, stderr, line)
			}
		})
	}
}

func TestLogger_Redaction(t *testing.T) {
	_, stderr := capture(t, func() {
		logger, err := NewJSONLogger(LevelInfo)
		require.NoError(t, err)

		logger.Info("login",
			"username", "alice",
			"password", "password123",
			"refresh_token", "eyJhbGciOi.refresh",
			"Authorization", "Bearer eyJhbGciOi.access",
		)
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(stderr), &entry))

	require.Equal(t, "alice", entry["username"], "regular attributes are kept")
	require.Equal(t, redacted, entry["password"])
	require.Equal(t, redacted, entry["refresh_token"])
	require.Equal(t, redacted, entry["Authorization"], "keys are matched case insensitive")
	require.NotContains(t, stderr, "password123")
	require.NotContains(t, stderr, "eyJhbGciOi")
}

func TestLogger_With(t *testing.T) {
	stdout, stderr := capture(t, func() {
		logger, err := NewTextLogger(LevelInfo)
		require.NoError(t, err, "NewTextLogger should not return an error")

		logger.With("component", "bridge").WithGroup("call").Info("reply matched", "topic", "auth_login")
	})

	require.Empty(t, stdout, "Logger.With() should not write to stdout")
	require.Contains(t, stderr, "component=bridge")
	require.Contains(t, stderr, "call.topic=auth_login")
	require.Contains(t, stderr, "reply matched")
}
