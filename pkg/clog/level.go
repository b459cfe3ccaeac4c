package clog

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
)

type Level int

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) Slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// HTTPStatusToLevel picks the log level of a finished request. Expired
// sessions (401), lookups of deleted tasks (404) and clients that hung up
// (499) are routine for the dashboard and CLI and stay at info.
func HTTPStatusToLevel(status int) Level {
	switch {
	case status >= 100 && status < 400:
		return LevelInfo
	case status == http.StatusUnauthorized, status == http.StatusNotFound, status == 499:
		return LevelInfo
	case status >= 400 && status < 500:
		return LevelWarn
	}
	return LevelError
}

// ConnectCodeToLevel reports caller mistakes at info and server-side faults
// at error.
func ConnectCodeToLevel(code connect.Code) Level {
	switch code {
	case connect.CodeUnknown,
		connect.CodeResourceExhausted,
		connect.CodeUnimplemented,
		connect.CodeInternal,
		connect.CodeUnavailable,
		connect.CodeDataLoss:
		return LevelError
	case connect.CodeCanceled,
		connect.CodeInvalidArgument,
		connect.CodeDeadlineExceeded,
		connect.CodeNotFound,
		connect.CodeAlreadyExists,
		connect.CodePermissionDenied,
		connect.CodeFailedPrecondition,
		connect.CodeAborted,
		connect.CodeOutOfRange,
		connect.CodeUnauthenticated:
		return LevelInfo
	}
	return LevelError
}
