// Package logger 提供结构化日志功能
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// ContextKey 日志上下文键
type ContextKey string

const (
	TraceIDKey    ContextKey = "trace_id"
	SpanIDKey     ContextKey = "span_id"
	RequestIDKey  ContextKey = "request_id"
	UserIDKey     ContextKey = "user_id"
	DocumentIDKey ContextKey = "document_id"
	JobIDKey      ContextKey = "job_id"
)

// businessKeys 按输出顺序排列；trace_id/span_id 单独处理
var businessKeys = []ContextKey{RequestIDKey, UserIDKey, DocumentIDKey, JobIDKey}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Init 初始化全局日志器，输出到 stdout
func Init(level string, format string) {
	l := New(os.Stdout, level, format)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// New 按级别与格式（json/text）创建日志器
func New(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetDefault 替换全局日志器，测试中用于捕获输出
func SetDefault(l *slog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default 返回全局日志器，未初始化时按 info/json 初始化
func Default() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Init("info", "json")
		return Default()
	}
	return l
}

// FromContext 附带追踪与业务标识的日志器
// 当前 span 有效时 trace_id/span_id 取自 span，否则取 context 中注入的值
func FromContext(ctx context.Context) *slog.Logger {
	l := Default()
	if ctx == nil {
		return l
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(string(TraceIDKey), sc.TraceID().String(), string(SpanIDKey), sc.SpanID().String())
	} else {
		for _, key := range []ContextKey{TraceIDKey, SpanIDKey} {
			if v := ctx.Value(key); v != nil {
				l = l.With(string(key), v)
			}
		}
	}

	for _, key := range businessKeys {
		if v := ctx.Value(key); v != nil {
			l = l.With(string(key), v)
		}
	}
	return l
}

// WithContext 将日志字段注入 context
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

func Info(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// Error err 非空时以 error 字段输出
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	FromContext(ctx).Error(msg, args...)
}

// Fatal 记录错误并退出进程
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	Error(ctx, msg, err, args...)
	os.Exit(1)
}
