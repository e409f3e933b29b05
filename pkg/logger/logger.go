package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger writing to w at the given level
func NewWithWriter(w io.Writer, levelStr string) *Logger {
	level := getLogLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(w, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(contextHandler{handler}),
	}
}

// Discard returns a logger that drops everything; handy in tests
func Discard() *Logger {
	return NewWithWriter(io.Discard, "error")
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// ContextWithRequestID tags ctx so every *Context log call made with it carries request_id
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithUserID tags ctx with the authenticated caller
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID, or ""
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// contextHandler adds the request and user ids found in the record's context
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
		if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
			r.AddAttrs(slog.String("user_id", id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Business logic logging methods

// LogSeatsHeld logs a successful hold
func (l *Logger) LogSeatsHeld(ctx context.Context, presentationID, holder string, seats int, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Seats Held",
		slog.String("presentation_id", presentationID),
		slog.String("holder", holder),
		slog.Int("seats", seats),
		slog.Time("expires_at", expiresAt),
	)
}

// LogSeatsReleased logs seats returned to available
func (l *Logger) LogSeatsReleased(ctx context.Context, presentationID, holder string, seats int, reason string) {
	l.Logger.InfoContext(ctx,
		"Seats Released",
		slog.String("presentation_id", presentationID),
		slog.String("holder", holder),
		slog.Int("seats", seats),
		slog.String("reason", reason),
	)
}

// LogIntentCreated logs a new payment intent
func (l *Logger) LogIntentCreated(ctx context.Context, reference, userID string, total int64, currency string) {
	l.Logger.InfoContext(ctx,
		"Payment Intent Created",
		slog.String("reference", reference),
		slog.String("user_id", userID),
		slog.Int64("total", total),
		slog.String("currency", currency),
	)
}

// LogIntentTransition logs an applied state change of a payment intent
func (l *Logger) LogIntentTransition(ctx context.Context, reference, from, to string) {
	l.Logger.InfoContext(ctx,
		"Payment Intent Transition",
		slog.String("reference", reference),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogOrderFinalized logs a committed sale
func (l *Logger) LogOrderFinalized(ctx context.Context, orderID, presentationID, userID string, total int64, currency string) {
	l.Logger.InfoContext(ctx,
		"Order Finalized",
		slog.String("order_id", orderID),
		slog.String("presentation_id", presentationID),
		slog.String("user_id", userID),
		slog.Int64("total", total),
		slog.String("currency", currency),
	)
}

// LogOrderVoided logs a cancelled order whose inventory was restored
func (l *Logger) LogOrderVoided(ctx context.Context, orderID, presentationID string) {
	l.Logger.InfoContext(ctx,
		"Order Voided",
		slog.String("order_id", orderID),
		slog.String("presentation_id", presentationID),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogWebhookRejected logs a webhook delivery that failed verification or decoding
func (l *Logger) LogWebhookRejected(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Webhook Rejected",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
