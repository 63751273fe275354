package observability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop().Sugar()
	redact = true
	salt   string
)

// Options configures the global logger.
type Options struct {
	// Mode is "prod" for JSON output, anything else for console output.
	Mode  string
	Level string
	// Redact masks secrets and journal text and hashes user/session ids.
	Redact   bool
	HashSalt string
}

// Init builds the global logger. It is a no-op logger until Init is called.
func Init(opts Options) error {
	var cfg zap.Config
	switch strings.ToLower(opts.Mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		cfg.Level = lvl
	}

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	SetLogger(zl, opts)
	return nil
}

// SetLogger installs zl as the global logger. Every field passed through it,
// whether via With or the *w methods, is sanitized when opts.Redact is set.
func SetLogger(zl *zap.Logger, opts Options) {
	zl = zl.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return redactCore{Core: c}
	}))

	mu.Lock()
	logger = zl.Sugar()
	redact = opts.Redact
	salt = opts.HashSalt
	mu.Unlock()
}

// Sync flushes buffered entries.
func Sync() {
	_ = Logger().Sync()
}

func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *zap.SugaredLogger {
	return Logger().With(kv...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// LoggerFromContext adds request_id if present.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	reqID := RequestIDFromContext(ctx)
	if reqID == "" {
		return Logger()
	}
	return Logger().With("request_id", reqID)
}

// redactCore sanitizes fields before they reach the wrapped core.
type redactCore struct {
	zapcore.Core
}

func (c redactCore) With(fields []zapcore.Field) zapcore.Core {
	return redactCore{Core: c.Core.With(sanitizeFields(fields))}
}

func (c redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, sanitizeFields(fields))
}

func sanitizeFields(fields []zapcore.Field) []zapcore.Field {
	mu.RLock()
	on := redact
	mu.RUnlock()
	if !on || len(fields) == 0 {
		return fields
	}

	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		key := strings.ToLower(strings.TrimSpace(f.Key))
		switch {
		case isRedactKey(key):
			out[i] = zap.String(f.Key, "[REDACTED]")
		case isHashKey(key):
			out[i] = zap.String(f.Key, hashValue(fieldValue(f)))
		default:
			out[i] = f
		}
	}
	return out
}

// fieldValue recovers the raw value of a typed field.
func fieldValue(f zapcore.Field) any {
	enc := zapcore.NewMapObjectEncoder()
	f.AddTo(enc)
	return enc.Fields[f.Key]
}

func isRedactKey(key string) bool {
	for _, s := range []string{"token", "authorization", "password", "secret", "api_key", "apikey"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	// journal text, matched exactly so ids like entry_id stay readable
	switch key {
	case "entry", "text", "answers", "reflection", "user_content", "system_prompt":
		return true
	}
	return false
}

func isHashKey(key string) bool {
	return strings.Contains(key, "user_id") || strings.Contains(key, "session_id")
}

func hashValue(val any) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	mu.RLock()
	s := salt
	mu.RUnlock()

	h := sha256.New()
	if s != "" {
		_, _ = h.Write([]byte(s))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
