package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/logging"
)

// maxLoggedArgLen caps string argument values in logs. Tool calls carry whole
// article bodies; logging them in full drowns everything else.
const maxLoggedArgLen = 200

var sensitiveArgMarkers = []string{"password", "secret", "token", "key", "credential"}

// MCPRequestLogger returns middleware that traces JSON-RPC traffic on the MCP
// endpoint. The tool name and redacted arguments are pulled from the request
// envelope, and failed tool calls surface at WARN with the JSON-RPC error
// code. A nil logger disables the middleware.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			// Non-JSON bodies are still served; they just log an empty method.
			var env rpcEnvelope
			if err := json.Unmarshal(body, &env); err != nil {
				logger.Debug("MCP request body is not JSON-RPC", zap.Error(err))
			}

			logger.Debug("MCP request",
				zap.String("method", env.Method),
				zap.String("tool", env.Params.Name),
				zap.Any("arguments", redactArgs(env.Params.Arguments)),
			)

			rec := &bodyRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			// Streamed or empty responses are not parseable envelopes; the
			// request line above is all we get for those.
			var result rpcResult
			if err := json.Unmarshal(rec.body.Bytes(), &result); err != nil {
				return
			}

			if result.Error != nil {
				logger.Warn("MCP response error",
					zap.String("tool", env.Params.Name),
					zap.Int("error_code", result.Error.Code),
					zap.String("error_message", result.Error.Message),
					zap.Duration("duration", elapsed),
				)
				return
			}
			logger.Debug("MCP response",
				zap.String("tool", env.Params.Name),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

// rpcEnvelope is the subset of a JSON-RPC request the logger cares about.
type rpcEnvelope struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcResult struct {
	Error *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bodyRecorder tees the response body so the JSON-RPC envelope can be
// inspected after the handler runs.
type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// redactArgs masks argument values whose keys look sensitive and truncates
// long strings.
func redactArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		if sensitiveArgKey(k) {
			out[k] = logging.RedactedText
			continue
		}
		if s, ok := v.(string); ok && len(s) > maxLoggedArgLen {
			out[k] = s[:maxLoggedArgLen] + "..."
			continue
		}
		out[k] = v
	}
	return out
}

func sensitiveArgKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveArgMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
