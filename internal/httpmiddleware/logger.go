package httpmiddleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RoundTripperFunc - функциональный адаптер http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Logger логирует исходящие запросы и ответы.
// bodyLimit: 0 - тела не логируются, >0 - первые N байт.
func Logger(logger *slog.Logger, bodyLimit int) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
			}
			if bodyLimit > 0 && req.Body != nil && req.Body != http.NoBody {
				if body, rest := peekBody(req.Body, bodyLimit); body != nil {
					req.Body = rest
					attrs = append(attrs, slog.String("request_body", string(body)))
				}
			}
			logger.LogAttrs(req.Context(), slog.LevelDebug, "📤 HTTP request", attrs...)

			start := time.Now()
			resp, err := next.RoundTrip(req)
			if err != nil {
				logger.Error("❌ HTTP request failed",
					slog.String("method", req.Method),
					slog.String("url", req.URL.String()),
					slog.Duration("duration", time.Since(start)),
					slog.Any("error", err))

				return resp, err
			}

			attrs = []slog.Attr{
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", time.Since(start)),
			}
			if bodyLimit > 0 && resp.Body != nil {
				if body, rest := peekBody(resp.Body, bodyLimit); body != nil {
					resp.Body = rest
					attrs = append(attrs, slog.String("response_body", string(body)))
				}
			}

			level := slog.LevelDebug
			if resp.StatusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if resp.StatusCode >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			logger.LogAttrs(req.Context(), level, "📥 HTTP response", attrs...)

			return resp, nil
		})
	}
}

// peekBody читает до limit байт и возвращает прочитанное вместе с
// восстановленным телом для следующего читателя.
func peekBody(body io.ReadCloser, limit int) ([]byte, io.ReadCloser) {
	head := make([]byte, limit)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, body
	}
	head = head[:n]

	rest := io.MultiReader(bytes.NewReader(head), body)

	return head, readCloser{Reader: rest, closer: body}
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r readCloser) Close() error { return r.closer.Close() }

// MaskToken маскирует секрет для логов, оставляя первые 4 символа
func MaskToken(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}

	return s[:4] + strings.Repeat("*", len(s)-4)
}
