package httpmiddleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Retry повторяет запрос при сетевой ошибке или 429/502/503/504.
// Повторяются только запросы, которые можно воспроизвести: GET/HEAD
// или запросы с проставленным GetBody (см. ReplayableBody).
// Пауза между попытками удваивается, начиная с baseDelay.
func Retry(logger *slog.Logger, attempts int, baseDelay time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var resp *http.Response
			var err error

			delay := baseDelay
			for attempt := 1; ; attempt++ {
				resp, err = next.RoundTrip(req)
				if !shouldRetry(req, resp, err) || attempt >= attempts {
					return resp, err
				}

				if resp != nil {
					resp.Body.Close()
				}

				logger.Warn("⚠️ HTTP retry",
					slog.String("method", req.Method),
					slog.String("url", req.URL.String()),
					slog.Int("attempt", attempt),
					slog.Duration("delay", delay))

				select {
				case <-req.Context().Done():
					return nil, req.Context().Err()
				case <-time.After(delay):
				}
				delay *= 2

				if req.GetBody != nil {
					body, bodyErr := req.GetBody()
					if bodyErr != nil {
						return resp, bodyErr
					}
					req.Body = body
				}
			}
		})
	}
}

func shouldRetry(req *http.Request, resp *http.Response, err error) bool {
	replayable := req.Method == http.MethodGet || req.Method == http.MethodHead || req.GetBody != nil || req.Body == nil
	if !replayable {
		return false
	}

	if err != nil {
		return true
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}

	return false
}
