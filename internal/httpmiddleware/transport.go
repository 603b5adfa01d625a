// Package httpmiddleware собирает цепочки http.RoundTripper для
// исходящих клиентов: брокер, GitHub-зеркало, загрузка скрип-мастера.
package httpmiddleware

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"time"
)

// BaseTransport возвращает транспорт под наш профиль трафика:
// почти все запросы идут на один хост брокера.
func BaseTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   20 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Middleware оборачивает http.RoundTripper
type Middleware func(http.RoundTripper) http.RoundTripper

// Wrap применяет middleware по порядку: первый в списке - внешний
func Wrap(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}

	return base
}

// ReplayableBody буферизует тело запроса и проставляет GetBody,
// чтобы retry и редиректы могли повторить запрос.
func ReplayableBody(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			req.Body.Close()

			req.Body = io.NopCloser(bytes.NewReader(body))
			req.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}

		return next.RoundTrip(req)
	})
}
