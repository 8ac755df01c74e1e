package httpx

import "net/http"

// MiddleWareFunc wraps a handler, servers adapt it to their own middleware type.
type MiddleWareFunc func(http.Handler) http.Handler
