package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
)

// Recover turns a panicking handler into a 500. In debug mode the panic
// value and stack are sent to the client as well as the log.
func Recover(debugMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, stack)

				msg := http.StatusText(http.StatusInternalServerError)
				if debugMode {
					msg = fmt.Sprintf("panic: %v\n\n%s", rec, stack)
				}
				http.Error(w, msg, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
