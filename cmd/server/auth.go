package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const UserIDKey contextKey = "userId"

// ExtractUserMiddleware pulls the authenticated user from the headers the
// auth proxy sets in front of this service.
func ExtractUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Traefik BasicAuth sets this header
		userId := r.Header.Get("X-Auth-User")

		// Also check common alternatives
		if userId == "" {
			userId = r.Header.Get("X-Forwarded-User")
		}
		if userId == "" {
			userId = r.Header.Get("Remote-User")
		}

		if userId == "" {
			log.Printf("Authentication failed: no user header found")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserId(r *http.Request) string {
	userId, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userId
}

// RequireSameUser rejects requests whose path user differs from the
// authenticated one.
func RequireSameUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "userID") != GetUserId(r) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
