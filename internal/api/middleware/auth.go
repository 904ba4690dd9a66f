package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-service/internal/api/response"
	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/auth"
)

// Auth resolves the bearer token to a user id and stores it in the request
// context. Requests without a valid token are rejected with 401.
func Auth(a auth.Authenticator, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var userID string
				userID, err = a.Authenticate(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
					return
				}
			}

			log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected request")
			response.RespondError(w, http.StatusUnauthorized, apperrors.Kind(apperrors.ErrUnauthorized),
				"authentication required", err.Error())
		})
	}
}
