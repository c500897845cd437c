package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderAPIKey carries the key internal services present to the auth service.
const HeaderAPIKey = "X-API-Key"

type errorBody struct {
	Error string `json:"error"`
}

// RequireUser rejects requests without a valid bearer token.
func (a *Authenticator) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := a.Authenticate(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, &errorBody{Error: err.Error()})
			}

			req := ctx.Request()
			ctx.SetRequest(req.WithContext(ContextWithIdentity(req.Context(), identity)))
			return next(ctx)
		}
	}
}

// RequirePrivileged must run after RequireUser.
func RequirePrivileged() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, ok := IdentityFromContext(ctx.Request().Context())
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, &errorBody{Error: ErrMissingToken.Error()})
			}
			if !identity.Privileged {
				return ctx.JSON(http.StatusForbidden, &errorBody{Error: "forbidden"})
			}
			return next(ctx)
		}
	}
}

// RequireOperator admits a privileged bearer token, or a service caller that passes
// internal when the request has an API key and no bearer token. A nil internal leaves
// only the bearer path.
func (a *Authenticator) RequireOperator(internal echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		viaUser := a.RequireUser()(RequirePrivileged()(next))
		if internal == nil {
			return viaUser
		}
		viaService := internal(func(ctx echo.Context) error {
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(ContextWithIdentity(req.Context(), InternalIdentity())))
			return next(ctx)
		})

		return func(ctx echo.Context) error {
			header := ctx.Request().Header
			if strings.TrimSpace(header.Get(echo.HeaderAuthorization)) == "" && strings.TrimSpace(header.Get(HeaderAPIKey)) != "" {
				return viaService(ctx)
			}
			return viaUser(ctx)
		}
	}
}
