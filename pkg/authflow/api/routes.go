package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

// Routes mounts the authentication endpoints. Registration, login,
// refresh and the password reset flow are public; enrollment management
// requires a valid access token.
func Routes(r chi.Router, handle *Handle, accessAuth *jwtauth.JWTAuth) {
	r.Post("/register", handle.Register)
	r.Post("/login", handle.Login)
	r.Post("/2fa/verify", handle.VerifyStepUp)
	r.Post("/token/refresh", handle.Refresh)

	r.Post("/password/forgot", handle.ForgotPassword)
	r.Post("/password/verify-reset", handle.VerifyResetStepUp)
	r.Post("/password/reset", handle.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(accessAuth))
		r.Use(jwtauth.Authenticator(accessAuth))
		r.Post("/2fa/enable", handle.EnableTwoFactor)
		r.Post("/2fa/disable", handle.DisableTwoFactor)
	})
}
