package api

import (
	"errors"                              // Error inspection
	"expense_tracker/internal/account"    // Account lifecycle
	"expense_tracker/internal/middleware" // Session cookie name
	"expense_tracker/internal/utils"      // Session JWT helpers
	"net/http"                            // HTTP status codes
	"net/url"                             // Query escaping
	"time"                                // Cookie lifetime

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// RegisterRequest is the registration form
type RegisterRequest struct {
	Username string `json:"username" form:"username"` // Desired username
	Email    string `json:"email" form:"email"`       // Email the activation link goes to
	Password string `json:"password" form:"password"` // Plain password
}

// LoginRequest is the login form
type LoginRequest struct {
	Username string `json:"username" form:"username"` // Username
	Password string `json:"password" form:"password"` // Password
}

// ForgotPasswordRequest is the forgot password form
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email"` // Account email
}

// SetNewPasswordRequest is the new password form
type SetNewPasswordRequest struct {
	Password        string `json:"password" form:"password"`                 // New password
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"` // Repeated new password
}

// Messages shown on the login page, keyed by the message query parameter
var loginMessages = map[string]string{
	"account-activated":       "Account activated successfully!",
	"already-activated":       "Your account is already active, please log in.",
	"invalid-activation-link": "The activation link is invalid or has expired.",
	"password-reset":          "Password reset successful. You can now log in with your new password.",
	"logged-out":              "You have been logged out successfully.",
}

const (
	msgInvalidResetLink = "The reset link is invalid, please request a new one."
	msgResetError       = "An error occurred while resetting your password."
	msgResetSent        = "If an account exists for that address, a reset link has been sent. Please check your email."
)

// RegisterHandler creates an inactive account and mails the activation link
func RegisterHandler(mgr *account.Manager, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON or form request to struct
		if err := c.ShouldBind(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := mgr.Register(c.Request.Context(), account.RegisterInput{
			Username: req.Username,         // Username
			Email:    req.Email,            // Email
			Password: req.Password,         // Password
			LinkBase: linkBase(c, baseURL), // Where the activation link points
		})
		if err != nil {
			respondAccountError(c, err, "register") // Validation or internal error
			return
		}
		// Return success response, the user is not logged in
		c.JSON(http.StatusCreated, gin.H{"message": "Account created successfully! Please check your email to activate your account.", "user_id": user.ID})
	}
}

// ValidateUsernameHandler checks a username while the user is typing it
func ValidateUsernameHandler(mgr *account.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"` // Username to check
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"username_error": "Invalid request"})
			return
		}
		if err := mgr.ValidateUsername(c.Request.Context(), req.Username); err != nil {
			var verr *account.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"username_error": verr.Message})
				return
			}
			internalError(c, err, "validate username")
			return
		}
		c.JSON(http.StatusOK, gin.H{"username_valid": true})
	}
}

// ValidateEmailHandler checks an email address while the user is typing it
func ValidateEmailHandler(mgr *account.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"` // Email to check
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"email_error": "Invalid request"})
			return
		}
		if err := mgr.ValidateEmail(c.Request.Context(), req.Email); err != nil {
			var verr *account.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"email_error": verr.Message})
				return
			}
			internalError(c, err, "validate email")
			return
		}
		c.JSON(http.StatusOK, gin.H{"email_valid": true})
	}
}

// ActivateHandler activates the account behind an emailed link. It always
// redirects to the login page and never fails the request.
func ActivateHandler(mgr *account.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := mgr.Activate(c.Request.Context(), c.Param("uid"), c.Param("token"))
		fields := logrus.Fields{"uid": c.Param("uid")} // Log context
		switch {
		case err == nil:
			redirectToLogin(c, "account-activated")
		case errors.Is(err, account.ErrAlreadyActive):
			redirectToLogin(c, "already-activated")
		case errors.Is(err, account.ErrTokenInvalid):
			fields["reason"] = "token invalid"
			logrus.WithFields(fields).WithError(err).Info("Activation rejected")
			redirectToLogin(c, "invalid-activation-link")
		case errors.Is(err, account.ErrMalformedUID), errors.Is(err, account.ErrUserNotFound):
			fields["reason"] = err.Error()
			logrus.WithFields(fields).Info("Activation rejected")
			redirectToLogin(c, "invalid-activation-link")
		default:
			logrus.WithFields(fields).WithError(err).Error("Activation failed")
			redirectToLogin(c, "")
		}
	}
}

// LoginPageHandler returns the notice a redirect to the login page carries
func LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": loginMessages[c.Query("message")]}) // Empty for unknown codes
	}
}

// LoginHandler authenticates a user and starts a session
func LoginHandler(mgr *account.Manager, secret string, ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON or form request to struct
		if err := c.ShouldBind(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := mgr.Login(c.Request.Context(), req.Username, req.Password)
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials, please try again."})
			return
		case errors.Is(err, account.ErrInactive):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is not active, please check your email to activate your account."})
			return
		case err != nil:
			respondAccountError(c, err, "login")
			return
		}
		// Generate session token
		token, claims, err := utils.GenerateJWT(user.ID, secret, ttl)
		if err != nil {
			internalError(c, err, "generate session")
			return
		}
		maxAge := int(time.Until(claims.ExpiresAt.Time).Seconds())                  // Cookie lives as long as the session
		c.SetSameSite(http.SameSiteLaxMode)                                         // Cookie is not sent on cross-site posts
		c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", secure, true) // HttpOnly session cookie
		logrus.WithFields(logrus.Fields{
			"user_id":    user.ID,   // User ID
			"session_id": claims.ID, // Session ID, used for revocation
		}).Info("User logged in")
		// Return the token and where to go next
		c.JSON(http.StatusOK, gin.H{
			"message":  "Welcome, " + user.Username + " you are now logged in.", // Greeting
			"token":    token,                                                   // Session token for API clients
			"redirect": "/expenses",                                             // Ledger listing
		})
	}
}

// LogoutHandler ends the session. It succeeds with or without a valid session.
func LogoutHandler(secret string, rdb *redis.Client, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := middleware.SessionToken(c); tokenStr != "" {
			if claims, err := utils.ParseJWT(tokenStr, secret); err == nil {
				// Remember the session as revoked until it would have expired anyway
				if err := utils.RevokeSession(c.Request.Context(), rdb, claims.ID, claims.ExpiresAt.Time); err != nil {
					logrus.WithFields(logrus.Fields{
						"user_id": claims.UserID, // User ID
						"error":   err.Error(),   // Error message
					}).Warn("Failed to revoke session")
				}
			}
		}
		c.SetSameSite(http.SameSiteLaxMode)                                  // Same attributes as at login
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", secure, true) // Clear the cookie
		redirectToLogin(c, "logged-out")
	}
}

// ForgotPasswordHandler mails a reset link. The answer does not tell whether the address is registered.
func ForgotPasswordHandler(mgr *account.Manager, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest // Bind JSON or form request to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address."})
			return
		}
		err := mgr.ForgotPassword(c.Request.Context(), req.Email, linkBase(c, baseURL))
		var verr *account.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}
		if err != nil {
			// Logged, but answered like a success
			logrus.WithError(err).Error("Forgot password failed")
		}
		c.JSON(http.StatusOK, gin.H{"message": msgResetSent})
	}
}

// SetNewPasswordPageHandler checks a reset link before the new password form is shown
func SetNewPasswordPageHandler(mgr *account.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, token := c.Param("uid"), c.Param("token") // Link parts
		if _, err := mgr.CheckResetLink(c.Request.Context(), uid, token); err != nil {
			logResetFailure(uid, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": resetErrorMessage(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uidb64": uid, "token": token, "valid": true})
	}
}

// SetNewPasswordHandler sets the new password and sends the user to the login page
func SetNewPasswordHandler(mgr *account.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetNewPasswordRequest // Bind JSON or form request to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		uid := c.Param("uid") // Encoded user ID
		err := mgr.ResetPassword(c.Request.Context(), uid, c.Param("token"), req.Password, req.ConfirmPassword)
		var verr *account.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		case err != nil:
			logResetFailure(uid, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": resetErrorMessage(err)})
		default:
			c.Redirect(http.StatusSeeOther, "/login?message=password-reset")
		}
	}
}

// resetErrorMessage maps reset link failures to what the user sees
func resetErrorMessage(err error) string {
	if errors.Is(err, account.ErrTokenInvalid) || errors.Is(err, account.ErrMalformedUID) || errors.Is(err, account.ErrUserNotFound) {
		return msgInvalidResetLink
	}
	return msgResetError
}

// logResetFailure records why a reset link was refused
func logResetFailure(uid string, err error) {
	entry := logrus.WithFields(logrus.Fields{"uid": uid, "error": err.Error()}) // Log context
	if resetErrorMessage(err) == msgInvalidResetLink {
		entry.Info("Password reset link rejected")
		return
	}
	entry.Error("Password reset failed")
}

// redirectToLogin sends the user to the login page with an optional notice
func redirectToLogin(c *gin.Context, message string) {
	target := "/login" // Login page
	if message != "" {
		target += "?message=" + url.QueryEscape(message)
	}
	c.Redirect(http.StatusFound, target)
}

// linkBase is the scheme and host emailed links point at
func linkBase(c *gin.Context, baseURL string) string {
	if baseURL != "" {
		return baseURL // Configured base URL
	}
	scheme := "http" // Derive from the request
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// respondAccountError maps account errors to responses
func respondAccountError(c *gin.Context, err error, op string) {
	var verr *account.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message}) // User facing message
		return
	}
	internalError(c, err, op)
}

// internalError logs err and answers with a generic 500
func internalError(c *gin.Context, err error, op string) {
	logrus.WithFields(logrus.Fields{
		"operation": op,           // What failed
		"path":      c.FullPath(), // Route
		"error":     err.Error(),  // Error message
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again."})
}
