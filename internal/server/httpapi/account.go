package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SessionAPI is the account protocol served over HTTP.
type SessionAPI interface {
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Register(ctx context.Context, email, password, firstName, lastName string) (*services.Session, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*services.Session, error)
}

// Client-facing messages.
const (
	msgLoginFailed       = "User/Password problem"
	msgEmailRegistered   = "Email already registered"
	msgRefreshRejected   = "Refresh token is not valid"
	msgRefreshAmbiguous  = "Refresh token state is inconsistent"
	msgMalformedToken    = "Access token is malformed"
	msgUnknownSubject    = "Access token subject is unknown"
	msgValidationTitle   = "One or more validation errors occurred."
	msgInvalidJSONDetail = "Request body is not valid JSON"
)

// AccountHandler serves /login, /register, /refresh and /me.
type AccountHandler struct {
	svc SessionAPI
	log logging.Logger
}

func NewAccountHandler(svc SessionAPI, log logging.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, log: log}
}

// Login handles POST /login. Unknown email and wrong password produce the
// same 404 body.
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			abortWithProblem(c, newProblem(c, http.StatusNotFound, "", msgLoginFailed))
			return
		}
		h.internal(c, err)
		return
	}

	c.JSON(http.StatusOK, toLoginResponse(sess))
}

// Register handles POST /register.
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	sess, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateRegistration) {
			p := newProblem(c, http.StatusBadRequest, appErrorTitle, "")
			p.Errors = map[string][]string{"email": {msgEmailRegistered}}
			abortWithProblem(c, p)
			return
		}
		h.internal(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// Refresh handles POST /refresh. A rejected refresh token is reported as a
// server fault, not a client error.
func (h *AccountHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !h.bind(c, &req) {
		return
	}

	sess, err := h.svc.Refresh(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMalformedToken):
			abortWithProblem(c, newProblem(c, http.StatusBadRequest, appErrorTitle, msgMalformedToken))
		case errors.Is(err, common.ErrUnknownSubject):
			abortWithProblem(c, newProblem(c, http.StatusBadRequest, appErrorTitle, msgUnknownSubject))
		case errors.Is(err, common.ErrAmbiguousRefreshState):
			_ = c.Error(err)
			abortWithProblem(c, newProblem(c, http.StatusInternalServerError, "", msgRefreshAmbiguous))
		case errors.Is(err, common.ErrNoValidToken):
			abortWithProblem(c, newProblem(c, http.StatusInternalServerError, "", msgRefreshRejected))
		default:
			h.internal(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// Me handles GET /me behind the Bearer middleware.
func (h *AccountHandler) Me(c *gin.Context) {
	claims, ok := ClaimsFromContext(c.Request.Context())
	if !ok {
		abortWithProblem(c, newProblem(c, http.StatusUnauthorized, "", ""))
		return
	}
	c.JSON(http.StatusOK, toMeResponse(claims))
}

func toMeResponse(cl *auth.ClaimSet) MeResponse {
	roles := cl.Roles
	if roles == nil {
		roles = []string{}
	}
	return MeResponse{
		Subject:    cl.Subject,
		Email:      cl.Email,
		GivenName:  cl.GivenName,
		FamilyName: cl.FamilyName,
		Roles:      roles,
	}
}

func (h *AccountHandler) internal(c *gin.Context, err error) {
	_ = c.Error(err)
	h.log.Error(c.Request.Context(), "request failed", "request_id", GetRequestID(c), "error", err)
	abortWithProblem(c, newProblem(c, http.StatusInternalServerError, "", ""))
}

// bind decodes the JSON body into req and answers 400 with field errors on
// failure.
func (h *AccountHandler) bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	p := newProblem(c, http.StatusBadRequest, msgValidationTitle, "")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		p.Errors = make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			field := jsonFieldName(fe.Field())
			p.Errors[field] = append(p.Errors[field], validationMessage(fe))
		}
	} else {
		p.Detail = msgInvalidJSONDetail
	}
	abortWithProblem(c, p)
	return false
}

func jsonFieldName(goName string) string {
	if goName == "" {
		return goName
	}
	return strings.ToLower(goName[:1]) + goName[1:]
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + fe.Field() + " field is required."
	case "email":
		return "The " + fe.Field() + " field is not a valid e-mail address."
	case "min":
		return "The " + fe.Field() + " field must be at least " + fe.Param() + " characters long."
	case "max":
		return "The " + fe.Field() + " field must be at most " + fe.Param() + " characters long."
	default:
		return "The " + fe.Field() + " field is invalid."
	}
}
