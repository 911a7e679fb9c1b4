package httpapi

import (
	"net/http"
	"time"

	"reelhouse.org/internal/audit"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type activateRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registerUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleUsersActivated(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		a.activateUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPut)
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.login(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, activationToken, err := a.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventUserCreated, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})

	// There is no mail transport yet, so the activation token rides in the
	// response. TODO: move delivery to a mailer once SMTP settings exist.
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":             user,
		"activation_token": activationToken,
	})
}

func (a *API) activateUser(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.users.Activate(r.Context(), req.Email, req.Token)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventUserActivate, map[string]any{
		"user_id": user.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	token, expiresAt, err := a.issuer.Issue(a.users.ClaimsFor(user))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue token")
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventTokenIssued, map[string]any{
		"user_id": user.ID,
	})

	writeJSON(w, http.StatusCreated, loginResponse{Token: token, ExpiresAt: expiresAt})
}
