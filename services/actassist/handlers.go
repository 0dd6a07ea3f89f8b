package actassist

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"actassist-backend/lib/history"
	"actassist-backend/lib/portal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxRequestBody = 64 << 10

type formRequest interface {
	fromForm(form url.Values)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *loginRequest) fromForm(form url.Values) {
	r.Username = form.Get("username")
	r.Password = form.Get("password")
}

type submitRequest struct {
	Code          string `json:"code"`
	ActivityValue string `json:"activity_value"`
}

func (r *submitRequest) fromForm(form url.Values) {
	r.Code = form.Get("code")
	r.ActivityValue = form.Get("activity_value")
}

type loginResponse struct {
	portal.AuthResult
	Token string `json:"token,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Portal string `json:"portal,omitempty"`
	Error  string `json:"error,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// decodeRequest reads a json body when the request says it is json and a
// form otherwise, the scanning page posts forms.
func decodeRequest(w http.ResponseWriter, r *http.Request, req formRequest) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("content-type"))
	if mediaType == "application/json" {
		return json.NewDecoder(r.Body).Decode(req)
	}
	err := r.ParseForm()
	if err != nil {
		return err
	}
	req.fromForm(r.PostForm)
	return nil
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_write, err)
	}
}

func (s *Service) badRequest(w http.ResponseWriter, err error) {
	s.tel.ReportDebug(report_bad_request, err)
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Message: "malformed request: " + err.Error()})
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token, ok := strings.CutPrefix(r.Header.Get("authorization"), "Bearer ")
	if ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Service) credential(r *http.Request) (portal.Credential, bool) {
	return s.sessions.get(sessionToken(r))
}

func (s *Service) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) updateSessionCount() {
	n := s.sessions.len()
	activeSessions.Set(float64(n))
	s.tel.ReportCount(report_session_size, int64(n))
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleLogin")
	defer span.End()

	var req loginRequest
	err := decodeRequest(w, r, &req)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	cred := portal.Credential{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	}

	start := time.Now()
	result := s.automation.Verify(ctx, cred)
	recordOperation(opVerify, start, result.OK)
	span.SetAttributes(attribute.String("reason", string(result.Reason)))
	if !result.OK {
		s.tel.ReportDebug(report_login, string(result.Reason))
		s.writeJSON(w, http.StatusOK, loginResponse{AuthResult: result})
		return
	}

	token, err := s.sessions.create(cred)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate session token")
		s.tel.ReportBroken(report_session, err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Message: err.Error()})
		return
	}
	s.updateSessionCount()

	s.setSessionCookie(w, token, int(s.cfg.sessionTTL().Seconds()))
	s.writeJSON(w, http.StatusOK, loginResponse{AuthResult: result, Token: token})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token != "" {
		s.sessions.remove(token)
		s.tel.ReportDebug(report_logout)
		s.updateSessionCount()
	}
	s.setSessionCookie(w, "", -1)
	s.writeJSON(w, http.StatusOK, portal.Result{Success: true})
}

func (s *Service) handleActivities(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleActivities")
	defer span.End()

	cred, ok := s.credential(r)
	if !ok {
		s.writeJSON(w, http.StatusOK, portal.Result{Success: false, Message: portal.MessageNotLoggedIn})
		return
	}

	start := time.Now()
	result := s.automation.ListActivities(ctx, cred)
	recordOperation(opActivities, start, result.Success)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleSubmit")
	defer span.End()

	var req submitRequest
	err := decodeRequest(w, r, &req)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	cred, ok := s.credential(r)
	if !ok {
		s.writeJSON(w, http.StatusOK, portal.Result{Success: false, Message: portal.MessageNotLoggedIn})
		return
	}
	span.SetAttributes(attribute.String("activity", req.ActivityValue))

	start := time.Now()
	result := s.automation.Submit(ctx, cred, req.Code, req.ActivityValue)
	recordOperation(opSubmit, start, result.Success)
	s.recordSubmission(ctx, cred, req, result)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleHistory")
	defer span.End()

	cred, ok := s.credential(r)
	if !ok {
		s.writeJSON(w, http.StatusOK, portal.HistoryResult{
			Success:       false,
			Message:       portal.MessageNotLoggedIn,
			Compulsory:    []history.Record{},
			Supplementary: []history.Record{},
		})
		return
	}

	start := time.Now()
	result := s.automation.History(ctx, cred)
	recordOperation(opHistory, start, result.Success)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.probe == nil {
		s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	err := s.probe.Check(r.Context())
	if r.Context().Err() != nil {
		// client went away
		return
	}
	if err != nil {
		s.tel.ReportWarning(report_probe, err)
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "degraded",
			Portal: "unreachable",
			Error:  err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Portal: "reachable"})
}
