// Package httpapi exposes the marketplace REST API.
package httpapi

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/grihome/grihome/internal/app"
	"github.com/grihome/grihome/internal/app/domain/ad"
	authdomain "github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/metrics"
	authsvc "github.com/grihome/grihome/internal/app/services/auth"
	apperrors "github.com/grihome/grihome/internal/errors"
	"github.com/grihome/grihome/internal/logging"
	"github.com/grihome/grihome/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// Options tunes the handler's cross-cutting behaviour.
type Options struct {
	AuditMax     int
	AuditLogPath string
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	sink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	h := &handler{
		app:   application,
		audit: newAuditLog(opts.AuditMax, sink),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.auditMiddleware)

	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/otp/request", h.otpRequest).Methods(http.MethodPost)
	api.HandleFunc("/auth/otp/verify", h.otpVerify).Methods(http.MethodPost)
	api.HandleFunc("/auth/oauth/{provider}", h.oauthLogin).Methods(http.MethodPost)

	api.HandleFunc("/users/me", h.currentUser).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.updateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)

	api.HandleFunc("/builders", h.createBuilder).Methods(http.MethodPost)
	api.HandleFunc("/builders", h.listBuilders).Methods(http.MethodGet)
	api.HandleFunc("/builders/{id}", h.getBuilder).Methods(http.MethodGet)

	api.HandleFunc("/projects", h.createProject).Methods(http.MethodPost)
	api.HandleFunc("/projects", h.listProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", h.getProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/status", h.updateProjectStatus).Methods(http.MethodPatch)
	api.HandleFunc("/projects/{id}/agents", h.registerProjectAgent).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}/agents", h.listProjectAgents).Methods(http.MethodGet)

	api.HandleFunc("/properties", h.createProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties", h.listProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties/search", h.searchProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id}", h.getProperty).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id}", h.updateProperty).Methods(http.MethodPatch)
	api.HandleFunc("/properties/{id}/status", h.updatePropertyStatus).Methods(http.MethodPatch)
	api.HandleFunc("/properties/{id}/listings", h.featureProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}/listings", h.listPropertyListings).Methods(http.MethodGet)

	api.HandleFunc("/agents/{id}/promote", h.promoteProjectAgent).Methods(http.MethodPost)
	api.HandleFunc("/agents/{id}/promote", h.demoteProjectAgent).Methods(http.MethodDelete)
	api.HandleFunc("/listings/{id}/promote", h.promotePropertyListing).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/promote", h.demotePropertyListing).Methods(http.MethodDelete)

	api.HandleFunc("/ads/slots", h.configureSlot).Methods(http.MethodPut)
	api.HandleFunc("/ads/slots", h.listSlots).Methods(http.MethodGet)
	api.HandleFunc("/ads/quote", h.quoteAds).Methods(http.MethodPost)
	api.HandleFunc("/ads/purchases", h.purchaseAds).Methods(http.MethodPost)
	api.HandleFunc("/ads/purchases", h.listPurchases).Methods(http.MethodGet)
	api.HandleFunc("/ads/active", h.activePlacements).Methods(http.MethodGet)

	api.HandleFunc("/forum/categories", h.createCategory).Methods(http.MethodPost)
	api.HandleFunc("/forum/categories/tree", h.categoryTree).Methods(http.MethodGet)
	api.HandleFunc("/forum/categories/{slug}", h.getCategory).Methods(http.MethodGet)
	api.HandleFunc("/forum/categories/{slug}/posts", h.createPost).Methods(http.MethodPost)
	api.HandleFunc("/forum/categories/{slug}/posts", h.listPosts).Methods(http.MethodGet)
	api.HandleFunc("/forum/posts/{id}", h.getPost).Methods(http.MethodGet)
	api.HandleFunc("/forum/posts/{id}/replies", h.createReply).Methods(http.MethodPost)
	api.HandleFunc("/forum/posts/{id}/replies", h.listReplies).Methods(http.MethodGet)
	api.HandleFunc("/forum/posts/{id}/live", h.subscribeReplies).Methods(http.MethodGet)

	api.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)

	return r, nil
}

// PublicPaths lists endpoints that must stay reachable without a token.
func PublicPaths() []string {
	return []string{
		"/healthz",
		"/metrics",
		"/api/auth/register",
		"/api/auth/login",
		"/api/auth/otp/request",
		"/api/auth/otp/verify",
		"/api/auth/oauth/google",
		"/api/auth/oauth/facebook",
		"/api/properties/search",
		"/api/forum/categories/tree",
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			User:       middleware.GetUserID(r.Context()),
			Role:       middleware.GetUserRole(r.Context()),
			TraceID:    logging.GetTraceID(r.Context()),
			Path:       r.URL.Path,
			Method:     r.Method,
			Entity:     auditEntity(r),
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

// auditEntity pulls the acted-on resource identifier out of the matched
// route, whichever form the route names it in.
func auditEntity(r *http.Request) string {
	vars := mux.Vars(r)
	for _, key := range []string{"id", "slug", "provider"} {
		if v := vars[key]; v != "" {
			return v
		}
	}
	return ""
}

type auditRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *auditRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the audited writer.
func (r *auditRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// auth

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Name     string `json:"name"`
		City     string `json:"city"`
		State    string `json:"state"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := authsvc.HashPassword(payload.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Users.Register(r.Context(), payload.Email, payload.Phone, payload.Username, hash, user.Role(strings.ToUpper(payload.Role)), payload.Name, payload.City, payload.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, token, err := h.app.Auth.LoginPassword(r.Context(), payload.Identifier, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{User: u, Token: token.Value, ExpiresAt: token.ExpiresAt})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("missing bearer token"))
		return
	}
	if err := h.app.Auth.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) otpRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Channel     string `json:"channel"`
		Destination string `json:"destination"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	channel := authdomain.Channel(strings.ToLower(payload.Channel))
	if err := h.app.Auth.RequestOTP(r.Context(), channel, payload.Destination); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	metrics.RecordOTPIssued(string(channel))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *handler) otpVerify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Destination string `json:"destination"`
		Code        string `json:"code"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, token, err := h.app.Auth.VerifyOTP(r.Context(), payload.Destination, payload.Code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{User: u, Token: token.Value, ExpiresAt: token.ExpiresAt})
}

func (h *handler) oauthLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, token, err := h.app.Auth.LoginOAuth(r.Context(), mux.Vars(r)["provider"], payload.Code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{User: u, Token: token.Value, ExpiresAt: token.ExpiresAt})
}

// users

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	u, err := h.app.Users.Get(r.Context(), callerID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
		City  *string `json:"city"`
		State *string `json:"state"`
		Role  *string `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var role *user.Role
	if payload.Role != nil {
		parsed := user.Role(strings.ToUpper(*payload.Role))
		role = &parsed
	}

	updated, err := h.app.Users.UpdateProfile(r.Context(), callerID, payload.Name, payload.Phone, payload.City, payload.State, role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// builders and projects

func (h *handler) createBuilder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Website     string `json:"website"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Projects.CreateBuilder(r.Context(), payload.Name, payload.Description, payload.Website)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listBuilders(w http.ResponseWriter, r *http.Request) {
	builders, err := h.app.Projects.ListBuilders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, builders)
}

func (h *handler) getBuilder(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Projects.GetBuilder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) createProject(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BuilderID   string  `json:"builder_id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Type        string  `json:"type"`
		Status      string  `json:"status"`
		City        string  `json:"city"`
		State       string  `json:"state"`
		Locality    string  `json:"locality"`
		Pincode     string  `json:"pincode"`
		Lat         float64 `json:"lat"`
		Lng         float64 `json:"lng"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	loc := project.Location{
		City:     payload.City,
		State:    payload.State,
		Locality: payload.Locality,
		Pincode:  payload.Pincode,
		Lat:      payload.Lat,
		Lng:      payload.Lng,
	}
	created, err := h.app.Projects.Create(r.Context(), payload.BuilderID, payload.Name, payload.Description, project.Type(strings.ToUpper(payload.Type)), project.Status(strings.ToUpper(payload.Status)), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects, err := h.app.Projects.List(r.Context(), q.Get("builder_id"), q.Get("city"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *handler) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Projects.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateProjectStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Projects.UpdateStatus(r.Context(), mux.Vars(r)["id"], project.Status(strings.ToUpper(payload.Status)))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// properties

func (h *handler) createProperty(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		ProjectID   string   `json:"project_id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Type        string   `json:"type"`
		City        string   `json:"city"`
		State       string   `json:"state"`
		Locality    string   `json:"locality"`
		Pincode     string   `json:"pincode"`
		SqFt        float64  `json:"sq_ft"`
		Bedrooms    int      `json:"bedrooms"`
		Bathrooms   int      `json:"bathrooms"`
		Price       float64  `json:"price"`
		Images      []string `json:"images"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Properties.Create(r.Context(), property.Property{
		OwnerID:     callerID,
		ProjectID:   payload.ProjectID,
		Title:       payload.Title,
		Description: payload.Description,
		Type:        strings.ToUpper(payload.Type),
		City:        payload.City,
		State:       payload.State,
		Locality:    payload.Locality,
		Pincode:     payload.Pincode,
		SqFt:        payload.SqFt,
		Bedrooms:    payload.Bedrooms,
		Bathrooms:   payload.Bathrooms,
		Price:       payload.Price,
		Images:      payload.Images,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	props, err := h.app.Properties.List(r.Context(), q.Get("owner_id"), q.Get("project_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (h *handler) searchProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := property.SearchFilter{
		City: q.Get("city"),
		Type: strings.ToUpper(q.Get("type")),
	}
	var err error
	if filter.MinPrice, err = parseFloat(q.Get("min_price")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("min_price must be a number"))
		return
	}
	if filter.MaxPrice, err = parseFloat(q.Get("max_price")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("max_price must be a number"))
		return
	}
	if filter.Bedrooms, err = parseInt(q.Get("bedrooms")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bedrooms must be an integer"))
		return
	}
	if filter.Limit, err = parseInt(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be an integer"))
		return
	}

	props, err := h.app.Properties.Search(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	metrics.RecordSearch(filter.City)
	writeJSON(w, http.StatusOK, props)
}

func (h *handler) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Properties.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateProperty(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Price       *float64  `json:"price"`
		Images      *[]string `json:"images"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Properties.Update(r.Context(), mux.Vars(r)["id"], callerID, payload.Title, payload.Description, payload.Price, payload.Images)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) updatePropertyStatus(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Properties.UpdateStatus(r.Context(), mux.Vars(r)["id"], callerID, property.Status(strings.ToUpper(payload.Status)))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// agents and promotions

func (h *handler) registerProjectAgent(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	created, err := h.app.Agents.RegisterProjectAgent(r.Context(), mux.Vars(r)["id"], callerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listProjectAgents(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Agents.ListProjectAgents(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) promoteProjectAgent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	var payload struct {
		Days int `json:"days"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Agents.PromoteProjectAgent(r.Context(), mux.Vars(r)["id"], payload.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) demoteProjectAgent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	updated, err := h.app.Agents.DemoteProjectAgent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) featureProperty(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	created, err := h.app.Agents.FeatureProperty(r.Context(), mux.Vars(r)["id"], callerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listPropertyListings(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Agents.ListPropertyListings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) promotePropertyListing(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	var payload struct {
		Days int `json:"days"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Agents.PromotePropertyListing(r.Context(), mux.Vars(r)["id"], payload.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) demotePropertyListing(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	updated, err := h.app.Agents.DemotePropertyListing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ads

func (h *handler) configureSlot(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	var payload struct {
		Slot      int     `json:"slot"`
		BasePrice float64 `json:"base_price"`
		Active    bool    `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.app.Ads.ConfigureSlot(r.Context(), payload.Slot, payload.BasePrice, payload.Active)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *handler) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.app.Ads.ListSlots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

type adSelectionPayload struct {
	Slot       int    `json:"slot"`
	Days       int    `json:"days"`
	PropertyID string `json:"property_id"`
	ProjectID  string `json:"project_id"`
}

func toSelections(payloads []adSelectionPayload) []ad.Selection {
	out := make([]ad.Selection, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, ad.Selection{
			Slot:       p.Slot,
			Days:       p.Days,
			PropertyID: p.PropertyID,
			ProjectID:  p.ProjectID,
		})
	}
	return out
}

func (h *handler) quoteAds(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Selections []adSelectionPayload `json:"selections"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	bill, err := h.app.Ads.Quote(r.Context(), toSelections(payload.Selections))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (h *handler) purchaseAds(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Selections []adSelectionPayload `json:"selections"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	purchases, bill, err := h.app.Ads.Purchase(r.Context(), callerID, toSelections(payload.Selections))
	metrics.RecordAdPurchase(bill.Total, err == nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Purchases []ad.Purchase `json:"purchases"`
		Bill      ad.Bill       `json:"bill"`
	}{Purchases: purchases, Bill: bill})
}

func (h *handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	purchases, err := h.app.Ads.ListPurchases(r.Context(), callerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (h *handler) activePlacements(w http.ResponseWriter, r *http.Request) {
	placements, err := h.app.Ads.ActivePlacements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, placements)
}

// forum

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	var payload struct {
		ParentID     string `json:"parent_id"`
		Name         string `json:"name"`
		Slug         string `json:"slug"`
		City         string `json:"city"`
		State        string `json:"state"`
		PropertyType string `json:"property_type"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Forum.CreateCategory(r.Context(), payload.ParentID, payload.Name, payload.Slug, payload.City, payload.State, strings.ToUpper(payload.PropertyType))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) categoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.app.Forum.CategoryTree(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *handler) getCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.app.Forum.GetCategoryBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	cat, err := h.app.Forum.GetCategoryBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Forum.CreatePost(r.Context(), cat.ID, callerID, payload.Title, payload.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	cat, err := h.app.Forum.GetCategoryBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	posts, err := h.app.Forum.ListPosts(r.Context(), cat.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.app.Forum.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *handler) createReply(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Forum.CreateReply(r.Context(), mux.Vars(r)["id"], callerID, payload.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := h.app.Forum.ListReplies(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

func (h *handler) subscribeReplies(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	if _, err := h.app.Forum.GetPost(r.Context(), postID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	h.app.Hub.Subscribe(w, r, postID)
}

// audit

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}

	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be an integer"))
		return
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit, r.URL.Query().Get("user")))
}

// helpers

type tokenResponse struct {
	User      user.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *handler) requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerID := middleware.GetUserID(r.Context())
	if callerID == "" {
		writeError(w, http.StatusUnauthorized, apperrors.Unauthorized("authentication required"))
		return "", false
	}
	return callerID, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, fallback int, err error) {
	status := fallback
	code := "ERROR"
	message := err.Error()
	var details map[string]interface{}

	if svcErr := apperrors.GetServiceError(err); svcErr != nil {
		status = svcErr.HTTPStatus
		code = string(svcErr.Code)
		message = svcErr.Message
		details = svcErr.Details
	} else if errors.Is(err, sql.ErrNoRows) {
		status = http.StatusNotFound
		code = string(apperrors.CodeNotFound)
		message = "resource not found"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error   string                 `json:"error"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	}{Error: code, Message: message, Details: details})
}
