package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/core/service"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	auth    *service.AuthService
	library *service.LibraryService
	loans   *service.LoanService
	logger  *zap.Logger
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type RegisterHTTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

type LoginHTTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type BookHTTPRequest struct {
	Name            *string `json:"name"`
	Author          *string `json:"author"`
	Genre           *string `json:"genre"`
	PublicationDate *string `json:"publication_date"`
	Quantity        *int    `json:"quantity"`
}

type LoanHTTPRequest struct {
	RequestID string `json:"request_id"`
	BookID    int64  `json:"book_id"`
	Quantity  int    `json:"quantity"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func NewHTTPHandler(auth *service.AuthService, library *service.LibraryService, loans *service.LoanService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{auth: auth, library: library, loans: loans, logger: logger}
}

// Routes wires every endpoint onto a fresh mux.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.authenticated(h.Me))

	mux.HandleFunc("GET /api/library", h.authenticated(h.ListCatalog))
	mux.HandleFunc("GET /api/library/{id}", h.authenticated(h.GetEntry))
	mux.HandleFunc("POST /api/library", h.authenticated(h.CreateBook))
	mux.HandleFunc("PATCH /api/library/{id}", h.authenticated(h.UpdateBook))

	mux.HandleFunc("GET /api/loans", h.authenticated(h.ListLoans))
	mux.HandleFunc("POST /api/loans", h.authenticated(h.CreateLoan))

	return mux
}

type authedHandlerFunc func(w http.ResponseWriter, r *http.Request, p domain.Principal)

// authenticated resolves the bearer session and hands its access token to the
// storage layer through the request context.
func (h *HTTPHandler) authenticated(next authedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.auth.Authenticate(r.Context(), bearerToken(r.Header.Get("Authorization")))
		if err != nil {
			h.writeError(w, err)
			return
		}
		ctx := domain.ContextWithSession(r.Context(), p.Session)
		next(w, r.WithContext(ctx), p)
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Admin:    req.Admin,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "registered", Data: toSessionDTO(p)})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "logged in", Data: toSessionDTO(p)})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r.Header.Get("Authorization"))); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "logged out"})
}

func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: toSessionDTO(p)})
}

func (h *HTTPHandler) ListCatalog(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	entries, err := h.library.ListCatalog(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: toCatalogDTOs(entries)})
}

func (h *HTTPHandler) GetEntry(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	entry, err := h.library.GetEntry(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: toCatalogEntryDTO(entry)})
}

func (h *HTTPHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	var req BookHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	patch, err := req.patch()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	nb := domain.NewBook{
		Name:   deref(patch.Name),
		Author: deref(patch.Author),
		Genre:  deref(patch.Genre),
	}
	if patch.PublicationDate != nil {
		nb.PublicationDate = *patch.PublicationDate
	}
	if patch.Quantity != nil {
		nb.Quantity = *patch.Quantity
	}

	entry, err := h.library.CreateBook(r.Context(), nb)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "book added", Data: toCatalogEntryDTO(entry)})
}

func (h *HTTPHandler) UpdateBook(w http.ResponseWriter, r *http.Request, _ domain.Principal) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req BookHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	patch, err := req.patch()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	entry, err := h.library.UpdateBook(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "book updated", Data: toCatalogEntryDTO(entry)})
}

func (h *HTTPHandler) ListLoans(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	loans, err := h.loans.ListLoans(r.Context(), p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: toLoanDetailDTOs(loans)})
}

func (h *HTTPHandler) CreateLoan(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	var req LoanHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: err.Error()})
		return
	}

	loan, err := h.loans.CreateLoan(r.Context(), domain.LoanRequest{
		RequestID: req.RequestID,
		BookID:    req.BookID,
		UserID:    p.User.ID,
		Quantity:  req.Quantity,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "loan created", Data: toLoanDTO(loan)})
}

func (req BookHTTPRequest) patch() (domain.BookPatch, error) {
	patch := domain.BookPatch{
		Name:     req.Name,
		Author:   req.Author,
		Genre:    req.Genre,
		Quantity: req.Quantity,
	}
	if req.PublicationDate != nil {
		t, err := parseDate("publication_date", *req.PublicationDate)
		if err != nil {
			return domain.BookPatch{}, err
		}
		if !t.IsZero() {
			patch.PublicationDate = &t
		}
	}
	return patch, nil
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return false
	}
	return true
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	m, message := classify(err)
	if m.httpStatus >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, m.httpStatus, Response{Success: false, Message: message})
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
