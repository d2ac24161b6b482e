// Package httpapi exposes the sync engine as an HTTP-triggered function.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/philippemarquet/my-money-muse/internal/bunq"
	"github.com/philippemarquet/my-money-muse/internal/errs"
	"github.com/philippemarquet/my-money-muse/internal/service"
)

// Engine is the orchestrator surface the trigger endpoint drives.
type Engine interface {
	Bootstrap(ctx context.Context, householdID uuid.UUID) (int64, error)
	DiscoverAccounts(ctx context.Context, householdID uuid.UUID) ([]bunq.MonetaryAccount, error)
	Sync(ctx context.Context, householdID uuid.UUID, dateFrom time.Time) (service.SyncResult, error)
}

// Server wires the engine into the HTTP invocation contract.
type Server struct {
	engine Engine
	// signKey enables the HS256 bearer check on triggers when non-empty.
	signKey         []byte
	defaultDateFrom time.Time
	log             *zap.Logger
}

// New constructs the trigger server.
func New(engine Engine, signKey []byte, defaultDateFrom time.Time, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{engine: engine, signKey: signKey, defaultDateFrom: defaultDateFrom, log: log}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSync)
	return CORS(Recovery(s.log, Logging(s.log, mux)))
}

// triggerRequest is the invocation body; every field may also arrive as a
// query parameter for GET-style manual triggering.
type triggerRequest struct {
	Mode        string `json:"mode"`
	HouseholdID string `json:"household_id"`
	DateFrom    string `json:"date_from"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req triggerRequest
	if r.Body != nil {
		// Body is optional; cron triggers may send none.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	q := r.URL.Query()
	if v := q.Get("mode"); v != "" {
		req.Mode = v
	}
	if v := q.Get("household_id"); v != "" {
		req.HouseholdID = v
	}
	if v := q.Get("date_from"); v != "" {
		req.DateFrom = v
	}
	if req.Mode == "" {
		req.Mode = "auto"
	}

	householdID, err := uuid.FromString(req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "household_id required")
		return
	}

	dateFrom := s.defaultDateFrom
	if req.DateFrom != "" {
		dateFrom, err = time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
			return
		}
	}

	ctx := r.Context()
	switch req.Mode {
	case "setup":
		userID, err := s.engine.Bootstrap(ctx, householdID)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user_id": userID})

	case "accounts":
		accounts, err := s.engine.DiscoverAccounts(ctx, householdID)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "accounts": accounts})

	case "auto":
		res, err := s.engine.Sync(ctx, householdID, dateFrom)
		if err != nil {
			s.fail(w, err)
			return
		}
		payload := map[string]any{
			"ok":        true,
			"imported":  res.Imported,
			"date_from": res.DateFrom.Format("2006-01-02"),
		}
		if res.Accounts != nil {
			// Nothing mapped yet; hand the operator the discovery list.
			payload["accounts"] = res.Accounts
		}
		writeJSON(w, http.StatusOK, payload)

	default:
		writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
	}
}

// fail maps engine errors onto the response envelope. Configuration and
// precondition failures are the operator's to fix (400); the rest is 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("sync request failed", zap.Error(err))
	switch {
	case errors.Is(err, service.ErrAPIKeyMissing),
		errors.Is(err, errs.ErrNoConnection),
		errors.Is(err, errs.ErrNoDefaultCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// authorize verifies "Authorization: Bearer <HS256 JWT>" when a trigger key
// is configured.
func (s *Server) authorize(r *http.Request) error {
	if len(s.signKey) == 0 {
		return nil
	}
	tok := bearerToken(r)
	if tok == "" {
		return errs.ErrUnauthorized
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return errs.ErrUnauthorized
	}
	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return errs.ErrUnauthorized
	}
	return nil
}

func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
