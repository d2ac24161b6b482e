package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/philippemarquet/my-money-muse/internal/bunq"
	"github.com/philippemarquet/my-money-muse/internal/errs"
	"github.com/philippemarquet/my-money-muse/internal/service"
)

type fakeEngine struct {
	userID       int64
	bootstrapErr error

	accounts    []bunq.MonetaryAccount
	discoverErr error

	res     service.SyncResult
	syncErr error

	lastHousehold uuid.UUID
	lastDateFrom  time.Time
}

func (f *fakeEngine) Bootstrap(_ context.Context, hh uuid.UUID) (int64, error) {
	f.lastHousehold = hh
	return f.userID, f.bootstrapErr
}

func (f *fakeEngine) DiscoverAccounts(_ context.Context, hh uuid.UUID) ([]bunq.MonetaryAccount, error) {
	f.lastHousehold = hh
	return f.accounts, f.discoverErr
}

func (f *fakeEngine) Sync(_ context.Context, hh uuid.UUID, dateFrom time.Time) (service.SyncResult, error) {
	f.lastHousehold = hh
	f.lastDateFrom = dateFrom
	return f.res, f.syncErr
}

var defaultFloor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(engine *fakeEngine, signKey []byte) http.Handler {
	return New(engine, signKey, defaultFloor, nil).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestHandleSync_Preflight(t *testing.T) {
	h := newTestServer(&fakeEngine{}, nil)
	rec := doJSON(t, h, http.MethodOptions, "/sync", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleSync_MissingHouseholdID(t *testing.T) {
	h := newTestServer(&fakeEngine{}, nil)
	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{"mode": "auto"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["ok"])
}

func TestHandleSync_BadDateFrom(t *testing.T) {
	h := newTestServer(&fakeEngine{}, nil)
	hh := uuid.Must(uuid.NewV4())
	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{
		"household_id": hh.String(),
		"date_from":    "01-06-2024",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSync_UnknownMode(t *testing.T) {
	h := newTestServer(&fakeEngine{}, nil)
	hh := uuid.Must(uuid.NewV4())
	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{
		"household_id": hh.String(),
		"mode":         "bogus",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSync_SetupMode(t *testing.T) {
	engine := &fakeEngine{userID: 1234}
	h := newTestServer(engine, nil)
	hh := uuid.Must(uuid.NewV4())

	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{
		"mode":         "setup",
		"household_id": hh.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	require.Equal(t, float64(1234), body["user_id"])
	require.Equal(t, hh, engine.lastHousehold)
}

func TestHandleSync_AccountsMode(t *testing.T) {
	engine := &fakeEngine{accounts: []bunq.MonetaryAccount{
		{Type: "MonetaryAccountBank", ID: 7, Status: "ACTIVE", Description: "Hoofdrekening",
			IBAN: "NL00TEST0123456789", Balance: decimal.RequireFromString("250.75"), Currency: "EUR"},
	}}
	h := newTestServer(engine, nil)
	hh := uuid.Must(uuid.NewV4())

	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{
		"mode":         "accounts",
		"household_id": hh.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	accounts, ok := body["accounts"].([]any)
	require.True(t, ok)
	require.Len(t, accounts, 1)
}

func TestHandleSync_AutoMode(t *testing.T) {
	engine := &fakeEngine{res: service.SyncResult{
		Imported: 3,
		DateFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	h := newTestServer(engine, nil)
	hh := uuid.Must(uuid.NewV4())

	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{
		"household_id": hh.String(),
		"date_from":    "2024-06-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	require.Equal(t, float64(3), body["imported"])
	require.Equal(t, "2024-06-01", body["date_from"])
	require.NotContains(t, body, "accounts")
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), engine.lastDateFrom)
}

func TestHandleSync_AutoModeDefaultsDateFrom(t *testing.T) {
	engine := &fakeEngine{res: service.SyncResult{DateFrom: defaultFloor}}
	h := newTestServer(engine, nil)
	hh := uuid.Must(uuid.NewV4())

	rec := doJSON(t, h, http.MethodGet, "/sync?household_id="+hh.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, defaultFloor, engine.lastDateFrom)
}

func TestHandleSync_AutoModeUnmappedReturnsAccounts(t *testing.T) {
	engine := &fakeEngine{res: service.SyncResult{
		DateFrom: defaultFloor,
		Accounts: []bunq.MonetaryAccount{{ID: 7, Description: "Hoofdrekening"}},
	}}
	h := newTestServer(engine, nil)
	hh := uuid.Must(uuid.NewV4())

	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{"household_id": hh.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "accounts")
	require.Equal(t, float64(0), body["imported"])
}

func TestHandleSync_QueryParamsOverrideBody(t *testing.T) {
	engine := &fakeEngine{userID: 1}
	h := newTestServer(engine, nil)
	hh := uuid.Must(uuid.NewV4())

	rec := doJSON(t, h, http.MethodPost, "/sync?mode=setup", map[string]any{
		"mode":         "auto",
		"household_id": hh.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "user_id")
}

func TestHandleSync_ErrorMapping(t *testing.T) {
	hh := uuid.Must(uuid.NewV4())
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"no connection", errs.ErrNoConnection, http.StatusBadRequest},
		{"no default category", errs.ErrNoDefaultCategory, http.StatusBadRequest},
		{"api key missing", service.ErrAPIKeyMissing, http.StatusBadRequest},
		{"upstream failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(&fakeEngine{syncErr: tc.err}, nil)
			rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{"household_id": hh.String()})
			require.Equal(t, tc.code, rec.Code)
			require.Equal(t, false, decodeBody(t, rec)["ok"])
		})
	}
}

func TestAuthorize_NoTokenRejected(t *testing.T) {
	h := newTestServer(&fakeEngine{}, []byte("trigger-secret"))
	hh := uuid.Must(uuid.NewV4())
	rec := doJSON(t, h, http.MethodPost, "/sync", map[string]any{"household_id": hh.String()})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorize_ValidTokenAccepted(t *testing.T) {
	key := []byte("trigger-secret")
	h := newTestServer(&fakeEngine{res: service.SyncResult{DateFrom: defaultFloor}}, key)
	hh := uuid.Must(uuid.NewV4())

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(key)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/sync?household_id="+hh.String(), nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorize_WrongKeyRejected(t *testing.T) {
	h := newTestServer(&fakeEngine{}, []byte("trigger-secret"))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
