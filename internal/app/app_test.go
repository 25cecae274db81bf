package app

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/middleware"
	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/service"
	"github.com/iliyamo/concert-calendar/internal/testutil"
)

type testApp struct {
	e  *echo.Echo
	db *sql.DB
}

func newTestApp(t *testing.T, mode config.Mode, rdb *redis.Client) *testApp {
	t.Helper()
	db := testutil.OpenDB(t)
	e, err := New(Deps{
		Config: config.Config{
			Env:          "test",
			Mode:         mode,
			JWTSecret:    "test-secret",
			AccessTTLMin: 30,
			BcryptCost:   bcrypt.MinCost,
		},
		Cache: config.CacheConfig{
			Enabled:     true,
			Methods:     map[string]bool{http.MethodGet: true},
			TTL:         time.Minute,
			KeyStrategy: "route_query",
			Prefix:      "calendar",
		},
		DB:    db,
		Redis: rdb,
		Log:   logger.Discard(),
	})
	require.NoError(t, err)
	return &testApp{e: e, db: db}
}

func (a *testApp) do(method, target string, form url.Values, hdr map[string]string) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

var jsonHdr = map[string]string{echo.HeaderAccept: echo.MIMEApplicationJSON}

func withJSON(extra map[string]string) map[string]string {
	out := map[string]string{echo.HeaderAccept: echo.MIMEApplicationJSON}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func addConcertForm() url.Values {
	return url.Values{
		"title":           {"Summer Fest"},
		"artist":          {"Band A"},
		"date":            {"2024-07-15"},
		"time":            {"19:00"},
		"venue":           {"Arena"},
		"description":     {"Open air"},
		"price":           {"50.00"},
		"available_seats": {"5"},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestOpenModeFlow(t *testing.T) {
	_, rdb := newRedis(t)
	a := newTestApp(t, config.ModeOpen, rdb)

	rec := a.do(http.MethodPost, "/add_concert", addConcertForm(), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	id := rec.Header().Get("X-Concert-ID")
	require.NotEmpty(t, id)

	// July shows the concert on the 15th, June does not.
	rec = a.do(http.MethodGet, "/?year=2024&month=7", nil, jsonHdr)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.CalendarPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.ConcertsByDay[15], 1)
	assert.Equal(t, 5, page.ConcertsByDay[15][0].AvailableSeats)
	assert.Equal(t, "7月", page.MonthLabel)

	rec = a.do(http.MethodGet, "/?year=2024&month=6", nil, jsonHdr)
	var june service.CalendarPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &june))
	assert.Empty(t, june.ConcertsByDay)

	// cached until a booking invalidates it
	rec = a.do(http.MethodGet, "/?year=2024&month=7", nil, jsonHdr)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	booking := url.Values{"user_name": {"Alice"}, "email": {"alice@example.com"}, "quantity": {"3"}}
	rec = a.do(http.MethodPost, "/book_ticket/"+id, booking, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/concert/"+id, rec.Header().Get(echo.HeaderLocation))
	assert.NotEmpty(t, rec.Header().Get("X-Ticket-Reference"))

	rec = a.do(http.MethodGet, "/?year=2024&month=7", nil, jsonHdr)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	var after service.CalendarPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, 2, after.ConcertsByDay[15][0].AvailableSeats)

	rec = a.do(http.MethodPost, "/book_ticket/"+id, booking, jsonHdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_capacity", decodeError(t, rec).Error)

	rec = a.do(http.MethodGet, "/concert/"+id, nil, jsonHdr)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Concert model.Concert  `json:"concert"`
		Tickets []model.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 2, detail.Concert.AvailableSeats)
	require.Len(t, detail.Tickets, 1)
	assert.Equal(t, 3, detail.Tickets[0].Quantity)
	assert.Equal(t, int64(15000), detail.Tickets[0].TotalPriceCents)
}

func TestOpenModeErrors(t *testing.T) {
	a := newTestApp(t, config.ModeOpen, nil)
	rec := a.do(http.MethodPost, "/add_concert", addConcertForm(), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	id := rec.Header().Get("X-Concert-ID")

	rec = a.do(http.MethodGet, "/concert/999", nil, jsonHdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error)

	rec = a.do(http.MethodGet, "/concert/abc", nil, jsonHdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/book_ticket/999",
		url.Values{"user_name": {"A"}, "email": {"a@example.com"}, "quantity": {"1"}}, jsonHdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/book_ticket/"+id,
		url.Values{"user_name": {"A"}, "email": {"a@example.com"}, "quantity": {"0"}}, jsonHdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error)

	rec = a.do(http.MethodPost, "/book_ticket/"+id, url.Values{"quantity": {"1"}}, jsonHdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a missing concert wins over a malformed quantity
	rec = a.do(http.MethodPost, "/book_ticket/999",
		url.Values{"user_name": {"A"}, "email": {"a@example.com"}, "quantity": {"three"}}, jsonHdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/book_ticket/"+id,
		url.Values{"user_name": {"A"}, "email": {"a@example.com"}, "quantity": {"three"}}, jsonHdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error)

	bad := addConcertForm()
	bad.Set("date", "07/15/2024")
	rec = a.do(http.MethodPost, "/add_concert", bad, jsonHdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "date")

	// auth routes do not exist in open mode
	rec = a.do(http.MethodPost, "/token", url.Values{"username": {"a"}, "password": {"b"}}, jsonHdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTMLPages(t *testing.T) {
	a := newTestApp(t, config.ModeOpen, nil)
	rec := a.do(http.MethodPost, "/add_concert", addConcertForm(), nil)
	id := rec.Header().Get("X-Concert-ID")

	rec = a.do(http.MethodGet, "/?year=2024&month=7", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	assert.Contains(t, rec.Body.String(), "Summer Fest")

	rec = a.do(http.MethodGet, "/concert/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/book_ticket/`+id+`"`)

	rec = a.do(http.MethodGet, "/add_concert", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/concert/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")

	rec = a.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, "ok", rec.Body.String())
	rec = a.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthModeFlow(t *testing.T) {
	a := newTestApp(t, config.ModeAuth, nil)
	rec := a.do(http.MethodPost, "/add_concert", addConcertForm(), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	id := rec.Header().Get("X-Concert-ID")

	register := func(username, email string) *httptest.ResponseRecorder {
		return a.do(http.MethodPost, "/register",
			url.Values{"username": {username}, "email": {email}, "password": {"s3cret"}}, nil)
	}
	rec = register("alice", "alice@example.com")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	require.Equal(t, http.StatusSeeOther, register("bob", "bob@example.com").Code)

	rec = a.do(http.MethodPost, "/register",
		url.Values{"username": {"alice"}, "email": {"x@example.com"}, "password": {"pw"}}, jsonHdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Error)

	login := func(username, password string) *httptest.ResponseRecorder {
		return a.do(http.MethodPost, "/token",
			url.Values{"username": {username}, "password": {password}}, jsonHdr)
	}
	rec = login("alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	token := func(username string) string {
		rec := login(username, "s3cret")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tok struct {
			AccessToken string    `json:"access_token"`
			TokenType   string    `json:"token_type"`
			ExpiresAt   time.Time `json:"expires_at"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
		assert.Equal(t, "bearer", tok.TokenType)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.ExpiresAt, 5*time.Second)
		return tok.AccessToken
	}
	aliceTok, bobTok := token("alice"), token("bob")
	aliceAuth := map[string]string{"Authorization": "Bearer " + aliceTok}
	bobAuth := map[string]string{"Authorization": "Bearer " + bobTok}

	// booking needs a token
	rec = a.do(http.MethodPost, "/book_ticket/"+id, url.Values{"quantity": {"1"}}, jsonHdr)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodPost, "/book_ticket/"+id, url.Values{"quantity": {"1"}},
		withJSON(map[string]string{"Authorization": "Bearer garbage"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/book_ticket/"+id, url.Values{"quantity": {"2"}}, aliceAuth)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/book_ticket/"+id, url.Values{"quantity": {"1"}}, bobAuth)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	detailTickets := func(hdr map[string]string) []model.Ticket {
		rec := a.do(http.MethodGet, "/concert/"+id, nil, withJSON(hdr))
		require.Equal(t, http.StatusOK, rec.Code)
		var detail struct {
			Tickets []model.Ticket `json:"tickets"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
		return detail.Tickets
	}
	mine := detailTickets(aliceAuth)
	require.Len(t, mine, 1)
	assert.Equal(t, 2, mine[0].Quantity)
	assert.Equal(t, "alice", mine[0].UserName)
	assert.Len(t, detailTickets(bobAuth), 1)
	assert.Empty(t, detailTickets(nil))

	rec = a.do(http.MethodGet, "/users/me", nil, withJSON(aliceAuth))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(http.MethodGet, "/users/me", nil, jsonHdr)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodGet, "/register", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenFormSetsCookieAndRedirects(t *testing.T) {
	a := newTestApp(t, config.ModeAuth, nil)
	rec := a.do(http.MethodPost, "/register",
		url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password": {"s3cret"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = a.do(http.MethodPost, "/token",
		url.Values{"username": {"alice"}, "password": {"s3cret"}, "next": {"/"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AccessTokenCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// external redirect targets are ignored
	rec = a.do(http.MethodPost, "/token",
		url.Values{"username": {"alice"}, "password": {"s3cret"}, "next": {"//evil.example"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	a.e.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}
