package web

import (
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-foodmap/foodmap/internal/authapi"
	"github.com/campus-foodmap/foodmap/internal/restaurants"
	"github.com/campus-foodmap/foodmap/internal/session"
)

const sessionCookie = "connect.sid"

// fakeAPI stands in for the remote food-map API and identity service.
type fakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	users   map[string]authapi.User
	session string
	expired bool
	calls   []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{users: map[string]authapi.User{
		"alice@example.com": {ID: "1", Name: "Alice", Email: "alice@example.com", UserType: authapi.UserTypeUser},
		"root@example.com":  {ID: "2", Name: "Root", Email: "root@example.com", UserType: authapi.UserTypeAdmin},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		u, ok := api.user(body.Email)
		if !ok || body.Password != "correctpw" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "이메일 또는 비밀번호가 올바르지 않습니다."})
			return
		}
		api.login(w, u)
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Name, Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := api.user(body.Email); ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "이미 존재하는 이메일입니다."})
			return
		}
		u := authapi.User{ID: "3", Name: body.Name, Email: body.Email, UserType: authapi.UserTypeUser}
		api.mu.Lock()
		api.users[u.Email] = u
		api.mu.Unlock()
		api.login(w, u)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		api.mu.Lock()
		api.session = ""
		api.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		u, ok := api.current(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "로그인이 필요합니다."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
	})
	mux.HandleFunc("GET /api/auth/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := api.current(r); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "세션이 만료되었습니다."})
			return
		}
		api.mu.Lock()
		users := make([]authapi.User, 0, len(api.users))
		for _, u := range api.users {
			users = append(users, u)
		}
		api.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
	})
	mux.HandleFunc("PUT /api/auth/admin/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("DELETE /api/auth/admin/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("GET /api/auth/google/url", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": "https://accounts.example.com/o/oauth2"})
	})
	mux.HandleFunc("GET /api/auth/naver/url", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
	})
	mux.HandleFunc("POST /api/auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Code string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Code == "stale" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "세션이 만료되었습니다."})
			return
		}
		if body.Code != "good" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "유효하지 않은 코드입니다."})
			return
		}
		u, _ := api.user("alice@example.com")
		api.login(w, u)
	})
	mux.HandleFunc("GET /api/restaurants", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
			{"id": 1, "name": "한식당", "category": "한식", "location": "정문"},
		}})
	})
	mux.HandleFunc("GET /api/restaurants/popular", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "한식당", "category": "한식", "location": "정문"}})
	})
	mux.HandleFunc("GET /api/restaurants/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "맛집을 찾을 수 없습니다."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"id": 1, "name": "한식당", "category": "한식", "location": "정문", "recommendedMenu": []string{"비빔밥", "김치찌개"},
		}})
	})
	mux.HandleFunc("GET /api/submissions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
			{"_id": "s1", "restaurantName": "새 식당", "category": "중식", "location": "후문", "status": "pending"},
		}})
	})
	mux.HandleFunc("POST /api/submissions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "제보가 접수되었습니다."})
	})

	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.calls = append(api.calls, r.Method+" "+r.URL.Path)
		api.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.Close)
	return api
}

func (api *fakeAPI) user(email string) (authapi.User, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	u, ok := api.users[email]
	return u, ok
}

func (api *fakeAPI) login(w http.ResponseWriter, u authapi.User) {
	api.mu.Lock()
	api.session = u.Email
	api.expired = false
	api.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: u.Email, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (api *fakeAPI) current(r *http.Request) (authapi.User, bool) {
	c, err := r.Cookie(sessionCookie)
	api.mu.Lock()
	defer api.mu.Unlock()
	if err != nil || api.expired || api.session == "" || c.Value != api.session {
		return authapi.User{}, false
	}
	u, ok := api.users[c.Value]
	return u, ok
}

// expire drops the server side session, as if it timed out.
func (api *fakeAPI) expire() {
	api.mu.Lock()
	api.expired = true
	api.mu.Unlock()
}

func (api *fakeAPI) Calls() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]string(nil), api.calls...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	api    *fakeAPI
	store  *session.Store
	server *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeAPI(t)

	auth, err := authapi.New(api.URL + "/api/auth")
	require.NoError(t, err)
	rc, err := restaurants.New(api.URL, restaurants.WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	store := session.New(auth)

	srv, err := New(store, auth, rc, Options{CookieSecret: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)
	server := httptest.NewServer(srv)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{api: api, store: store, server: server, client: client}
}

type response struct {
	Status   int
	Location string
	Header   http.Header
	Body     string
}

func (h *harness) get(t *testing.T, path string) response {
	t.Helper()
	res, err := h.client.Get(h.server.URL + path)
	require.NoError(t, err)
	return readResponse(t, res)
}

var csrfRE = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// csrfToken loads a page and returns the token embedded in its forms.
func (h *harness) csrfToken(t *testing.T) string {
	t.Helper()
	res := h.get(t, "/register")
	m := csrfRE.FindStringSubmatch(res.Body)
	if m == nil {
		res = h.get(t, "/dashboard")
		m = csrfRE.FindStringSubmatch(res.Body)
	}
	require.NotNil(t, m, "no csrf token in page")
	return html.UnescapeString(m[1])
}

func (h *harness) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get(csrfFormField) == "" {
		form.Set(csrfFormField, h.csrfToken(t))
	}
	res, err := h.client.PostForm(h.server.URL+path, form)
	require.NoError(t, err)
	return readResponse(t, res)
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	h.store.Initialize(t.Context())
	res := h.post(t, "/login", url.Values{"email": {email}, "password": {"correctpw"}})
	require.Equal(t, http.StatusSeeOther, res.Status, res.Body)
	require.True(t, h.store.Snapshot().IsAuthenticated)
}

func readResponse(t *testing.T, res *http.Response) response {
	t.Helper()
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return response{Status: res.StatusCode, Location: res.Header.Get("Location"), Header: res.Header, Body: string(b)}
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil, nil, Options{})
	assert.Error(t, err)

	auth, err := authapi.New("http://example.com/api/auth")
	require.NoError(t, err)
	rc, err := restaurants.New("http://example.com")
	require.NoError(t, err)
	_, err = New(session.New(auth), auth, rc, Options{})
	assert.Error(t, err, "cookie secret is required")
}

func TestServer_PublicPages(t *testing.T) {
	h := newHarness(t)
	h.store.Initialize(t.Context())

	for _, tc := range []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "아주대 주변 맛집 지도"},
		{"/list", http.StatusOK, "한식당"},
		{"/popular", http.StatusOK, "인기 맛집"},
		{"/restaurant/1", http.StatusOK, "비빔밥, 김치찌개"},
		{"/restaurant/99", http.StatusNotFound, "페이지를 찾을 수 없습니다"},
		{"/login", http.StatusOK, "계정이 없으신가요?"},
		{"/register", http.StatusOK, "이미 계정이 있으신가요?"},
		{"/does/not/exist", http.StatusNotFound, "페이지를 찾을 수 없습니다"},
		{"/healthz", http.StatusOK, "OK"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			res := h.get(t, tc.path)
			assert.Equal(t, tc.wantStatus, res.Status)
			assert.Contains(t, res.Body, tc.wantBody)
			assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
			assert.NotEmpty(t, res.Header.Get("X-Request-Id"))
		})
	}
}

func TestServer_SessionJSON(t *testing.T) {
	h := newHarness(t)

	res := h.get(t, "/.foodmap/session")
	require.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `{"user":null,"isAuthenticated":false,"isLoading":true,"state":"unknown","isAdmin":false}`, res.Body)

	h.login(t, "root@example.com")
	res = h.get(t, "/.foodmap/session")
	var got struct {
		State   string `json:"state"`
		IsAdmin bool   `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &got))
	assert.Equal(t, "authenticated", got.State)
	assert.True(t, got.IsAdmin)
}

func TestServer_CSRF(t *testing.T) {
	h := newHarness(t)
	h.store.Initialize(t.Context())

	res, err := h.client.PostForm(h.server.URL+"/login", url.Values{"email": {"alice@example.com"}, "password": {"correctpw"}})
	require.NoError(t, err)
	r := readResponse(t, res)
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.False(t, h.store.Snapshot().IsAuthenticated)

	r = h.post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"correctpw"}, csrfFormField: {"bm90IHRoZSB0b2tlbg=="}})
	assert.Equal(t, http.StatusForbidden, r.Status)
}

func TestServer_Login(t *testing.T) {
	t.Run("success returns to from", func(t *testing.T) {
		h := newHarness(t)
		h.store.Initialize(t.Context())

		res := h.post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"correctpw"}, "from": {"/submit"}})
		assert.Equal(t, http.StatusSeeOther, res.Status)
		assert.Equal(t, "/submit", res.Location)

		page := h.get(t, "/submit")
		assert.Equal(t, http.StatusOK, page.Status)
		assert.Contains(t, page.Body, "로그인 성공!", "flash shown once")
		page = h.get(t, "/submit")
		assert.NotContains(t, page.Body, "로그인 성공!")
	})
	t.Run("defaults to dashboard and ignores foreign from", func(t *testing.T) {
		h := newHarness(t)
		h.store.Initialize(t.Context())
		res := h.post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"correctpw"}, "from": {"https://evil.example.com"}})
		assert.Equal(t, "/", res.Location)

		h2 := newHarness(t)
		h2.store.Initialize(t.Context())
		res = h2.post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"correctpw"}})
		assert.Equal(t, "/dashboard", res.Location)
	})
	t.Run("wrong password", func(t *testing.T) {
		h := newHarness(t)
		h.store.Initialize(t.Context())
		res := h.post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrongpw"}})
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, res.Body, "이메일 또는 비밀번호가 올바르지 않습니다.")
		assert.Contains(t, res.Body, `value="alice@example.com"`)
		assert.False(t, h.store.Snapshot().IsAuthenticated)
		assert.Empty(t, res.Location, "no navigation on a rejected login")
	})
	t.Run("validation", func(t *testing.T) {
		h := newHarness(t)
		h.store.Initialize(t.Context())
		res := h.post(t, "/login", url.Values{"email": {"not-an-email"}, "password": {"123"}})
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, res.Body, msgEmailInvalid)
		assert.Contains(t, res.Body, msgPasswordShort)
		assert.NotContains(t, h.api.Calls(), "POST /api/auth/login")
	})
	t.Run("logged in users skip the form", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "alice@example.com")
		assert.Equal(t, "/dashboard", h.get(t, "/login").Location)
		assert.Equal(t, "/dashboard", h.get(t, "/register").Location)
	})
}

func TestServer_Register(t *testing.T) {
	h := newHarness(t)
	h.store.Initialize(t.Context())

	res := h.post(t, "/register", url.Values{
		"name": {"B"}, "email": {"bob@example.com"}, "password": {"secret1"}, "confirmPassword": {"secret2"},
	})
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, msgNameShort)
	assert.Contains(t, res.Body, msgConfirmMismatch)

	res = h.post(t, "/register", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "password": {"secret1"}, "confirmPassword": {"secret1"},
	})
	assert.Contains(t, res.Body, "이미 존재하는 이메일입니다.")

	res = h.post(t, "/register", url.Values{
		"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"secret1"}, "confirmPassword": {"secret1"},
	})
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/dashboard", res.Location)
	assert.Equal(t, "Bob", h.store.Snapshot().User.Name)
}

func TestServer_Logout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice@example.com")

	res := h.post(t, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/", res.Location)
	assert.Equal(t, session.Session{}, h.store.Snapshot())
}

func TestServer_Guards(t *testing.T) {
	t.Run("loading", func(t *testing.T) {
		h := newHarness(t)
		res := h.get(t, "/dashboard")
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Empty(t, res.Location)
		assert.Equal(t, "1", res.Header.Get("Refresh"))
		assert.Contains(t, res.Body, "권한을 확인하는 중...")
		assert.NotContains(t, res.Body, "계정 정보")
	})
	t.Run("anonymous", func(t *testing.T) {
		h := newHarness(t)
		h.store.Initialize(t.Context())
		for path, want := range map[string]string{
			"/dashboard":   "/login?from=%2Fdashboard",
			"/submit":      "/login?from=%2Fsubmit",
			"/admin":       "/login?from=%2Fadmin",
			"/submissions": "/login?from=%2Fsubmissions",
		} {
			res := h.get(t, path)
			assert.Equal(t, http.StatusFound, res.Status, path)
			assert.Equal(t, want, res.Location, path)
		}
	})
	t.Run("user", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "alice@example.com")

		res := h.get(t, "/dashboard")
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, res.Body, "일반 사용자")

		for _, path := range []string{"/admin", "/submissions"} {
			res = h.get(t, path)
			assert.Equal(t, http.StatusForbidden, res.Status, path)
			assert.Empty(t, res.Location)
			assert.Contains(t, res.Body, "접근 권한이 없습니다")
		}
		assert.NotContains(t, h.api.Calls(), "GET /api/auth/admin/users")
	})
	t.Run("admin", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "root@example.com")

		res := h.get(t, "/admin")
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, res.Body, "alice@example.com")

		res = h.get(t, "/submissions")
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, res.Body, "새 식당")
	})
}

func TestServer_SessionExpiry(t *testing.T) {
	h := newHarness(t)
	h.login(t, "root@example.com")
	h.api.expire()

	res := h.get(t, "/admin")
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/login", res.Location)
	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated, "reload re-checked the session")
	assert.False(t, snap.IsLoading)

	res = h.get(t, "/login")
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestServer_Admin(t *testing.T) {
	h := newHarness(t)
	h.login(t, "root@example.com")

	res := h.post(t, "/admin/users/1/role", url.Values{"userType": {"admin"}})
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/admin", res.Location)
	assert.Contains(t, h.api.Calls(), "PUT /api/auth/admin/users/1")

	res = h.post(t, "/admin/users/1/role", url.Values{"userType": {"superuser"}})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = h.post(t, "/admin/users/1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Contains(t, h.api.Calls(), "DELETE /api/auth/admin/users/1")

	res = h.post(t, "/admin/users/2/delete", nil)
	assert.Equal(t, http.StatusBadRequest, res.Status, "cannot delete yourself")
}

func TestServer_Submit(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice@example.com")

	res := h.post(t, "/submit", url.Values{"restaurantName": {"새 식당"}})
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Body, msgFieldRequired)

	res = h.post(t, "/submit", url.Values{
		"restaurantName": {"새 식당"}, "category": {"중식"}, "location": {"후문"}, "recommendedMenu": {"짜장면, 짬뽕"},
	})
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/list", res.Location)
	assert.Contains(t, h.get(t, "/list").Body, "제보가 접수되었습니다.")
}

func TestServer_OAuth(t *testing.T) {
	h := newHarness(t)
	h.store.Initialize(t.Context())

	res := h.get(t, "/auth/google")
	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "https://accounts.example.com/o/oauth2", res.Location)

	res = h.get(t, "/auth/naver")
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/login", res.Location)

	res = h.get(t, "/auth/kakao")
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = h.get(t, "/auth/google/callback?code=bad")
	assert.Equal(t, "/login", res.Location)
	assert.Contains(t, h.get(t, "/login").Body, "유효하지 않은 코드입니다.")
	assert.False(t, h.store.Snapshot().IsAuthenticated)

	res = h.get(t, "/auth/google/callback?error=access_denied")
	assert.Equal(t, "/login", res.Location)

	res = h.get(t, "/auth/google/callback?code=good")
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/dashboard", res.Location)
	assert.True(t, h.store.Snapshot().IsAuthenticated, "session refreshed after the callback")
	assert.True(t, strings.HasPrefix(h.store.Snapshot().User.Email, "alice"))
}

func TestServer_OAuthCallbackExpired(t *testing.T) {
	h := newHarness(t)
	h.store.Initialize(t.Context())

	res := h.get(t, "/auth/google/callback?code=stale")
	assert.Equal(t, http.StatusSeeOther, res.Status)
	assert.Equal(t, "/login", res.Location)
	assert.Equal(t, 1, strings.Count(res.Body, "See Other"), "a single redirect is written")
	assert.Contains(t, h.get(t, "/login").Body, "세션이 만료되었습니다.")
	assert.False(t, h.store.Snapshot().IsAuthenticated)
}
