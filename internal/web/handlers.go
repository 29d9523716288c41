package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/campus-foodmap/foodmap/internal/authapi"
	"github.com/campus-foodmap/foodmap/internal/frontend"
	"github.com/campus-foodmap/foodmap/internal/guard"
	"github.com/campus-foodmap/foodmap/internal/httputil"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/restaurants"
	"github.com/campus-foodmap/foodmap/internal/session"
)

const (
	pathHome      = "/"
	pathDashboard = "/dashboard"
	pathAdmin     = "/admin"
	pathList      = "/list"
)

// Flash messages.
const (
	flashLoggedIn       = "로그인 성공!"
	flashRegistered     = "회원가입 성공!"
	flashLoggedOut      = "로그아웃되었습니다."
	flashSubmitted      = "맛집 제보가 접수되었습니다!"
	flashRoleUpdated    = "사용자 권한이 변경되었습니다."
	flashUserDeleted    = "사용자가 삭제되었습니다."
	flashOAuthFailed    = "소셜 로그인에 실패했습니다."
	flashOAuthConfigErr = "로그인 설정에 문제가 있습니다."
)

func (srv *Server) redirect(w http.ResponseWriter, r *http.Request, to, flash string) error {
	if flash != "" {
		srv.flash.Set(w, r, flash)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
	return nil
}

// upstreamError maps a failed API call to the status shown to the user.
func upstreamError(err error) error {
	switch {
	case errors.Is(err, restaurants.ErrNotFound):
		return httputil.NewError(http.StatusNotFound, err)
	case authapi.StatusCode(err) == http.StatusForbidden:
		return httputil.NewError(http.StatusForbidden, err)
	case authapi.StatusCode(err) == http.StatusNotFound:
		return httputil.NewError(http.StatusNotFound, err)
	default:
		return httputil.NewError(http.StatusBadGateway, err)
	}
}

func (srv *Server) sessionJSON(w http.ResponseWriter, r *http.Request) error {
	s := session.FromContext(r.Context()).Snapshot()
	httputil.RenderJSON(w, http.StatusOK, struct {
		session.Session
		State   string `json:"state"`
		IsAdmin bool   `json:"isAdmin"`
	}{s, s.State().String(), s.IsAdmin()})
	return nil
}

func (srv *Server) home(w http.ResponseWriter, r *http.Request) error {
	srv.renderer.Render(w, r, http.StatusOK, frontend.PageHome, srv.renderer.Base(r))
	return nil
}

func (srv *Server) list(w http.ResponseWriter, r *http.Request) error {
	rs, err := srv.restaurants.List(r.Context())
	if err != nil {
		return upstreamError(err)
	}
	p := srv.renderer.Base(r)
	p.Title = "맛집 목록"
	p.Data = frontend.RestaurantsData{Heading: p.Title, Restaurants: rs}
	srv.renderer.Render(w, r, http.StatusOK, frontend.PageList, p)
	return nil
}

func (srv *Server) popular(w http.ResponseWriter, r *http.Request) error {
	rs, err := srv.restaurants.Popular(r.Context())
	if err != nil {
		return upstreamError(err)
	}
	p := srv.renderer.Base(r)
	p.Title = "인기 맛집"
	p.Data = frontend.RestaurantsData{Heading: p.Title, Restaurants: rs}
	srv.renderer.Render(w, r, http.StatusOK, frontend.PagePopular, p)
	return nil
}

func (srv *Server) detail(w http.ResponseWriter, r *http.Request) error {
	rest, err := srv.restaurants.Get(r.Context(), restaurants.ID(mux.Vars(r)["id"]))
	if err != nil {
		return upstreamError(err)
	}
	p := srv.renderer.Base(r)
	p.Title = rest.Name
	p.Data = frontend.DetailData{Restaurant: rest}
	srv.renderer.Render(w, r, http.StatusOK, frontend.PageDetail, p)
	return nil
}

func (srv *Server) renderForm(w http.ResponseWriter, r *http.Request, page, title string, data frontend.FormData) {
	p := srv.renderer.Base(r)
	p.Title = title
	if data.Values == nil {
		data.Values = map[string]string{}
	}
	if data.Errors == nil {
		data.Errors = map[string]string{}
	}
	p.Data = data
	srv.renderer.Render(w, r, http.StatusOK, page, p)
}

func (srv *Server) loginPage(w http.ResponseWriter, r *http.Request) error {
	if session.FromContext(r.Context()).Snapshot().IsAuthenticated {
		return srv.redirect(w, r, pathDashboard, "")
	}
	srv.renderForm(w, r, frontend.PageLogin, "로그인", frontend.FormData{
		From:      r.URL.Query().Get("from"),
		Providers: authapi.Providers,
	})
	return nil
}

func (srv *Server) login(w http.ResponseWriter, r *http.Request) error {
	form, errs := parseLoginForm(r)
	data := frontend.FormData{
		Values:    map[string]string{"email": form.Email},
		From:      form.From,
		Providers: authapi.Providers,
	}
	if len(errs) > 0 {
		data.Errors = errs
		srv.renderForm(w, r, frontend.PageLogin, "로그인", data)
		return nil
	}

	res := session.FromContext(r.Context()).Login(r.Context(), form.Email, form.Password)
	if !res.Success {
		data.Message = res.Message
		srv.renderForm(w, r, frontend.PageLogin, "로그인", data)
		return nil
	}
	to := pathDashboard
	if form.From != "" {
		to = guard.ReturnTo(form.From)
	}
	return srv.redirect(w, r, to, flashLoggedIn)
}

func (srv *Server) registerPage(w http.ResponseWriter, r *http.Request) error {
	if session.FromContext(r.Context()).Snapshot().IsAuthenticated {
		return srv.redirect(w, r, pathDashboard, "")
	}
	srv.renderForm(w, r, frontend.PageRegister, "회원가입", frontend.FormData{Providers: authapi.Providers})
	return nil
}

func (srv *Server) register(w http.ResponseWriter, r *http.Request) error {
	form, errs := parseRegisterForm(r)
	data := frontend.FormData{
		Values:    map[string]string{"name": form.Name, "email": form.Email},
		Providers: authapi.Providers,
	}
	if len(errs) > 0 {
		data.Errors = errs
		srv.renderForm(w, r, frontend.PageRegister, "회원가입", data)
		return nil
	}

	res := session.FromContext(r.Context()).Register(r.Context(), form.Name, form.Email, form.Password)
	if !res.Success {
		data.Message = res.Message
		srv.renderForm(w, r, frontend.PageRegister, "회원가입", data)
		return nil
	}
	return srv.redirect(w, r, pathDashboard, flashRegistered)
}

func (srv *Server) logout(w http.ResponseWriter, r *http.Request) error {
	session.FromContext(r.Context()).Logout(r.Context())
	return srv.redirect(w, r, pathHome, flashLoggedOut)
}

func (srv *Server) oauthStart(w http.ResponseWriter, r *http.Request) error {
	provider, err := authapi.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		return httputil.NewError(http.StatusNotFound, err)
	}
	u, err := srv.auth.AuthURL(r.Context(), provider)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("provider", string(provider)).Msg("web: oauth setup failed")
		return srv.redirect(w, r, srv.loginPath, flashOAuthConfigErr)
	}
	http.Redirect(w, r, u, http.StatusFound)
	return nil
}

func (srv *Server) oauthCallback(w http.ResponseWriter, r *http.Request) error {
	provider, err := authapi.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		return httputil.NewError(http.StatusNotFound, err)
	}
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		log.Ctx(r.Context()).Warn().Str("provider", string(provider)).Str("error", msg).Msg("web: oauth provider returned an error")
		return srv.redirect(w, r, srv.loginPath, flashOAuthFailed)
	}

	res, err := srv.auth.HandleOAuthCallback(r.Context(), provider, q.Get("code"))
	if err != nil || !res.Success {
		log.Ctx(r.Context()).Warn().Err(err).Str("provider", string(provider)).Msg("web: oauth callback failed")
		msg := flashOAuthFailed
		if m := authapi.Message(err); m != "" {
			msg = m
		}
		return srv.redirect(w, r, srv.loginPath, msg)
	}
	session.FromContext(r.Context()).Refresh(r.Context())
	return srv.redirect(w, r, pathDashboard, flashLoggedIn)
}

func (srv *Server) dashboard(w http.ResponseWriter, r *http.Request) error {
	p := srv.renderer.Base(r)
	p.Title = "대시보드"
	srv.renderer.Render(w, r, http.StatusOK, frontend.PageDashboard, p)
	return nil
}

func (srv *Server) submitPage(w http.ResponseWriter, r *http.Request) error {
	srv.renderForm(w, r, frontend.PageSubmit, "맛집 제보", frontend.FormData{})
	return nil
}

func (srv *Server) submit(w http.ResponseWriter, r *http.Request) error {
	sub, values, errs := parseSubmissionForm(r)
	data := frontend.FormData{Values: values}
	if len(errs) > 0 {
		data.Errors = errs
		srv.renderForm(w, r, frontend.PageSubmit, "맛집 제보", data)
		return nil
	}
	if u := session.FromContext(r.Context()).Snapshot().User; u != nil {
		sub.SubmitterName, sub.SubmitterEmail = u.Name, u.Email
	}

	msg, err := srv.restaurants.Submit(r.Context(), sub)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("web: submission failed")
		data.Message = "제보 중 오류가 발생했습니다."
		srv.renderForm(w, r, frontend.PageSubmit, "맛집 제보", data)
		return nil
	}
	if msg == "" {
		msg = flashSubmitted
	}
	return srv.redirect(w, r, pathList, msg)
}

func (srv *Server) admin(w http.ResponseWriter, r *http.Request) error {
	users, err := srv.auth.Admin().ListUsers(r.Context())
	if err != nil {
		return upstreamError(err)
	}
	p := srv.renderer.Base(r)
	p.Title = "관리자"
	p.Data = frontend.AdminData{Users: users}
	srv.renderer.Render(w, r, http.StatusOK, frontend.PageAdmin, p)
	return nil
}

func (srv *Server) adminUpdateRole(w http.ResponseWriter, r *http.Request) error {
	id := authapi.UserID(mux.Vars(r)["id"])
	userType := authapi.UserType(r.PostFormValue("userType"))
	if userType != authapi.UserTypeUser && userType != authapi.UserTypeAdmin {
		return httputil.NewError(http.StatusBadRequest, errors.New("unknown user type"))
	}
	if err := srv.auth.Admin().UpdateUserType(r.Context(), id, userType); err != nil {
		return upstreamError(err)
	}
	return srv.redirect(w, r, pathAdmin, flashRoleUpdated)
}

func (srv *Server) adminDelete(w http.ResponseWriter, r *http.Request) error {
	id := authapi.UserID(mux.Vars(r)["id"])
	if u := session.FromContext(r.Context()).Snapshot().User; u != nil && u.ID == id {
		return httputil.NewError(http.StatusBadRequest, errors.New("cannot delete the signed in account"))
	}
	if err := srv.auth.Admin().DeleteUser(r.Context(), id); err != nil {
		return upstreamError(err)
	}
	return srv.redirect(w, r, pathAdmin, flashUserDeleted)
}

func (srv *Server) submissions(w http.ResponseWriter, r *http.Request) error {
	subs, err := srv.restaurants.Submissions(r.Context())
	if err != nil {
		return upstreamError(err)
	}
	p := srv.renderer.Base(r)
	p.Title = "맛집 제보 목록"
	p.Data = frontend.SubmissionsData{Submissions: subs}
	srv.renderer.Render(w, r, http.StatusOK, frontend.PageSubmissions, p)
	return nil
}
