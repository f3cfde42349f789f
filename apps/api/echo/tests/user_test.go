package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/an-shikaSingh/campus-connect-V0/apps/api/echo"
	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	emailsvc "github.com/an-shikaSingh/campus-connect-V0/services/email"
	"github.com/an-shikaSingh/campus-connect-V0/testutil"
)

func TestUserAPI_signup(t *testing.T) {
	app := setup(t)
	ada := app.CreateUser(t, user.TypeStudent)

	newUser := func(email, userType string) []byte {
		return marchallObj(t, user.NewUser{
			FirstName:       "Grace",
			LastName:        "Hopper",
			Email:           email,
			Password:        testutil.DefaultPassword,
			PasswordConfirm: testutil.DefaultPassword,
			UserType:        userType,
		})
	}

	app.run(t, []httpTest{
		{
			name:     "organizer",
			method:   http.MethodPost,
			path:     "/v1/users/signup",
			body:     newUser("grace@test.com", user.TypeOrganizer),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"user_type": "only students can sign up"}),
		},
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     "/v1/users/signup",
			body:     newUser(ada.Email, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/users/signup",
			body:     []byte(`{"email": "grace@test.com"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	req, rec := newRequest(http.MethodPost, "/v1/users/signup", newUser(" Grace@Test.com ", ""))
	app.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SignupResponse
	unmarshal(t, rec, &resp)
	assert.Equal(t, "grace@test.com", resp.User.Email)
	assert.Equal(t, user.TypeStudent, resp.User.UserType)
	assert.NotEmpty(t, resp.Token)

	// the token works right away
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
	app.do(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserAPI_login(t *testing.T) {
	app := setup(t)
	ada := app.CreateUser(t, user.TypeStudent)
	inactive := app.CreateUser(t, user.TypeStudent)
	deactivate := false
	_, err := app.Users.Update(context.Background(), inactive, user.UpdateUser{
		FirstName: inactive.FirstName,
		LastName:  inactive.LastName,
		Email:     inactive.Email,
		UserType:  inactive.UserType,
		IsActive:  &deactivate,
	})
	require.NoError(t, err)

	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	app.run(t, []httpTest{
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login(ada.Email, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "this field is required"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login(ada.Email, "wrong"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login("nobody@test.com", testutil.DefaultPassword),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login(inactive.Email, testutil.DefaultPassword),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	req, rec := newRequest(http.MethodPost, "/v1/users/login", login(" "+strings.ToUpper(ada.Email), testutil.DefaultPassword))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	unmarshal(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", resp.Token)
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed LoginResponse
	unmarshal(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
}

func TestUserAPI_deactivatedToken(t *testing.T) {
	app := setup(t)
	organizer := app.CreateUser(t, user.TypeOrganizer)
	ada := app.CreateUser(t, user.TypeStudent)
	evt := app.CreateEvent(t, organizer)
	token := app.token(t, ada)

	deactivate := false
	_, err := app.Users.Update(context.Background(), ada, user.UpdateUser{
		FirstName: ada.FirstName,
		LastName:  ada.LastName,
		Email:     ada.Email,
		UserType:  ada.UserType,
		IsActive:  &deactivate,
	})
	require.NoError(t, err)

	deactivated := marchallObj(t, httpErr{Error: "account deactivated"})
	app.run(t, []httpTest{
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: deactivated,
		},
		{
			name:     "refresh",
			method:   http.MethodPost,
			path:     "/v1/users/token-refresh",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: deactivated,
		},
		{
			name:     "register",
			method:   http.MethodPost,
			path:     "/v1/events/" + evt.ID + "/register",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: deactivated,
		},
		{
			name:     "browse as anonymous",
			method:   http.MethodGet,
			path:     "/v1/events/" + evt.ID,
			token:    token,
			wantCode: http.StatusOK,
		},
	})

	n, err := app.Registrations.Count(context.Background(), &registration.QueryFilter{EventID: evt.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUserAPI_rateLimit(t *testing.T) {
	app := setup(t, func(conf *core.Config) {
		conf.Server.RateLimit = 0.001
		conf.Server.RateBurst = 2
	})
	body := marchallObj(t, LoginRequest{Email: "nobody@test.com", Password: "wrong"})

	codes := make([]int, 3)
	for i := range codes {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.do(req, rec)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)

	// other endpoints are not limited
	req, rec := newRequest(http.MethodGet, "/v1/events")
	app.do(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserAPI_me(t *testing.T) {
	app := setup(t)
	ada := app.CreateUser(t, user.TypeStudent)
	token := app.token(t, ada)

	avatar := "https://img.test/ada.png"

	app.run(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "bad token",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    token + "x",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ada),
		},
		{
			name:     "invalid avatar",
			method:   http.MethodPut,
			path:     "/v1/users/me",
			body:     []byte(`{"avatar_url": "ftp://img.test/ada.png"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"avatar_url": "must be a valid http(s) URL"}),
		},
		{
			name:     "dashboard",
			method:   http.MethodGet,
			path:     "/v1/users/me/dashboard",
			token:    token,
			wantCode: http.StatusOK,
		},
	})

	req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", token, marchallObj(t, user.UpdateProfile{FirstName: " Ada ", AvatarURL: &avatar}))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got user.User
	unmarshal(t, rec, &got)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, ada.LastName, got.LastName)
	assert.Equal(t, avatar, got.AvatarURL)
}

func TestUserAPI_admin(t *testing.T) {
	app := setup(t)
	admin := app.CreateUser(t, user.TypeAdmin)
	organizer := app.CreateUser(t, user.TypeOrganizer)
	ada := app.CreateUser(t, user.TypeStudent)
	app.CreateEvent(t, organizer)

	adminToken := app.token(t, admin)
	adaToken := app.token(t, ada)

	app.run(t, []httpTest{
		{
			name:     "student query",
			method:   http.MethodGet,
			path:     "/v1/users",
			token:    adaToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "types",
			method:   http.MethodGet,
			path:     "/v1/users/types",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Types),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/users/" + ada.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ada),
		},
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     "/v1/users/5d4c3b2a-1f50-4c39-9f5e-3e0f2d1d9a02",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "delete self",
			method:   http.MethodDelete,
			path:     "/v1/users/" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "delete self among others",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + ada.ID + "&id=" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "delete organizer",
			method:   http.MethodDelete,
			path:     "/v1/users/" + organizer.ID,
			token:    adminToken,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: user.ErrOrganizesEvents.Error()}),
		},
	})

	req, rec := newAuthRequest(http.MethodGet, "/v1/users?user_type=student&ordering=-created_at", adminToken)
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var users []user.User
	unmarshal(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, ada.ID, users[0].ID)

	req, rec = newAuthRequest(http.MethodGet, "/v1/users?created_from=yesterday", adminToken)
	app.do(req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// promote ada
	req, rec = newAuthRequest(http.MethodPut, "/v1/users/"+ada.ID, adminToken, []byte(`{"user_type": "organizer"}`))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	promoted, err := app.Users.GetByID(context.Background(), ada.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsOrganizer())

	req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+ada.ID, adminToken)
	app.do(req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = app.Users.GetByID(context.Background(), ada.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	// deleted users' tokens stop working
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", adaToken)
	app.do(req, rec)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserAPI_passwordReset(t *testing.T) {
	app := setup(t)
	ada := app.CreateUser(t, user.TypeStudent)

	emailsvc.ResetSentMessages()
	defer emailsvc.ResetSentMessages()

	success := SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}
	const newPwd = "C0rrect-H0rse"

	app.run(t, []httpTest{
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/users/password-reset",
			body:     marchallObj(t, PasswordResetRequest{Email: "nobody@test.com"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, success),
		},
		{
			name:     "known email",
			method:   http.MethodPost,
			path:     "/v1/users/password-reset",
			body:     marchallObj(t, PasswordResetRequest{Email: ada.Email}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, success),
		},
		{
			name:   "bad token",
			method: http.MethodPost,
			path:   "/v1/users/password-reset-confirm",
			body: marchallObj(t, user.ResetUserPassword{
				UID: user.EncodeUID(ada), Token: "1-abc", Password: newPwd, PasswordConfirm: newPwd,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "the reset password link is no longer valid"}),
		},
		{
			name:   "valid token",
			method: http.MethodPost,
			path:   "/v1/users/password-reset-confirm",
			body: marchallObj(t, user.ResetUserPassword{
				UID: user.EncodeUID(ada), Token: user.MakeToken(ada, app.Conf), Password: newPwd, PasswordConfirm: newPwd,
			}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	})
	assert.Len(t, emailsvc.SentMessages(), 1)

	_, err := app.Users.Authenticate(context.Background(), ada.Email, newPwd)
	assert.NoError(t, err)
}
