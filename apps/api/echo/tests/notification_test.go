package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/an-shikaSingh/campus-connect-V0/apps/api/echo"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

func notify(t *testing.T, app *testApp, userID string, titles ...string) {
	t.Helper()
	notifs := make([]notification.NewNotification, 0, len(titles))
	for _, title := range titles {
		notifs = append(notifs, notification.NewNotification{
			UserID:  userID,
			Type:    notification.TypeAnnouncement,
			Title:   title,
			Message: title + "!",
		})
	}
	require.NoError(t, app.Notifications.Notify(context.Background(), notifs))
}

func TestNotificationAPI(t *testing.T) {
	app := setup(t)
	ada := app.CreateUser(t, user.TypeStudent)
	bob := app.CreateUser(t, user.TypeStudent)
	adaToken := app.token(t, ada)

	notify(t, app, ada.ID, "Welcome", "Reminder")
	notify(t, app, bob.ID, "Hello bob")

	req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", adaToken)
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var notifs []notification.Notification
	unmarshal(t, rec, &notifs)
	require.Len(t, notifs, 2)
	for _, n := range notifs {
		assert.Equal(t, ada.ID, n.UserID)
		assert.False(t, n.Read)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", app.token(t, bob))
	app.do(req, rec)
	var bobNotifs []notification.Notification
	unmarshal(t, rec, &bobNotifs)
	require.Len(t, bobNotifs, 1)

	app.run(t, []httpTest{
		{
			name:     "anonymous",
			method:   http.MethodGet,
			path:     "/v1/notifications",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "unread count",
			method:   http.MethodGet,
			path:     "/v1/notifications/unread-count",
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 2}),
		},
		{
			name:     "read someone else's",
			method:   http.MethodPost,
			path:     "/v1/notifications/" + bobNotifs[0].ID + "/read",
			token:    adaToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: notification.ErrNotFound.Error()}),
		},
		{
			name:     "read",
			method:   http.MethodPost,
			path:     "/v1/notifications/" + notifs[0].ID + "/read",
			token:    adaToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "one left",
			method:   http.MethodGet,
			path:     "/v1/notifications/unread-count",
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 1}),
		},
		{
			name:     "unread only",
			method:   http.MethodGet,
			path:     "/v1/notifications?unread=true",
			token:    adaToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "read all",
			method:   http.MethodPost,
			path:     "/v1/notifications/read-all",
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 1}),
		},
		{
			name:     "none left",
			method:   http.MethodGet,
			path:     "/v1/notifications/unread-count",
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CountResponse{Count: 0}),
		},
	})

	// bob is untouched
	n, err := app.Notifications.UnreadCount(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNotificationAPI_stream(t *testing.T) {
	app := setup(t)
	ada := app.CreateUser(t, user.TypeStudent)

	srv := httptest.NewServer(app.server)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/notifications/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+app.token(t, ada), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return app.Hub.Subscribers(ada.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	notify(t, app, ada.ID, "Live")
	app.Drain(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got notification.Notification
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, ada.ID, got.UserID)
	assert.Equal(t, "Live", got.Title)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return app.Hub.Subscribers(ada.ID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
