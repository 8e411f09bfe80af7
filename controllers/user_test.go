package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUserController() *UserController {
	return NewUserController(store.NewMemoryUserStore(), utils.NewTokenManager("test-secret", time.Hour), nullLogger(), 0)
}

func registerBody(email string, admin bool) map[string]any {
	return map[string]any{
		"name":     "Jane",
		"email":    email,
		"password": "s3cret",
		"phone":    "+420702241333",
		"isAdmin":  admin,
		"city":     "Prague",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	uc := newUserController()

	rec := serve(uc.Register, jsonRequest(t, http.MethodPost, "/users/register", registerBody("jane@example.com", true)), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, true, body["isAdmin"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")

	stored, err := uc.Users.FindByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)

	rec = serve(uc.Login, jsonRequest(t, http.MethodPost, "/users/login", map[string]string{
		"email": "jane@example.com", "password": "s3cret",
	}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[map[string]string](t, rec)
	assert.Equal(t, "jane@example.com", login["user"])

	claims, err := uc.Tokens.Verify(login["token"])
	require.NoError(t, err)
	assert.Equal(t, stored.ID.Hex(), claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestLoginFailures(t *testing.T) {
	uc := newUserController()
	rec := serve(uc.CreateUser, jsonRequest(t, http.MethodPost, "/users", registerBody("jane@example.com", false)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	testCases := []struct {
		name     string
		email    string
		password string
		wantCode int
		wantBody string
	}{
		{"unknown email", "nobody@example.com", "s3cret", http.StatusNotFound, "The user Not found!\n"},
		{"wrong password", "jane@example.com", "guess", http.StatusBadRequest, "Password is Wrong!!\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(uc.Login, jsonRequest(t, http.MethodPost, "/users/login", map[string]string{
				"email": tc.email, "password": tc.password,
			}), nil)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantBody, rec.Body.String())
		})
	}
}

func TestCreateUserRejects(t *testing.T) {
	uc := newUserController()
	rec := serve(uc.CreateUser, jsonRequest(t, http.MethodPost, "/users", registerBody("jane@example.com", false)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	noPassword := registerBody("joe@example.com", false)
	delete(noPassword, "password")

	testCases := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"duplicate email", registerBody("jane@example.com", false), http.StatusBadRequest},
		{"missing password", noPassword, http.StatusBadRequest},
		{"missing email", registerBody("", false), http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(uc.CreateUser, jsonRequest(t, http.MethodPost, "/users", tc.body), nil)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
		})
	}

	n, err := uc.Users.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUserReadsAndDelete(t *testing.T) {
	uc := newUserController()
	user := models.User{Name: "Jane", Email: "jane@example.com", PasswordHash: "hash"}
	require.NoError(t, uc.Users.Insert(context.Background(), &user))

	rec := serve(uc.GetUsers, httptest.NewRequest(http.MethodGet, "/users", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "passwordHash")

	vars := map[string]string{"id": user.ID.Hex()}
	rec = serve(uc.GetUserByID, httptest.NewRequest(http.MethodGet, "/", nil), vars)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane", decode[map[string]any](t, rec)["name"])

	rec = serve(uc.CountUsers, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.JSONEq(t, `{"userCount":1}`, rec.Body.String())

	rec = serve(uc.DeleteUser, httptest.NewRequest(http.MethodDelete, "/", nil), vars)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"the user is deleted"}`, rec.Body.String())

	rec = serve(uc.GetUserByID, httptest.NewRequest(http.MethodGet, "/", nil), vars)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No user Found", decode[utils.Message](t, rec).Message)

	rec = serve(uc.DeleteUser, httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(uc.GetUsers, httptest.NewRequest(http.MethodGet, "/users", nil), nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
