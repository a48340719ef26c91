package test_functional

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	Identity struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	Bookmark struct {
		ID        string `json:"id"`
		OwnerID   string `json:"user_id"`
		URL       string `json:"url"`
		Title     string `json:"title"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}

	SuccessResp struct {
		Success bool `json:"success"`
	}
)

func signIn(t *testing.T, ctx context.Context) *resty.Client {
	t.Helper()

	u := AppBaseURL
	u.Path = "/auth/signin"

	cl := resty.New()

	got := Identity{}
	resp, err := cl.R().
		SetContext(ctx).
		SetResult(&got).
		Post(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.NotEmpty(t, got.ID)

	// resty keeps the session cookie for the rest of the flow.
	cl.SetCookies(resp.Cookies())
	return cl
}

func TestSignInAndSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	cl := signIn(t, ctx)

	u := AppBaseURL
	u.Path = "/auth/session"

	got := Identity{}
	resp, err := cl.R().
		SetContext(ctx).
		SetResult(&got).
		Get(u.String())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "demo@example.com", got.Email)
}

func TestBookmarksUnauthorized(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	u := AppBaseURL
	u.Path = "/bookmarks"

	resp, err := resty.New().R().
		SetContext(ctx).
		Get(u.String())
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestBookmarksCrud(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	cl := signIn(t, ctx)

	u := AppBaseURL
	u.Path = "/bookmarks"

	//////

	a := Bookmark{}
	resp, err := cl.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"url": "https://a.com", "title": "A"}`).
		SetResult(&a).
		Post(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.NotEmpty(t, a.ID)

	b := Bookmark{}
	resp, err = cl.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"url": "https://b.com", "title": "B"}`).
		SetResult(&b).
		Post(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	//////

	listed := []Bookmark{}
	resp, err = cl.R().
		SetContext(ctx).
		SetResult(&listed).
		Get(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, listed, 2)
	assert.Equal(t, "B", listed[0].Title)
	assert.Equal(t, "A", listed[1].Title)

	//////

	del := AppBaseURL
	del.Path = "/bookmarks/" + a.ID

	got := SuccessResp{}
	resp, err = cl.R().
		SetContext(ctx).
		SetResult(&got).
		Delete(del.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.True(t, got.Success)

	resp, err = cl.R().
		SetContext(ctx).
		Delete(del.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	//////

	listed = nil
	resp, err = cl.R().
		SetContext(ctx).
		SetResult(&listed).
		Get(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, listed, 1)
	assert.Equal(t, "B", listed[0].Title)
}

func TestBookmarkValidation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	cl := signIn(t, ctx)

	u := AppBaseURL
	u.Path = "/bookmarks"

	resp, err := cl.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"url": "not-a-url", "title": "x"}`).
		Post(u.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	listed := []Bookmark{}
	resp, err = cl.R().
		SetContext(ctx).
		SetResult(&listed).
		Get(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Empty(t, listed)
}
