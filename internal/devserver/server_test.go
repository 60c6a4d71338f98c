package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store := NewStore()
	require.NoError(t, Seed(store, 2))
	srv := New(store, Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s")
	raw, err := signToken(secret, 5, "eve", time.Now())
	require.NoError(t, err)

	id, err := parseToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	_, err = parseToken([]byte("other"), raw)
	assert.Error(t, err)

	expired, err := signToken(secret, 5, "eve", time.Now().Add(-2*tokenTTL))
	require.NoError(t, err)
	_, err = parseToken(secret, expired)
	assert.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
		"username": "dave", "email": "dave@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
		"username": "dave", "email": "dave@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"username": "dave", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid credentials")

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"username": "dave", "password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	assert.NotEmpty(t, login.Token)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/feed?user_id=1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/feed?user_id=1", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeedPagination(t *testing.T) {
	srv, ts := newTestServer(t)
	token, err := srv.Token(1)
	require.NoError(t, err)

	var seen []int64
	for page := 1; page <= 3; page++ {
		resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/feed?user_id=1&limit=4&page="+strconv.Itoa(page), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var feed struct {
			Posts []struct {
				ID int64 `json:"id"`
			} `json:"posts"`
		}
		require.NoError(t, json.Unmarshal(body, &feed))
		for _, p := range feed.Posts {
			seen = append(seen, p.ID)
		}
	}
	// Three seeded users with two posts each, all visible to alice.
	assert.Len(t, seen, 6)
}

func TestLikeAndDeleteOwnership(t *testing.T) {
	srv, ts := newTestServer(t)
	alice, err := srv.Token(1)
	require.NoError(t, err)
	bob, err := srv.Token(2)
	require.NoError(t, err)

	post, err := srv.Store().AddPost(1, "/media/x.jpg", "x")
	require.NoError(t, err)
	postURL := ts.URL + "/api/posts/" + itoa(post.ID)

	resp, body := doJSON(t, http.MethodPost, postURL+"/like", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"liked":true}`, string(body))

	_, body = doJSON(t, http.MethodGet, postURL, bob, nil)
	assert.Contains(t, string(body), `"likes_count":1`)
	assert.Contains(t, string(body), `"liked_by_viewer":true`)

	resp, _ = doJSON(t, http.MethodDelete, postURL, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, postURL, alice, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, postURL, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadModeration(t *testing.T) {
	srv, ts := newTestServer(t)
	token, err := srv.Token(1)
	require.NoError(t, err)

	upload := func(name string) (*http.Response, []byte) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/upload", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp, body
	}

	resp, body := upload("NSFW-beach.png")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "content moderation")

	resp, body = upload("beach.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		MediaURL string `json:"media_url"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.True(t, strings.HasPrefix(out.MediaURL, "/media/"))
	assert.True(t, strings.HasSuffix(out.MediaURL, ".png"))

	media, err := http.Get(ts.URL + out.MediaURL)
	require.NoError(t, err)
	defer media.Body.Close()
	assert.Equal(t, http.StatusOK, media.StatusCode)
	assert.Equal(t, "image/png", media.Header.Get("Content-Type"))
}

func TestCreatePostAsOtherUserForbidden(t *testing.T) {
	srv, ts := newTestServer(t)
	token, err := srv.Token(1)
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/posts", token, map[string]interface{}{
		"user_id": 2, "media_url": "/media/a.jpg",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/posts", token, map[string]interface{}{
		"user_id": 1, "media_url": "/media/a.jpg", "caption": "ok",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSearchUsers(t *testing.T) {
	srv, ts := newTestServer(t)
	token, err := srv.Token(1)
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/users/search?q=BO", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"username":"bob"`)
	assert.NotContains(t, string(body), "password")

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/users/search?q=", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
