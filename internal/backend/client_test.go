package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/backend"
)

func TestQuery_Get(t *testing.T) {
	var gotPath, gotQuery, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	var rows []struct {
		ID string `json:"id"`
	}

	err := client.From("notifications").
		Select("*").
		Eq("team_id", "t1").
		IsNull("read_at").
		Order("created_at", true).
		Range(0, 49).
		Get(context.Background(), &rows)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "/rest/v1/notifications", gotPath)
	assert.Contains(t, gotQuery, "team_id=eq.t1")
	assert.Contains(t, gotQuery, "read_at=is.null")
	assert.Contains(t, gotQuery, "order=created_at.desc")
	assert.Contains(t, gotQuery, "limit=50")
	assert.Contains(t, gotQuery, "offset=0")
	assert.Equal(t, "Bearer anon-key", gotAuth)
}

func TestQuery_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"PGRST202","message":"Could not find the function"}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	err := client.RPC(context.Background(), "get_category_counts", map[string]string{}, nil)
	require.Error(t, err)

	translated := apperr.Translate(err)
	assert.True(t, apperr.IsMissingRPC(translated))
}

func TestSignIn_InstallsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "header.payload.sig",
			"refresh_token": "refresh-1",
			"user": {"id": "user-1", "email": "a@b.c"}
		}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	session, err := client.SignIn(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, session, client.CurrentSession())
	assert.Equal(t, "header.payload.sig", client.AccessToken())
}

func TestSignIn_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	_, err := client.SignIn(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)

	assert.Equal(t, apperr.KindAuth, apperr.Translate(err).Kind)
	assert.Nil(t, client.CurrentSession())
}

func TestUpload_SizeGate(t *testing.T) {
	var uploaded bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded = true
		w.Write([]byte(`{"Key":"receipt-images/r1.jpg"}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)
	limit := backend.UploadLimit(5 * 1024 * 1024)

	t.Run("UnderLimit", func(t *testing.T) {
		data := make([]byte, 2*1024*1024)

		url, err := client.Upload(context.Background(), "receipt-images", "r1.jpg", data, "image/jpeg", limit)
		require.NoError(t, err)
		assert.True(t, uploaded)
		assert.Equal(t, server.URL+"/storage/v1/object/public/receipt-images/r1.jpg", url)
	})

	t.Run("OverLimit", func(t *testing.T) {
		uploaded = false
		data := make([]byte, 6*1024*1024)

		_, err := client.Upload(context.Background(), "receipt-images", "r2.jpg", data, "image/jpeg", limit)
		require.Error(t, err)
		assert.Equal(t, apperr.KindFile, apperr.KindOf(err))
		assert.False(t, uploaded, "oversized file must not reach the network")
	})
}

func TestProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("id"))

		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id":"user-1","email":"a@b.c","full_name":"Ada"}`))
		case http.MethodPatch:
			w.Write([]byte(`[{"id":"user-1","email":"a@b.c","full_name":"Ada Lovelace"}]`))
		}
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	t.Run("RequiresSession", func(t *testing.T) {
		_, err := client.GetProfile(context.Background())
		require.Error(t, err)
	})

	client.SetSession(&backend.Session{AccessToken: "tok", UserID: "user-1"})

	t.Run("Get", func(t *testing.T) {
		p, err := client.GetProfile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Ada", p.FullName)
	})

	t.Run("Update", func(t *testing.T) {
		name := "Ada Lovelace"

		p, err := client.UpdateProfile(context.Background(), backend.ProfilePatch{FullName: &name})
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", p.FullName)
	})
}

func TestSignUp_InstallsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "header.payload.sig",
			"refresh_token": "refresh-1",
			"user": {"id": "user-1", "email": "a@b.c"}
		}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	session, err := client.SignUp(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, session, client.CurrentSession())
}

func TestSignUp_ConfirmationPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No access token until the email is confirmed.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user": {"id": "user-1", "email": "a@b.c"}}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	session, err := client.SignUp(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, client.CurrentSession())
}

func TestSignOut(t *testing.T) {
	var gotPath, gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)
	client.SetSession(&backend.Session{AccessToken: "tok", UserID: "user-1"})

	require.NoError(t, client.SignOut(context.Background()))
	assert.Equal(t, "/auth/v1/logout", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Nil(t, client.CurrentSession())
}

func TestSignOut_ClearsSessionOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"invalid token"}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)
	client.SetSession(&backend.Session{AccessToken: "stale", UserID: "user-1"})

	require.Error(t, client.SignOut(context.Background()))
	assert.Nil(t, client.CurrentSession(), "local session must be dropped even when revocation fails")
}

func TestQuery_Upsert(t *testing.T) {
	var gotMethod, gotPrefer, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")

		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"key":"default_currency","value":"EUR"}]`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	var rows []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	err := client.From("user_preferences").Upsert(context.Background(), []map[string]string{
		{"key": "default_currency", "value": "EUR"},
	}, &rows)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EUR", rows[0].Value)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Contains(t, gotPrefer, "resolution=merge-duplicates")
	assert.Contains(t, gotBody, "default_currency")
}

func TestRemove(t *testing.T) {
	var gotMethod, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path

		w.Write([]byte(`{"message":"Successfully deleted"}`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	err := client.Remove(context.Background(), "receipt-images", "user-1/r1.jpg")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/storage/v1/object/receipt-images/user-1/r1.jpg", gotPath)
}

func TestQuery_Update_SendsPatch(t *testing.T) {
	var gotMethod, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method

		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)

		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := backend.New(server.URL, "anon-key", 5*time.Second)

	err := client.From("notifications").
		Eq("id", "n1").
		Update(context.Background(), map[string]any{"read_at": "2026-01-02T03:04:05Z"}, nil)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Contains(t, gotBody, "read_at")
}
