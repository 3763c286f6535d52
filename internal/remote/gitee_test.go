package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-worker/All-In-One-Web/internal/credstore"
)

func giteeConfig() credstore.Config {
	return credstore.Config{
		Provider: credstore.ProviderGitee,
		Token:    "gitee-token",
		Owner:    "we-worker",
		Repo:     "notes",
		Branch:   "master",
	}
}

func TestPutFile_GiteeDirectCreateSucceeds(t *testing.T) {
	original := []byte(`{"bookmarks":["书签","ünïcode ✓"]}`)

	var stored string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"File Not Found"}`)
		case http.MethodPost:
			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))

			stored = body["content"].(string)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"content":{"sha":"created1"}}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.PutFile(context.Background(), "sync-bookmarks.json", original, "msg", "")
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(stored)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPutFile_GiteeFallsBackToPlaceholder(t *testing.T) {
	original := []byte(`{"tasks":["任务"]}`)

	var (
		stored    string
		updateSHA string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"File Not Found"}`)
		case http.MethodPost:
			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))

			// Direct creation with content is rejected; an empty
			// placeholder is accepted.
			if body["content"] != "" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"message":"invalid"}`)
				return
			}

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"content":{"sha":"placeholder1"}}`)
		case http.MethodPut:
			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))

			updateSHA, _ = body["sha"].(string)
			stored, _ = body["content"].(string)
			fmt.Fprint(w, `{"content":{"sha":"final1"}}`)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.PutFile(context.Background(), "sync-tasks.json", original, "msg", "")
	require.NoError(t, err)

	assert.Equal(t, "placeholder1", updateSHA)

	decoded, err := base64.StdEncoding.DecodeString(stored)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPutFile_GiteeFallsBackToEmptyToken(t *testing.T) {
	var sawEmptyTokenWrite bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"File Not Found"}`)
		case http.MethodPost:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"invalid"}`)
		case http.MethodPut:
			raw, _ := io.ReadAll(r.Body)

			// The third strategy sends the sha field present but empty.
			if strings.Contains(string(raw), `"sha":""`) {
				sawEmptyTokenWrite = true
				fmt.Fprint(w, `{"content":{"sha":"final1"}}`)
				return
			}

			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"invalid"}`)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.PutFile(context.Background(), "sync-tasks.json", []byte("{}"), "msg", "")
	require.NoError(t, err)
	assert.True(t, sawEmptyTokenWrite)
}

func TestPutFile_GiteeAllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"File Not Found"}`)
			return
		}

		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"invalid"}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.PutFile(context.Background(), "sync-tasks.json", []byte("{}"), "msg", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "all creation strategies failed")
}

func TestPutFile_GiteeRetriesOnceOnConflict(t *testing.T) {
	var (
		puts       int
		currentSHA = "stale"
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, contentJSON("sync-tasks.json", currentSHA, []byte("remote")))
		case http.MethodPut:
			puts++

			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))

			// Another writer moved the file: the first token is stale.
			if body["sha"] == "stale" {
				currentSHA = "fresh"
				w.WriteHeader(http.StatusConflict)
				fmt.Fprint(w, `{"message":"sha mismatch"}`)
				return
			}

			assert.Equal(t, "fresh", body["sha"])
			fmt.Fprint(w, `{"content":{"sha":"newer"}}`)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.PutFile(context.Background(), "sync-tasks.json", []byte("local"), "msg", "")
	require.NoError(t, err)
	assert.Equal(t, 2, puts)
}

func TestPutFile_GiteeSecondConflictFails(t *testing.T) {
	var puts int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, contentJSON("sync-tasks.json", "sha1", []byte("remote")))
		case http.MethodPut:
			puts++
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"message":"sha mismatch"}`)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.PutFile(context.Background(), "sync-tasks.json", []byte("local"), "msg", "")
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, puts)
}

func TestDeleteFile_GiteeSendsParamsInQuery(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, contentJSON("sync-tasks.json", "del-sha", []byte("x")))
		case http.MethodDelete:
			gotQuery = r.URL.RawQuery

			raw, _ := io.ReadAll(r.Body)
			assert.Empty(t, raw)
			fmt.Fprint(w, `{}`)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, giteeConfig(), srv.URL)

	err := a.DeleteFile(context.Background(), "sync-tasks.json", "remove tasks")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "sha=del-sha")
	assert.Contains(t, gotQuery, "branch=master")
	assert.Contains(t, gotQuery, "message=remove+tasks")
}
