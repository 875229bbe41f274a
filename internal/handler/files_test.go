package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpost/event-registration/internal/authz"
	"github.com/trailpost/event-registration/internal/blobstore"
	"github.com/trailpost/event-registration/internal/config"
	"github.com/trailpost/event-registration/internal/model"
	"github.com/trailpost/event-registration/internal/repository"
)

type stubEvents map[string]*model.Event

func (s stubEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	if e, ok := s[id]; ok {
		return e, nil
	}
	return nil, repository.ErrNotFound
}

type stubRoster map[string]bool

func (s stubRoster) HasRegistrationForUser(_ context.Context, eventID, userID string) (bool, error) {
	return s[eventID+"/"+userID], nil
}

func newTestFileHandler() *FileHandler {
	gate := authz.NewGate(
		stubEvents{"evt-1": {ID: "evt-1"}},
		stubRoster{},
	)
	cfg := config.New()
	cfg.BlobSecret = "blob-secret"
	return NewFileHandler(gate, blobstore.NewSignedStore(cfg.BlobBaseURL, cfg.BlobSecret), cfg)
}

func asActor(r *http.Request, actor *model.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorContextKey{}, actor))
}

func TestPresignReturnsShortLivedURL(t *testing.T) {
	h := newTestFileHandler()

	req := httptest.NewRequest(http.MethodGet, "/files/presign?key="+url.QueryEscape("event-images/evt-1/banner.jpg"), nil)
	rec := httptest.NewRecorder()
	h.Presign(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.PresignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.URL, "event-images/evt-1/banner.jpg")
	assert.Contains(t, resp.URL, "sig=")
	assert.False(t, resp.ExpiresAt.IsZero())
}

func TestPresignStatusMapping(t *testing.T) {
	h := newTestFileHandler()
	owner := &model.Actor{ID: "user-1"}
	stranger := &model.Actor{ID: "user-2"}

	cases := []struct {
		name  string
		key   string
		actor *model.Actor
		want  int
	}{
		{"missing key", "", owner, http.StatusBadRequest},
		{"anonymous on protected key", "profile-images/user-1/a.jpg", nil, http.StatusUnauthorized},
		{"foreign profile image", "profile-images/user-1/a.jpg", stranger, http.StatusForbidden},
		{"owner profile image", "profile-images/user-1/a.jpg", owner, http.StatusOK},
		{"unrecognized key", "backups/db.sql", owner, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/files/presign"
			if tc.key != "" {
				target += "?key=" + url.QueryEscape(tc.key)
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.actor != nil {
				req = asActor(req, tc.actor)
			}
			rec := httptest.NewRecorder()
			h.Presign(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestPresignUpload(t *testing.T) {
	h := newTestFileHandler()
	owner := &model.Actor{ID: "user-1"}

	body := `{"prefix":"profile-images/user-1","file_name":"portrait.jpg","mime_type":"image/jpeg"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/files/uploads", strings.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	h.PresignUpload(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var upload blobstore.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	assert.True(t, strings.HasPrefix(upload.Key, "profile-images/user-1/"))
	assert.NotEmpty(t, upload.UploadURL)
}

func TestPresignUploadRejections(t *testing.T) {
	h := newTestFileHandler()
	owner := &model.Actor{ID: "user-1"}

	// Admin-only prefix.
	body := `{"prefix":"event-images/evt-1","file_name":"banner.jpg","mime_type":"image/jpeg"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/files/uploads", strings.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	h.PresignUpload(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Missing fields.
	req = asActor(httptest.NewRequest(http.MethodPost, "/files/uploads", strings.NewReader(`{"prefix":""}`)), owner)
	rec = httptest.NewRecorder()
	h.PresignUpload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
