package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddreams/internal/model"
	"ddreams/internal/service"
)

type stubCampaignStore struct {
	known   string
	updated *model.Campaign
	deleted string
}

func (s *stubCampaignStore) Update(_ context.Context, c *model.Campaign) error {
	if c.ID != s.known {
		return service.ErrCampaignNotFound
	}
	s.updated = c
	return nil
}

func (s *stubCampaignStore) Delete(_ context.Context, id string) error {
	if id != s.known {
		return service.ErrCampaignNotFound
	}
	s.deleted = id
	return nil
}

func TestUpdateCampaignHandler(t *testing.T) {
	stub := &stubCampaignStore{known: "c-1"}
	r := chi.NewRouter()
	r.Put("/admin/campaigns/{id}", UpdateCampaignHandler(stub))

	body := `{"name":"Winter Prints","slug":"winter","starts_on":"2025-12-01","ends_on":"2025-12-31","enabled":true}`

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPut, "/admin/campaigns/c-1", strings.NewReader(body), "staff", true))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.updated)
	assert.Equal(t, "c-1", stub.updated.ID)
	assert.Equal(t, "Winter Prints", stub.updated.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPut, "/admin/campaigns/c-9", strings.NewReader(body), "staff", true))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bad := `{"name":"x","slug":"x","starts_on":"2025-12-31","ends_on":"nonsense"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPut, "/admin/campaigns/c-1", strings.NewReader(bad), "staff", true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCampaignHandler(t *testing.T) {
	stub := &stubCampaignStore{known: "c-1"}
	r := chi.NewRouter()
	r.Delete("/admin/campaigns/{id}", DeleteCampaignHandler(stub))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodDelete, "/admin/campaigns/c-1", nil, "staff", true))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c-1", stub.deleted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodDelete, "/admin/campaigns/c-9", nil, "staff", true))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
