package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/anzscache/pkg/config"
	"github.com/pario-ai/anzscache/pkg/models"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cat-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/classify":
			if r.URL.Query().Get("name") != "Software Engineer" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(models.Classification{
				AnzscoCode: "261313",
				DirectLink: "https://www.abs.gov.au/anzsco/261313",
			})
		case "/occupations/261313":
			json.NewEncoder(w).Encode(models.OccupationDetail{
				Title:      "Software Engineer",
				UnitGroup:  "2613 Software and Applications Programmers",
				SkillLevel: "1",
				Tasks:      []string{"Design", "Test", "Deploy"},
				Source:     "ABS",
			})
		case "/occupations/999999":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCatalog(url string) *Catalog {
	return NewCatalog(config.CatalogConfig{URL: url, APIKey: "cat-key"}, zerolog.Nop())
}

func TestCatalogClassify(t *testing.T) {
	c := newTestCatalog(newCatalogServer(t).URL)

	cls, err := c.Classify(context.Background(), "Software Engineer")
	require.NoError(t, err)
	assert.Equal(t, "261313", cls.AnzscoCode)
	assert.Equal(t, "https://www.abs.gov.au/anzsco/261313", cls.DirectLink)
}

func TestCatalogClassifyNotFound(t *testing.T) {
	c := newTestCatalog(newCatalogServer(t).URL)

	_, err := c.Classify(context.Background(), "Dragon Tamer")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternalSourceFailed)
}

func TestCatalogFetchDetailKeepsTaskOrder(t *testing.T) {
	c := newTestCatalog(newCatalogServer(t).URL)

	d, err := c.FetchDetail(context.Background(), "261313")
	require.NoError(t, err)
	assert.Equal(t, "Software Engineer", d.Title)
	assert.Equal(t, []string{"Design", "Test", "Deploy"}, d.Tasks)
}

func TestCatalogFetchDetailServerError(t *testing.T) {
	c := newTestCatalog(newCatalogServer(t).URL)

	_, err := c.FetchDetail(context.Background(), "999999")
	assert.ErrorIs(t, err, models.ErrExternalSourceFailed)
}

func TestCatalogUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestCatalog(url).Classify(context.Background(), "Software Engineer")
	assert.ErrorIs(t, err, models.ErrExternalSourceFailed)
}
