package handler_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpantry/internal/directory"
	"plantpantry/internal/directory/handler"
	"plantpantry/internal/directory/models"
	"plantpantry/internal/directory/store"
	"plantpantry/pkg/domain"
	"plantpantry/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *directory.Service) {
	t.Helper()
	service := directory.New(store.NewInMemoryStores())
	r := chi.NewRouter()
	handler.New(service, slog.Default()).Register(r)
	return r, service
}

func createPayload() map[string]any {
	return map[string]any{
		"name":    "Green Grocer",
		"type":    "physical",
		"address": "100 Oak St",
		"city":    "Austin",
		"state":   "TX",
	}
}

func TestCreateStoreHandler(t *testing.T) {
	t.Run("creates a new store", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", createPayload()))
		testutil.AssertStatus(t, rec, http.StatusCreated)

		resp := testutil.UnmarshalResponse[struct {
			Created *models.Store `json:"created"`
		}](t, rec)
		require.NotNil(t, resp.Created)
		assert.Equal(t, "Green Grocer", resp.Created.Name)
	})

	t.Run("duplicate comes back as 200 with classification", func(t *testing.T) {
		r, _ := newRouter(t)
		testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", createPayload()))
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", createPayload()))
		testutil.AssertStatus(t, rec, http.StatusOK)

		resp := testutil.UnmarshalResponse[struct {
			Duplicate *struct {
				Classification string `json:"classification"`
			} `json:"duplicate"`
		}](t, rec)
		require.NotNil(t, resp.Duplicate)
		assert.Equal(t, "exact", resp.Duplicate.Classification)
	})

	t.Run("skip_duplicate_check forces creation past similarity", func(t *testing.T) {
		r, _ := newRouter(t)
		testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", createPayload()))

		payload := createPayload()
		payload["address"] = "200 Elm St"
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", payload))
		testutil.AssertStatus(t, rec, http.StatusOK) // similar, blocked

		payload["skip_duplicate_check"] = true
		rec = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", payload))
		testutil.AssertStatus(t, rec, http.StatusCreated)
	})

	t.Run("invalid body is bad_request", func(t *testing.T) {
		r, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/stores", nil)
		req.Body = http.NoBody
		rec := testutil.DoRequest(r, req)
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rec, "bad_request")
	})

	t.Run("invalid store is validation error", func(t *testing.T) {
		r, _ := newRouter(t)
		payload := map[string]any{"name": "Green Grocer", "type": "popup"}
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", payload))
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rec, "validation")
	})
}

func TestGetStoreHandler(t *testing.T) {
	r, _ := newRouter(t)
	rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", createPayload()))
	created := testutil.UnmarshalResponse[struct {
		Created *models.Store `json:"created"`
	}](t, rec)

	t.Run("found", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores/"+created.Created.ID.String()))
		testutil.AssertStatus(t, rec, http.StatusOK)
		st := testutil.UnmarshalResponse[models.Store](t, rec)
		assert.Equal(t, created.Created.ID, st.ID)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores/"+domain.NewStoreID().String()))
		testutil.AssertStatus(t, rec, http.StatusNotFound)
		testutil.AssertErrorCode(t, rec, "not_found")
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores/not-a-uuid"))
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestListStoresHandler(t *testing.T) {
	r, _ := newRouter(t)
	testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", createPayload()))

	payload := createPayload()
	payload["name"] = "Dallas Depot"
	payload["city"] = "Dallas"
	testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", payload))

	t.Run("lists all", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores"))
		testutil.AssertStatus(t, rec, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Stores []*models.Store `json:"stores"`
		}](t, rec)
		assert.Len(t, resp.Stores, 2)
	})

	t.Run("filters by city", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores?city=Dallas"))
		resp := testutil.UnmarshalResponse[struct {
			Stores []*models.Store `json:"stores"`
		}](t, rec)
		require.Len(t, resp.Stores, 1)
		assert.Equal(t, "Dallas Depot", resp.Stores[0].Name)
	})

	t.Run("malformed chain filter is 400", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores?chain_id=nope"))
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestNearbyHandler(t *testing.T) {
	r, _ := newRouter(t)

	add := func(name, city string, lat, lon float64) {
		payload := map[string]any{
			"name": name, "type": "physical", "address": name + " address",
			"city": city, "state": "TX", "latitude": lat, "longitude": lon,
		}
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/stores", payload))
		testutil.AssertStatus(t, rec, http.StatusCreated)
	}
	add("Austin Market", "Austin", 30.2672, -97.7431)
	add("Round Rock Market", "Round Rock", 30.5083, -97.6789)
	add("San Antonio Market", "San Antonio", 29.4241, -98.4936)

	type nearbyResponse struct {
		Stores []struct {
			Store         *models.Store `json:"store"`
			DistanceMiles float64       `json:"distance_miles"`
		} `json:"stores"`
		RadiusUsed float64 `json:"radius_used"`
		Expanded   bool    `json:"expanded"`
		Sorted     bool    `json:"sorted"`
	}

	t.Run("ranks by distance", func(t *testing.T) {
		url := fmt.Sprintf("/stores/nearby?lat=%f&lon=%f&radius=25", 30.2672, -97.7431)
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, url))
		testutil.AssertStatus(t, rec, http.StatusOK)
		resp := testutil.UnmarshalResponse[nearbyResponse](t, rec)
		assert.True(t, resp.Sorted)
		require.Len(t, resp.Stores, 2)
		assert.Equal(t, "Austin Market", resp.Stores[0].Store.Name)
	})

	t.Run("no origin returns all unsorted", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores/nearby"))
		testutil.AssertStatus(t, rec, http.StatusOK)
		resp := testutil.UnmarshalResponse[nearbyResponse](t, rec)
		assert.False(t, resp.Sorted)
		assert.Len(t, resp.Stores, 3)
	})

	t.Run("malformed coordinates are 400", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores/nearby?lat=abc&lon=1"))
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("negative radius is 400", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stores/nearby?lat=30&lon=-97&radius=-5"))
		testutil.AssertStatus(t, rec, http.StatusBadRequest)
	})
}
