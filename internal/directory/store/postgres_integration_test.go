//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"plantpantry/internal/directory/models"
	"plantpantry/internal/directory/store"
	"plantpantry/pkg/domain"
	"plantpantry/pkg/platform/sentinel"
	"plantpantry/pkg/testutil/containers"
)

type PostgresStoresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	stores   *store.PostgresStores
	chains   *store.PostgresChains
}

func TestPostgresStoresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoresSuite))
}

func (s *PostgresStoresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.stores = store.NewPostgresStores(s.postgres.DB)
	s.chains = store.NewPostgresChains(s.postgres.DB)
}

func (s *PostgresStoresSuite) SetupTest() {
	// Truncate in dependency order
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "stores", "chains"))
}

func (s *PostgresStoresSuite) newStore(in models.StoreInput) *models.Store {
	st, err := models.NewStore(in, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return st
}

func (s *PostgresStoresSuite) seed(in models.StoreInput) *models.Store {
	st := s.newStore(in)
	s.Require().NoError(s.stores.Create(context.Background(), st))
	return st
}

func (s *PostgresStoresSuite) TestCreateAndFind() {
	ctx := context.Background()
	lat, lon := 30.2672, -97.7431
	created := s.seed(models.StoreInput{
		Name: "Green Grocer", Type: models.StoreTypePhysical,
		Address: "100 Oak St", City: "Austin", State: "TX",
		Latitude: &lat, Longitude: &lon, PlaceID: "plc-1",
	})

	s.Run("by id", func() {
		found, err := s.stores.FindByID(ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(created.Name, found.Name)
		s.Require().NotNil(found.Latitude)
		s.InDelta(lat, *found.Latitude, 1e-9)
	})

	s.Run("by place id", func() {
		found, err := s.stores.FindByPlaceID(ctx, "plc-1")
		s.Require().NoError(err)
		s.Equal(created.ID, found.ID)
	})

	s.Run("by dedup key", func() {
		found, err := s.stores.FindByDedupKey(ctx, created.DedupKey())
		s.Require().NoError(err)
		s.Equal(created.ID, found.ID)
	})

	s.Run("missing id is not found", func() {
		_, err := s.stores.FindByID(ctx, domain.NewStoreID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoresSuite) TestUniquenessConstraints() {
	ctx := context.Background()
	s.seed(models.StoreInput{
		Name: "Green Grocer", Type: models.StoreTypePhysical,
		Address: "100 Oak St", City: "Austin", PlaceID: "plc-1",
	})

	s.Run("duplicate place id conflicts", func() {
		dup := s.newStore(models.StoreInput{
			Name: "Other Name", Type: models.StoreTypePhysical,
			Address: "900 Elm St", PlaceID: "plc-1",
		})
		s.ErrorIs(s.stores.Create(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("duplicate dedup key conflicts", func() {
		dup := s.newStore(models.StoreInput{
			Name: "GREEN GROCER", Type: models.StoreTypePhysical,
			Address: "100 Oak Street",
		})
		s.ErrorIs(s.stores.Create(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("empty place ids do not collide", func() {
		s.seed(models.StoreInput{Name: "Alpha", Type: models.StoreTypePhysical, Address: "1 A St"})
		s.seed(models.StoreInput{Name: "Beta", Type: models.StoreTypePhysical, Address: "2 B St"})
	})
}

// TestConcurrentDuplicateInsert verifies the unique index is the arbiter for
// racing submissions: exactly one insert wins, every loser sees ErrConflict.
func (s *PostgresStoresSuite) TestConcurrentDuplicateInsert() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var success, conflict atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := s.newStore(models.StoreInput{
				Name: "Green Grocer", Type: models.StoreTypePhysical,
				Address: "100 Oak St", City: "Austin",
			})
			switch err := s.stores.Create(ctx, st); {
			case err == nil:
				success.Add(1)
			default:
				s.ErrorIs(err, sentinel.ErrConflict)
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), success.Load())
	s.Equal(int32(goroutines-1), conflict.Load())
}

func (s *PostgresStoresSuite) TestListAndSearch() {
	ctx := context.Background()

	chain, err := models.NewStoreChain("Kroger", models.ChainTypeNational, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.chains.Create(ctx, chain))

	s.seed(models.StoreInput{Name: "Beta Market", Type: models.StoreTypePhysical, Address: "2 B St", City: "Austin", State: "TX", ChainID: &chain.ID})
	s.seed(models.StoreInput{Name: "Alpha Market", Type: models.StoreTypePhysical, Address: "1 A St", City: "Austin", State: "TX"})
	s.seed(models.StoreInput{Name: "Gamma Depot", Type: models.StoreTypePhysical, Address: "3 G St", City: "Dallas", State: "TX"})

	s.Run("list orders by name", func() {
		out, err := s.stores.List(ctx, store.Filter{})
		s.Require().NoError(err)
		s.Require().Len(out, 3)
		s.Equal("Alpha Market", out[0].Name)
	})

	s.Run("list filters by city", func() {
		out, err := s.stores.List(ctx, store.Filter{City: "AUSTIN"})
		s.Require().NoError(err)
		s.Len(out, 2)
	})

	s.Run("list filters by chain", func() {
		out, err := s.stores.List(ctx, store.Filter{ChainID: &chain.ID})
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal("Beta Market", out[0].Name)
	})

	s.Run("search matches name tokens", func() {
		out, err := s.stores.Search(ctx, []string{"market"}, "")
		s.Require().NoError(err)
		s.Len(out, 2)
	})

	s.Run("search matches city", func() {
		out, err := s.stores.Search(ctx, []string{"zzz"}, "Dallas")
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal("Gamma Depot", out[0].Name)
	})

	s.Run("search with nothing to match returns nothing", func() {
		out, err := s.stores.Search(ctx, nil, "")
		s.Require().NoError(err)
		s.Empty(out)
	})
}

type PostgresChainsSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	chains   *store.PostgresChains
}

func TestPostgresChainsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresChainsSuite))
}

func (s *PostgresChainsSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.chains = store.NewPostgresChains(s.postgres.DB)
}

func (s *PostgresChainsSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "stores", "chains"))
}

func (s *PostgresChainsSuite) newChain(name string) *models.StoreChain {
	chain, err := models.NewStoreChain(name, models.ChainTypeNational, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return chain
}

func (s *PostgresChainsSuite) TestCreateFindUpdate() {
	ctx := context.Background()

	chain := s.newChain("Safewy")
	s.Require().NoError(s.chains.Create(ctx, chain))

	s.Run("find by id", func() {
		found, err := s.chains.FindByID(ctx, chain.ID)
		s.Require().NoError(err)
		s.Equal("Safewy", found.Name)
	})

	s.Run("name uniqueness is case-insensitive", func() {
		s.ErrorIs(s.chains.Create(ctx, s.newChain("SAFEWY")), sentinel.ErrConflict)
	})

	s.Run("rename persists", func() {
		s.Require().NoError(chain.Rename("Safeway", time.Now().UTC()))
		s.Require().NoError(s.chains.Update(ctx, chain))
		found, err := s.chains.FindByID(ctx, chain.ID)
		s.Require().NoError(err)
		s.Equal("Safeway", found.Name)
	})

	s.Run("updating an unknown chain is not found", func() {
		s.ErrorIs(s.chains.Update(ctx, s.newChain("Ghost")), sentinel.ErrNotFound)
	})

	s.Run("list orders by name", func() {
		s.Require().NoError(s.chains.Create(ctx, s.newChain("Aldi")))
		out, err := s.chains.List(ctx)
		s.Require().NoError(err)
		s.Require().Len(out, 2)
		s.Equal("Aldi", out[0].Name)
	})
}
