// Package availability turns flat store/chain availability records into the
// grouping the directory UI renders: chain groups first, then online and
// independent buckets. Pure composition; empty inputs yield empty outputs.
package availability

import (
	"sort"
	"strings"

	"plantpantry/internal/directory/models"
	"plantpantry/internal/geo"
	"plantpantry/pkg/domain"
)

// ChainGroup is the set of locations for one chain. Grouping is by the
// chain's own ID, not the company-level key: presentation keeps "Walmart
// Supercenter" and "Walmart Neighborhood Market" as separate groups.
type ChainGroup struct {
	ChainID domain.ChainID     `json:"chain_id"`
	Chain   *models.StoreChain `json:"chain,omitempty"`
	// Declared marks a chain-level availability declaration ("available at
	// every location") independent of store-level records.
	Declared  bool            `json:"declared"`
	Locations []*models.Store `json:"locations"`
}

// Grouped is the presentation-ready availability set.
type Grouped struct {
	// Chains ordered by descending location count, ties by chain name.
	Chains []ChainGroup `json:"chains"`
	// Online holds online-retailer and brand-direct stores without chains.
	Online []*models.Store `json:"online"`
	// Independents holds chainless physical stores.
	Independents []*models.Store `json:"independents"`
}

// Aggregate groups store-level availability records by chain and buckets the
// remainder. Within a group (and within each bucket) locations are ordered
// by distance from the origin when it has coordinates, otherwise by city
// then name.
func Aggregate(origin *geo.Point, stores []*models.Store, chainDecls []*models.StoreChain, knownChains []*models.StoreChain) Grouped {
	chainByID := make(map[domain.ChainID]*models.StoreChain, len(knownChains))
	for _, c := range knownChains {
		chainByID[c.ID] = c
	}

	groups := make(map[domain.ChainID]*ChainGroup)
	var out Grouped

	for _, st := range stores {
		if st.ChainID != nil {
			g, ok := groups[*st.ChainID]
			if !ok {
				g = &ChainGroup{ChainID: *st.ChainID, Chain: chainByID[*st.ChainID]}
				groups[*st.ChainID] = g
			}
			g.Locations = append(g.Locations, st)
			continue
		}
		if st.Type.Physical() {
			out.Independents = append(out.Independents, st)
		} else {
			out.Online = append(out.Online, st)
		}
	}

	for _, decl := range chainDecls {
		g, ok := groups[decl.ID]
		if !ok {
			g = &ChainGroup{ChainID: decl.ID, Chain: decl}
			groups[decl.ID] = g
		}
		g.Declared = true
		if g.Chain == nil {
			g.Chain = decl
		}
	}

	for _, g := range groups {
		sortStores(origin, g.Locations)
		out.Chains = append(out.Chains, *g)
	}
	sort.Slice(out.Chains, func(i, j int) bool {
		if len(out.Chains[i].Locations) != len(out.Chains[j].Locations) {
			return len(out.Chains[i].Locations) > len(out.Chains[j].Locations)
		}
		return chainName(out.Chains[i]) < chainName(out.Chains[j])
	})

	sortStores(origin, out.Independents)
	sort.Slice(out.Online, func(i, j int) bool { return out.Online[i].Name < out.Online[j].Name })

	return out
}

func chainName(g ChainGroup) string {
	if g.Chain != nil {
		return g.Chain.Name
	}
	return g.ChainID.String()
}

// sortStores orders by distance when the origin is usable, else by city then
// name. Stores without coordinates sort after located ones in distance mode.
func sortStores(origin *geo.Point, stores []*models.Store) {
	if origin == nil {
		sort.Slice(stores, func(i, j int) bool {
			ci, cj := strings.ToLower(stores[i].City), strings.ToLower(stores[j].City)
			if ci != cj {
				return ci < cj
			}
			return stores[i].Name < stores[j].Name
		})
		return
	}

	dist := func(st *models.Store) float64 {
		p := st.Point()
		if p == nil {
			return -1
		}
		return geo.Distance(*origin, *p)
	}
	sort.Slice(stores, func(i, j int) bool {
		di, dj := dist(stores[i]), dist(stores[j])
		if (di < 0) != (dj < 0) {
			return dj < 0
		}
		if di != dj {
			return di < dj
		}
		return stores[i].Name < stores[j].Name
	})
}
