package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonDocument is the on-disk JSON shape. Entries carry their offers inline;
// a flat list (rather than a map keyed by canonical key) keeps duplicate
// keys detectable at load time.
type jsonDocument struct {
	Entries []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	CanonicalKey  string      `json:"canonical_key"`
	DisplayName   string      `json:"display_name"`
	Aliases       []string    `json:"aliases"`
	AcceptedUnits []string    `json:"accepted_units"`
	Offers        []jsonOffer `json:"offers"`
}

type jsonOffer struct {
	VendorID     string   `json:"vendor_id"`
	UnitPrice    string   `json:"unit_price"`
	CoverageZips []string `json:"coverage_zips"`
}

func loadJSON(path string) (*Catalog, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc jsonDocument
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	var entries []Entry
	var offers []Offer
	for _, je := range doc.Entries {
		entries = append(entries, Entry{
			CanonicalKey:  je.CanonicalKey,
			DisplayName:   je.DisplayName,
			Aliases:       je.Aliases,
			AcceptedUnits: je.AcceptedUnits,
		})
		for _, jo := range je.Offers {
			price, perr := parsePrice(jo.UnitPrice)
			if perr != nil {
				return nil, fmt.Errorf("catalog %s: offer %s/%s: %w", path, jo.VendorID, je.CanonicalKey, perr)
			}
			offers = append(offers, Offer{
				VendorID:     jo.VendorID,
				CanonicalKey: je.CanonicalKey,
				UnitPrice:    price,
				Currency:     Currency,
				CoverageZips: jo.CoverageZips,
			})
		}
	}

	c, err := New(entries, offers)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
