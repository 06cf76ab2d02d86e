package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite catalog sources use two tables; list-valued columns hold JSON text.
//
//	entries(canonical_key, display_name, aliases, accepted_units)
//	offers(vendor_id, canonical_key, unit_price, coverage_zips)
type entryRow struct {
	CanonicalKey  string `db:"canonical_key"`
	DisplayName   string `db:"display_name"`
	Aliases       string `db:"aliases"`
	AcceptedUnits string `db:"accepted_units"`
}

type offerRow struct {
	VendorID     string `db:"vendor_id"`
	CanonicalKey string `db:"canonical_key"`
	UnitPrice    string `db:"unit_price"`
	CoverageZips string `db:"coverage_zips"`
}

func loadSQLite(path string) (*Catalog, error) {
	db, err := sqlx.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	defer db.Close()

	var entryRows []entryRow
	if err := db.Select(&entryRows, `SELECT canonical_key, display_name, aliases, accepted_units FROM entries ORDER BY canonical_key`); err != nil {
		return nil, fmt.Errorf("read catalog entries: %w", err)
	}
	var offerRows []offerRow
	if err := db.Select(&offerRows, `SELECT vendor_id, canonical_key, unit_price, coverage_zips FROM offers ORDER BY canonical_key, vendor_id`); err != nil {
		return nil, fmt.Errorf("read catalog offers: %w", err)
	}

	var entries []Entry
	for _, row := range entryRows {
		e := Entry{CanonicalKey: row.CanonicalKey, DisplayName: row.DisplayName}
		if err := json.Unmarshal([]byte(row.Aliases), &e.Aliases); err != nil {
			return nil, fmt.Errorf("entry %q: bad aliases column: %w", row.CanonicalKey, err)
		}
		if err := json.Unmarshal([]byte(row.AcceptedUnits), &e.AcceptedUnits); err != nil {
			return nil, fmt.Errorf("entry %q: bad accepted_units column: %w", row.CanonicalKey, err)
		}
		entries = append(entries, e)
	}

	var offers []Offer
	for _, row := range offerRows {
		price, perr := parsePrice(row.UnitPrice)
		if perr != nil {
			return nil, fmt.Errorf("offer %s/%s: %w", row.VendorID, row.CanonicalKey, perr)
		}
		o := Offer{
			VendorID:     row.VendorID,
			CanonicalKey: row.CanonicalKey,
			UnitPrice:    price,
			Currency:     Currency,
		}
		if err := json.Unmarshal([]byte(row.CoverageZips), &o.CoverageZips); err != nil {
			return nil, fmt.Errorf("offer %s/%s: bad coverage_zips column: %w", row.VendorID, row.CanonicalKey, err)
		}
		offers = append(offers, o)
	}

	c, err := New(entries, offers)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad unit_price %q: %w", raw, err)
	}
	return price, nil
}
