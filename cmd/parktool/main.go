package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"carpark-data-service/internal/adapters/cache"
	"carpark-data-service/internal/adapters/lta"
	"carpark-data-service/internal/adapters/ura"
	"carpark-data-service/internal/config"
	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/projection"
	"carpark-data-service/internal/services"
	"carpark-data-service/internal/tabular"
)

// parktool is a terminal client for the carpark data feeds:
//
//	parktool avail    fetch live availability and render it
//	parktool show     re-render the last fetched snapshot (no network)
//	parktool rates    fetch tariff windows for one carpark
//	parktool convert  convert between WGS84 and SVY21 coordinates
func main() {
	log.SetFlags(0)

	// CLI runs are fine on plain environment variables.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "avail":
		err = runAvail(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "rates":
		err = runRates(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: parktool <command> [flags]

commands:
  avail     fetch live availability from URA/LTA and render a table
  show      re-render the last fetched snapshot (no network)
  rates     fetch tariff windows for one carpark
  convert   convert between WGS84 and SVY21 coordinates

run "parktool <command> -h" for command flags`)
}

func runAvail(args []string) error {
	flags := flag.NewFlagSet("avail", flag.ExitOnError)
	agency := flags.String("agency", "", "only fetch one agency (URA or LTA)")
	lotType := flags.String("lot-type", "", "filter by lot type code (C, H, Y, M)")
	asJSON := flags.Bool("json", false, "print rows as JSON instead of a table")
	dbPath := flags.String("db", config.Get("PARKTOOL_DB", "parktool.db"), "snapshot database path")
	if err := flags.Parse(args); err != nil {
		return err
	}

	providers, err := buildProviders(strings.ToUpper(strings.TrimSpace(*agency)))
	if err != nil {
		return err
	}

	svc := &services.AvailabilityService{Providers: providers, Proj: projection.NewSVY21()}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	snap, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}

	rows := filterRows(snap.Rows, strings.ToUpper(strings.TrimSpace(*lotType)))
	if *asJSON {
		if err := printJSON(os.Stdout, snap.FetchedAt, rows); err != nil {
			return err
		}
	} else {
		tabular.FromAvailability(rows).Render(os.Stdout)
		fmt.Printf("%d rows fetched at %s\n", len(rows), snap.FetchedAt.Format(time.RFC3339))
	}

	if err := saveSnapshot(*dbPath, snap); err != nil {
		log.Printf("warning: could not save snapshot: %v", err)
	}
	return nil
}

func runShow(args []string) error {
	flags := flag.NewFlagSet("show", flag.ExitOnError)
	lotType := flags.String("lot-type", "", "filter by lot type code (C, H, Y, M)")
	asCSV := flags.Bool("csv", false, "print rows as CSV instead of a table")
	dbPath := flags.String("db", config.Get("PARKTOOL_DB", "parktool.db"), "snapshot database path")
	if err := flags.Parse(args); err != nil {
		return err
	}

	sqlite, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		return fmt.Errorf("open snapshot database %q: %w", *dbPath, err)
	}
	defer sqlite.Close()

	store := cache.NewSqliteSnapshotStore(sqlite)
	if err := store.InitSchema(); err != nil {
		return err
	}

	snap, ok, err := store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(`no saved snapshot; run "parktool avail" first`)
	}

	rows := filterRows(snap.Rows, strings.ToUpper(strings.TrimSpace(*lotType)))
	if *asCSV {
		return tabular.FromAvailability(rows).RenderCSV(os.Stdout)
	}
	tabular.FromAvailability(rows).Render(os.Stdout)
	fmt.Printf("%d rows fetched at %s\n", len(rows), snap.FetchedAt.Format(time.RFC3339))
	return nil
}

func runRates(args []string) error {
	flags := flag.NewFlagSet("rates", flag.ExitOnError)
	code := flags.String("code", "", "carpark code (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	want := strings.ToUpper(strings.TrimSpace(*code))
	if want == "" {
		return errors.New("rates: -code is required")
	}

	uraKey := strings.TrimSpace(os.Getenv("URA_ACCESS_KEY"))
	if uraKey == "" {
		return errors.New("rates: URA_ACCESS_KEY is required")
	}
	client, err := ura.NewClient(uraKey)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, rates, err := client.ListCarparks(ctx)
	if err != nil {
		return err
	}

	matched := make([]domain.RateWindow, 0, 8)
	for _, w := range rates {
		if strings.ToUpper(w.CarparkCode) == want {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("rates: no carpark %q in the directory", want)
	}

	tabular.FromRates(matched).Render(os.Stdout)
	return nil
}

func runConvert(args []string) error {
	flags := flag.NewFlagSet("convert", flag.ExitOnError)
	lat := flags.Float64("lat", 0, "WGS84 latitude in degrees")
	lon := flags.Float64("lon", 0, "WGS84 longitude in degrees")
	northing := flags.Float64("northing", 0, "SVY21 northing in metres")
	easting := flags.Float64("easting", 0, "SVY21 easting in metres")
	if err := flags.Parse(args); err != nil {
		return err
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	proj := projection.NewSVY21()
	switch {
	case set["lat"] && set["lon"]:
		n, e := proj.LatLonToSVY21(*lat, *lon)
		fmt.Printf("lat=%.8f lon=%.8f -> northing=%.4f easting=%.4f\n", *lat, *lon, n, e)
	case set["northing"] && set["easting"]:
		la, lo := proj.SVY21ToLatLon(*northing, *easting)
		fmt.Printf("northing=%.4f easting=%.4f -> lat=%.8f lon=%.8f\n", *northing, *easting, la, lo)
	default:
		return errors.New("convert: provide -lat and -lon, or -northing and -easting")
	}
	return nil
}

func buildProviders(agency string) ([]ports.AvailabilityProvider, error) {
	uraKey := strings.TrimSpace(os.Getenv("URA_ACCESS_KEY"))
	ltaKey := strings.TrimSpace(os.Getenv("LTA_ACCOUNT_KEY"))

	var providers []ports.AvailabilityProvider
	if (agency == "" || agency == "URA") && uraKey != "" {
		client, err := ura.NewClient(uraKey)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}
	if (agency == "" || agency == "LTA") && ltaKey != "" {
		client, err := lta.NewClient(ltaKey)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}

	if len(providers) == 0 {
		if agency != "" {
			return nil, fmt.Errorf("no API key configured for agency %s", agency)
		}
		return nil, errors.New("set URA_ACCESS_KEY and/or LTA_ACCOUNT_KEY")
	}
	return providers, nil
}

func filterRows(rows []domain.CarparkAvailability, lotType string) []domain.CarparkAvailability {
	if lotType == "" {
		return rows
	}

	out := make([]domain.CarparkAvailability, 0, len(rows))
	for _, row := range rows {
		if row.LotType == lotType {
			out = append(out, row)
		}
	}
	return out
}

type availabilityRowJSON struct {
	CarparkID   string   `json:"carpark_id"`
	Agency      string   `json:"agency"`
	Development string   `json:"development,omitempty"`
	Area        string   `json:"area,omitempty"`
	LotType     string   `json:"lot_type"`
	LotLabel    string   `json:"lot_label"`
	Lots        int      `json:"lots"`
	Northing    *float64 `json:"northing,omitempty"`
	Easting     *float64 `json:"easting,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

func printJSON(w io.Writer, fetchedAt time.Time, rows []domain.CarparkAvailability) error {
	out := struct {
		FetchedAt time.Time             `json:"fetched_at"`
		Count     int                   `json:"count"`
		Rows      []availabilityRowJSON `json:"rows"`
	}{FetchedAt: fetchedAt, Count: len(rows), Rows: make([]availabilityRowJSON, 0, len(rows))}

	for _, rec := range rows {
		row := availabilityRowJSON{
			CarparkID:   rec.CarparkID,
			Agency:      string(rec.Agency),
			Development: rec.Development,
			Area:        rec.Area,
			LotType:     rec.LotType,
			LotLabel:    rec.LotLabel,
			Lots:        rec.Lots,
		}
		if rec.SVY21 != nil {
			northing, easting := rec.SVY21.Northing, rec.SVY21.Easting
			row.Northing, row.Easting = &northing, &easting
		}
		if rec.Location != nil {
			lat, lon := rec.Location.Lat, rec.Location.Lon
			row.Lat, row.Lon = &lat, &lon
		}
		out.Rows = append(out.Rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func saveSnapshot(path string, snap *ports.AvailabilitySnapshot) error {
	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open snapshot database %q: %w", path, err)
	}
	defer sqlite.Close()

	store := cache.NewSqliteSnapshotStore(sqlite)
	if err := store.InitSchema(); err != nil {
		return err
	}
	return store.Replace(snap)
}
