package tabular

import (
	"bytes"
	"strings"
	"testing"

	"carpark-data-service/internal/domain"
)

func TestFromAvailability(t *testing.T) {
	records := []domain.CarparkAvailability{
		{
			CarparkID: "A0004",
			Agency:    domain.AgencyURA,
			LotType:   "C",
			LotLabel:  "Car",
			Lots:      107,
			SVY21:     &domain.SVY21Point{Northing: 31694.0055, Easting: 31045.6165},
			Location:  &domain.LatLon{Lat: 1.30314, Lon: 103.85978},
		},
		{
			CarparkID:   "BM29",
			Agency:      domain.AgencyLTA,
			Development: "Bugis Junction",
			LotType:     "H",
			LotLabel:    "Heavy Vehicle",
			Lots:        3,
		},
	}

	tab := FromAvailability(records)

	if len(tab.Columns) != len(AvailabilityColumns) {
		t.Fatalf("columns = %d, want %d", len(tab.Columns), len(AvailabilityColumns))
	}
	if len(tab.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tab.Rows))
	}

	first := tab.Rows[0]
	if first[0] != "A0004" || first[1] != "URA" {
		t.Fatalf("unexpected identity cells: %v", first[:2])
	}
	if first[2] != "-" {
		t.Fatalf("empty development should render as %q, got %q", "-", first[2])
	}
	if first[5] != "107" {
		t.Fatalf("lots cell = %q, want 107", first[5])
	}
	if first[6] != "31694.0055" || first[7] != "31045.6165" {
		t.Fatalf("plane cells = %q, %q", first[6], first[7])
	}
	if first[8] != "1.303140" || first[9] != "103.859780" {
		t.Fatalf("degree cells = %q, %q", first[8], first[9])
	}

	second := tab.Rows[1]
	if second[2] != "Bugis Junction" {
		t.Fatalf("development cell = %q", second[2])
	}
	for _, i := range []int{6, 7, 8, 9} {
		if second[i] != "-" {
			t.Fatalf("missing coordinate cell %d = %q, want %q", i, second[i], "-")
		}
	}
}

func TestFromRates(t *testing.T) {
	rates := []domain.RateWindow{
		{CarparkCode: "A0004", VehicleCat: "Car", StartTime: "08.30 AM", EndTime: "05.00 PM",
			WeekdayRate: "$0.50", WeekdayMin: "30 mins", SaturdayRate: "$0.50", SaturdayMin: "30 mins",
			SundayPHRate: "$0.50", SundayPHMin: "30 mins"},
		{CarparkCode: "A0004", VehicleCat: "Motorcycle"},
	}

	tab := FromRates(rates)

	if len(tab.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tab.Rows))
	}
	if tab.Rows[0][4] != "$0.50" {
		t.Fatalf("weekday rate cell = %q", tab.Rows[0][4])
	}
	if tab.Rows[1][2] != "-" {
		t.Fatalf("missing start time should render as %q, got %q", "-", tab.Rows[1][2])
	}
}

func TestRender(t *testing.T) {
	tab := &Table{
		Columns: []string{"carpark_id", "lots"},
		Rows:    [][]string{{"A0004", "107"}, {"BM29", "3"}},
	}

	var buf bytes.Buffer
	tab.Render(&buf)

	out := buf.String()
	if !strings.Contains(out, "A0004") || !strings.Contains(out, "107") {
		t.Fatalf("rendered table is missing cells:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines < 4 {
		t.Fatalf("rendered table looks too short (%d lines):\n%s", lines, out)
	}
}

func TestRenderCSV(t *testing.T) {
	tab := &Table{
		Columns: []string{"carpark_id", "lots"},
		Rows:    [][]string{{"A0004", "107"}, {"BM29", "3"}},
	}

	var buf bytes.Buffer
	if err := tab.RenderCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "carpark_id,lots\nA0004,107\nBM29,3\n"
	if buf.String() != want {
		t.Fatalf("csv output = %q, want %q", buf.String(), want)
	}
}
