package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{
			name: "valid higher is worse",
			def: Definition{ID: "cape", Category: valueobject.Valuation,
				Min: 10, Max: 45, Percentile90: 35, HigherIsWorse: true},
		},
		{
			name: "valid lower is worse without percentile",
			def: Definition{ID: "pmi", Category: valueobject.Macro,
				Min: 40, Max: 65, HigherIsWorse: false},
		},
		{
			name:    "missing id",
			def:     Definition{Category: valueobject.Valuation, Min: 0, Max: 1},
			wantErr: "id is required",
		},
		{
			name:    "bad category",
			def:     Definition{ID: "x", Category: "quant", Min: 0, Max: 1},
			wantErr: "invalid indicator category",
		},
		{
			name:    "degenerate range",
			def:     Definition{ID: "x", Category: valueobject.Market, Min: 5, Max: 5},
			wantErr: "must be less than max",
		},
		{
			name: "percentile at max",
			def: Definition{ID: "x", Category: valueobject.Market,
				Min: 0, Max: 10, Percentile90: 10, HigherIsWorse: true},
			wantErr: "must lie inside",
		},
		{
			name: "percentile at min",
			def: Definition{ID: "x", Category: valueobject.Market,
				Min: 0, Max: 10, Percentile90: 0, HigherIsWorse: true},
			wantErr: "must lie inside",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewRegistry_DefaultTable(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	defs := r.Definitions()
	if len(defs) == 0 {
		t.Fatal("default table is empty")
	}

	// Каждая категория представлена хотя бы одним индикатором
	byCategory := make(map[valueobject.Category]int)
	for _, d := range defs {
		byCategory[d.Category]++
	}
	for _, c := range valueobject.AllCategories() {
		if byCategory[c] == 0 {
			t.Fatalf("category %s has no indicators in default table", c)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators.yaml")
	content := `indicators:
  - id: cape
    name: Shiller CAPE
    category: valuation
    series_id: MULTPL/SHILLER_PE
    min: 10
    max: 45
    percentile90: 35
    threshold: 30
    higher_is_worse: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r, err := NewRegistryFromFile(path)
	if err != nil {
		t.Fatalf("NewRegistryFromFile() error = %v", err)
	}

	defs := r.Definitions()
	if len(defs) != 1 {
		t.Fatalf("Definitions() = %d, want 1", len(defs))
	}
	if defs[0].ID != "cape" || defs[0].SeriesID != "MULTPL/SHILLER_PE" {
		t.Fatalf("definition = %+v", defs[0])
	}
}

func TestLoadFile_KeepsPreviousTableOnError(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	before := len(r.Definitions())

	path := filepath.Join(t.TempDir(), "indicators.yaml")
	if err := os.WriteFile(path, []byte("indicators: ["), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := r.LoadFile(path); err == nil {
		t.Fatal("LoadFile() expected error for broken yaml")
	}
	if got := len(r.Definitions()); got != before {
		t.Fatalf("Definitions() = %d after failed reload, want %d", got, before)
	}
}

func TestLoadFile_RejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators.yaml")
	content := `indicators:
  - id: vix
    category: market
    min: 10
    max: 80
    percentile90: 35
    higher_is_worse: true
  - id: vix
    category: market
    min: 10
    max: 80
    percentile90: 35
    higher_is_worse: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := NewRegistryFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate indicator id") {
		t.Fatalf("NewRegistryFromFile() error = %v, want duplicate id error", err)
	}
}

func TestLoadFile_RejectsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators.yaml")
	if err := os.WriteFile(path, []byte("indicators: []\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := NewRegistryFromFile(path); err == nil {
		t.Fatal("NewRegistryFromFile() expected error for empty table")
	}
}

func TestDefinitions_ReturnsCopy(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	defs := r.Definitions()
	original := defs[0].ID
	defs[0].ID = "mutated"

	if got := r.Definitions()[0].ID; got != original {
		t.Fatalf("Definitions()[0].ID = %s, caller mutation leaked into registry", got)
	}
}
