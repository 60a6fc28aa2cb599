package visibility

import (
	"fmt"
	"io"

	"github.com/kjstillabower/model-catalog/internal/models"
)

// Fixture returns the six reference records used by the self-check:
// two regular models, one arena-owned, one arena-flagged, one hidden, one normal.
func Fixture() []models.ModelRecord {
	return []models.ModelRecord{
		{ID: "model1", Name: "Regular Model 1", OwnedBy: "ollama"},
		{ID: "model2", Name: "Regular Model 2", OwnedBy: "openai"},
		{ID: "arena-model", Name: "Arena Model", OwnedBy: "arena"},
		{ID: "model3", Name: "Model with arena flag", Arena: models.Bool(true)},
		{ID: "model4", Name: "Hidden Model", Info: &models.ModelInfo{Meta: &models.ModelMeta{Hidden: models.Bool(true)}}},
		{ID: "model5", Name: "Normal Model", OwnedBy: "ollama"},
	}
}

// ExpectedVisibleNames is the set of fixture names that must survive Filter.
func ExpectedVisibleNames() []string {
	return []string{"Regular Model 1", "Regular Model 2", "Normal Model"}
}

// CheckReport is the outcome of running Filter over a record set and comparing
// the retained names with an expected set.
type CheckReport struct {
	Original      int      `json:"original"`
	Filtered      int      `json:"filtered"`
	FilteredNames []string `json:"filteredNames"`
	Passed        bool     `json:"passed"`
}

// RunCheck filters records and compares the retained names against expected, ignoring order.
func RunCheck(records []models.ModelRecord, expected []string) CheckReport {
	kept := Filter(records)
	names := Names(kept)
	return CheckReport{
		Original:      len(records),
		Filtered:      len(kept),
		FilteredNames: names,
		Passed:        SameNames(expected, names),
	}
}

// Write prints the report as four console lines.
func (r CheckReport) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Original models: %d\nFiltered models: %d\nFiltered model names: %q\nTest passed: %t\n",
		r.Original, r.Filtered, r.FilteredNames, r.Passed)
	return err
}
