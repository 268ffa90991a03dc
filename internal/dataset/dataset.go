package dataset

import (
	"fmt"
	"sort"
	"strings"

	"abchat/internal/domain"
)

// Dataset is the loaded, read-only experiment table.
type Dataset struct {
	path    string
	rows    []domain.ExperimentRow
	byStore map[string]int
}

// New wraps validated rows. Row ids must equal their positions.
func New(path string, rows []domain.ExperimentRow) *Dataset {
	byStore := make(map[string]int, len(rows))
	for i, r := range rows {
		key := strings.ToUpper(r.StoreID)
		if _, dup := byStore[key]; !dup {
			byStore[key] = i
		}
	}
	return &Dataset{path: path, rows: rows, byStore: byStore}
}

// Path is the file the dataset was loaded from.
func (d *Dataset) Path() string { return d.path }

// Rows returns the shared row slice. Callers must not modify it.
func (d *Dataset) Rows() []domain.ExperimentRow { return d.rows }

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// FindStore looks a row up by store id, case-insensitively.
func (d *Dataset) FindStore(storeID string) (domain.ExperimentRow, bool) {
	i, ok := d.byStore[strings.ToUpper(strings.TrimSpace(storeID))]
	if !ok {
		return domain.ExperimentRow{}, false
	}
	return d.rows[i], true
}

// Summary describes the dataset as a whole.
type Summary struct {
	Records           int                `json:"total_records"`
	Arms              []string           `json:"experiments"`
	Regions           []string           `json:"regions"`
	StoreTypes        []string           `json:"store_types"`
	Users             int                `json:"total_users"`
	Conversions       int                `json:"total_conversions"`
	Revenue           float64            `json:"total_revenue"`
	AvgConversionRate float64            `json:"avg_conversion_rate"`
	RowsPerArm        map[domain.Arm]int `json:"rows_per_arm"`
}

// Summarize computes the dataset summary in one pass.
func (d *Dataset) Summarize() Summary {
	s := Summary{Records: len(d.rows), RowsPerArm: make(map[domain.Arm]int)}
	arms := map[string]struct{}{}
	regions := map[string]struct{}{}
	types := map[string]struct{}{}
	rateSum := 0.0
	for _, r := range d.rows {
		arms[string(r.Arm)] = struct{}{}
		regions[string(r.Region)] = struct{}{}
		types[string(r.StoreType)] = struct{}{}
		s.Users += r.Users
		s.Conversions += r.Conversions
		s.Revenue += r.Revenue
		s.RowsPerArm[r.Arm]++
		rateSum += r.ConversionRate
	}
	if len(d.rows) > 0 {
		s.AvgConversionRate = rateSum / float64(len(d.rows))
	}
	s.Arms = orderedKeys(arms, domain.DimArm)
	s.Regions = orderedKeys(regions, domain.DimRegion)
	s.StoreTypes = orderedKeys(types, domain.DimStoreType)
	return s
}

// String renders the summary as a single status line.
func (s Summary) String() string {
	return fmt.Sprintf("%d tiendas · %s · %d usuarios · %d conversiones · $%.2f revenue",
		s.Records, strings.Join(s.Arms, "/"), s.Users, s.Conversions, s.Revenue)
}

// orderedKeys returns the present values in the dimension's canonical order.
func orderedKeys(set map[string]struct{}, dim domain.Dimension) []string {
	out := make([]string, 0, len(set))
	for _, v := range dim.Values() {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	if len(out) != len(set) {
		out = out[:0]
		for k := range set {
			out = append(out, k)
		}
		sort.Strings(out)
	}
	return out
}

// Describe renders a row as the free-text description that feeds the text embedding space.
func Describe(r domain.ExperimentRow) string {
	return fmt.Sprintf("Experimento %s en tienda %s ubicada en la región %s de tipo %s. "+
		"Resultados: %d usuarios visitaron la tienda, generando %d conversiones y un revenue de $%.2f. "+
		"La tasa de conversión fue del %.2f%%. Grupo: %s. Ubicación: %s - %s.",
		r.Arm, r.StoreID, r.Region, r.StoreType,
		r.Users, r.Conversions, r.Revenue,
		r.ConversionRate*100, r.Arm, r.Region, r.StoreType)
}

// Descriptions returns Describe for every row, indexed by row id.
func (d *Dataset) Descriptions() []string {
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = Describe(r)
	}
	return out
}
