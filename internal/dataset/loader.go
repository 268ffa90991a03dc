package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"abchat/internal/apperr"
	"abchat/internal/domain"
)

// RateTolerance is the absolute tolerance between conversion_rate and conversions/users.
const RateTolerance = 0.005

type column int

const (
	colArm column = iota
	colStoreID
	colRegion
	colStoreType
	colUsers
	colConversions
	colRevenue
	colRate
	numColumns
)

var columnNames = [numColumns]string{"experiment_arm", "store_id", "region", "store_type", "users", "conversions", "revenue", "conversion_rate"}

// headerAliases maps accepted header spellings to columns. The source dataset uses Spanish names.
var headerAliases = map[string]column{
	"experimento":     colArm,
	"experiment":      colArm,
	"experiment_arm":  colArm,
	"tienda_id":       colStoreID,
	"store_id":        colStoreID,
	"region":          colRegion,
	"región":          colRegion,
	"tipo_tienda":     colStoreType,
	"store_type":      colStoreType,
	"usuarios":        colUsers,
	"users":           colUsers,
	"conversiones":    colConversions,
	"conversions":     colConversions,
	"revenue":         colRevenue,
	"ingresos":        colRevenue,
	"conversion_rate": colRate,
}

// Load reads the dataset file at path. Any failure is a fatal DataError.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindData, "open dataset "+path)
	}
	defer f.Close()
	rows, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return New(path, rows), nil
}

// Parse decodes CSV rows and validates them against the row invariants.
func Parse(r io.Reader) ([]domain.ExperimentRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Data("dataset is empty")
		}
		return nil, apperr.Wrap(err, apperr.KindData, "read dataset header")
	}
	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.ExperimentRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindData, fmt.Sprintf("line %d: malformed record", line))
		}
		if isBlank(record) {
			continue
		}
		row, err := parseRow(record, index)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindData, fmt.Sprintf("line %d", line))
		}
		row.ID = len(rows)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, apperr.Data("dataset has no rows")
	}
	return rows, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if c, ok := headerAliases[key]; ok && index[c] < 0 {
			index[c] = i
		}
	}
	var missing []string
	for c, pos := range index {
		if pos < 0 {
			missing = append(missing, columnNames[c])
		}
	}
	if len(missing) > 0 {
		return index, apperr.Data("missing columns: " + strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRow(record []string, index [numColumns]int) (domain.ExperimentRow, error) {
	field := func(c column) string {
		pos := index[c]
		if pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	var row domain.ExperimentRow
	arm, ok := domain.DimArm.Canonical(field(colArm))
	if !ok {
		return row, fmt.Errorf("%s: unknown value %q", columnNames[colArm], field(colArm))
	}
	region, ok := domain.DimRegion.Canonical(field(colRegion))
	if !ok {
		return row, fmt.Errorf("%s: unknown value %q", columnNames[colRegion], field(colRegion))
	}
	storeType, ok := domain.DimStoreType.Canonical(field(colStoreType))
	if !ok {
		return row, fmt.Errorf("%s: unknown value %q", columnNames[colStoreType], field(colStoreType))
	}
	row.Arm = domain.Arm(arm)
	row.Region = domain.Region(region)
	row.StoreType = domain.StoreType(storeType)

	row.StoreID = field(colStoreID)
	if row.StoreID == "" {
		return row, fmt.Errorf("%s: empty", columnNames[colStoreID])
	}

	users, err := parseCount(field(colUsers))
	if err != nil {
		return row, fmt.Errorf("%s: %w", columnNames[colUsers], err)
	}
	conversions, err := parseCount(field(colConversions))
	if err != nil {
		return row, fmt.Errorf("%s: %w", columnNames[colConversions], err)
	}
	if conversions > users {
		return row, fmt.Errorf("%s: %d exceeds users %d", columnNames[colConversions], conversions, users)
	}
	revenue, err := strconv.ParseFloat(field(colRevenue), 64)
	if err != nil || math.IsNaN(revenue) || math.IsInf(revenue, 0) {
		return row, fmt.Errorf("%s: invalid number %q", columnNames[colRevenue], field(colRevenue))
	}
	if revenue < 0 {
		return row, fmt.Errorf("%s: negative value %v", columnNames[colRevenue], revenue)
	}
	rate, err := strconv.ParseFloat(field(colRate), 64)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return row, fmt.Errorf("%s: invalid number %q", columnNames[colRate], field(colRate))
	}
	rate, err = normalizeRate(rate, users, conversions)
	if err != nil {
		return row, fmt.Errorf("%s: %w", columnNames[colRate], err)
	}

	row.Users = users
	row.Conversions = conversions
	row.Revenue = revenue
	row.ConversionRate = rate
	return row, nil
}

func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return n, nil
	}
	// pandas exports integer columns with NaN gaps as floats ("120.0")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative value %v", f)
	}
	return int(f), nil
}

// normalizeRate returns the rate as a ratio in [0,1]. Percentages are accepted
// when value/100 satisfies the invariant and the raw value does not.
func normalizeRate(rate float64, users, conversions int) (float64, error) {
	if rate < 0 {
		return 0, fmt.Errorf("negative value %v", rate)
	}
	if users == 0 {
		if rate != 0 {
			return 0, fmt.Errorf("%v with zero users", rate)
		}
		return 0, nil
	}
	expected := float64(conversions) / float64(users)
	if rate <= 1 && math.Abs(rate-expected) <= RateTolerance {
		return rate, nil
	}
	if pct := rate / 100; math.Abs(pct-expected) <= RateTolerance {
		return pct, nil
	}
	return 0, fmt.Errorf("%v does not match conversions/users %.4f", rate, expected)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
