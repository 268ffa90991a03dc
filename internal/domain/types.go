package domain

import "strings"

// Arm is the experiment group a store was assigned to.
type Arm string

const (
	ArmControl   Arm = "Control"
	ArmTreatment Arm = "Experimento_A"
)

// Region is the geographic area of a store.
type Region string

const (
	RegionEste  Region = "Este"
	RegionNorte Region = "Norte"
	RegionSur   Region = "Sur"
	RegionOeste Region = "Oeste"
)

// StoreType is the store format.
type StoreType string

const (
	StoreMall   StoreType = "Mall"
	StoreStreet StoreType = "Street"
	StoreOutlet StoreType = "Outlet"
)

// Arms, Regions and StoreTypes list the closed vocabularies in canonical order.
var (
	Arms       = []Arm{ArmControl, ArmTreatment}
	Regions    = []Region{RegionEste, RegionNorte, RegionSur, RegionOeste}
	StoreTypes = []StoreType{StoreMall, StoreStreet, StoreOutlet}
)

// Dimension names a categorical column of the dataset.
type Dimension string

const (
	DimArm       Dimension = "experiment_arm"
	DimRegion    Dimension = "region"
	DimStoreType Dimension = "store_type"
)

// Dimensions lists the categorical dimensions in canonical order.
var Dimensions = []Dimension{DimArm, DimRegion, DimStoreType}

// Values returns the canonical values of a dimension.
func (d Dimension) Values() []string {
	switch d {
	case DimArm:
		out := make([]string, len(Arms))
		for i, a := range Arms {
			out[i] = string(a)
		}
		return out
	case DimRegion:
		out := make([]string, len(Regions))
		for i, r := range Regions {
			out[i] = string(r)
		}
		return out
	case DimStoreType:
		out := make([]string, len(StoreTypes))
		for i, s := range StoreTypes {
			out[i] = string(s)
		}
		return out
	}
	return nil
}

// Canonical maps a case-insensitive value onto the dimension's canonical spelling.
func (d Dimension) Canonical(value string) (string, bool) {
	for _, v := range d.Values() {
		if strings.EqualFold(v, strings.TrimSpace(value)) {
			return v, true
		}
	}
	return "", false
}

// ExperimentRow is one store's result within the experiment. Rows are immutable once loaded.
type ExperimentRow struct {
	ID             int       `json:"id"`
	Arm            Arm       `json:"experiment_arm"`
	StoreID        string    `json:"store_id"`
	Region         Region    `json:"region"`
	StoreType      StoreType `json:"store_type"`
	Users          int       `json:"users"`
	Conversions    int       `json:"conversions"`
	Revenue        float64   `json:"revenue"`
	ConversionRate float64   `json:"conversion_rate"`
}

// Value returns the row's value for a categorical dimension.
func (r ExperimentRow) Value(d Dimension) string {
	switch d {
	case DimArm:
		return string(r.Arm)
	case DimRegion:
		return string(r.Region)
	case DimStoreType:
		return string(r.StoreType)
	}
	return ""
}

// FilterSet holds optional equality constraints. An empty field means no constraint.
type FilterSet struct {
	Arm       Arm       `json:"experiment_arm,omitempty"`
	Region    Region    `json:"region,omitempty"`
	StoreType StoreType `json:"store_type,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f FilterSet) IsEmpty() bool {
	return f.Arm == "" && f.Region == "" && f.StoreType == ""
}

// Get returns the constraint for a dimension, or "" when unset.
func (f FilterSet) Get(d Dimension) string {
	switch d {
	case DimArm:
		return string(f.Arm)
	case DimRegion:
		return string(f.Region)
	case DimStoreType:
		return string(f.StoreType)
	}
	return ""
}

// With returns a copy of f constrained on d.
func (f FilterSet) With(d Dimension, value string) FilterSet {
	switch d {
	case DimArm:
		f.Arm = Arm(value)
	case DimRegion:
		f.Region = Region(value)
	case DimStoreType:
		f.StoreType = StoreType(value)
	}
	return f
}

// Matches reports whether the row satisfies every set constraint.
func (f FilterSet) Matches(r ExperimentRow) bool {
	for _, d := range Dimensions {
		if v := f.Get(d); v != "" && v != r.Value(d) {
			return false
		}
	}
	return true
}

// String renders the set constraints as "dim=value" pairs.
func (f FilterSet) String() string {
	var parts []string
	for _, d := range Dimensions {
		if v := f.Get(d); v != "" {
			parts = append(parts, string(d)+"="+v)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// Hit is a row returned by an index lookup, with its similarity score.
type Hit struct {
	RowID int
	Score float64
}
