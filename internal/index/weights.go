package index

import "errors"

// Weights scales each space of the row vector.
type Weights struct {
	Description    float64 `yaml:"description"`
	Arm            float64 `yaml:"experiment_arm"`
	Region         float64 `yaml:"region"`
	StoreType      float64 `yaml:"store_type"`
	Users          float64 `yaml:"users"`
	Conversions    float64 `yaml:"conversions"`
	Revenue        float64 `yaml:"revenue"`
	ConversionRate float64 `yaml:"conversion_rate"`
}

// DefaultWeights favours the description and arm spaces.
func DefaultWeights() Weights {
	return Weights{
		Description:    1.0,
		Arm:            0.9,
		Region:         0.8,
		StoreType:      0.8,
		Users:          0.6,
		Conversions:    0.8,
		Revenue:        0.8,
		ConversionRate: 0.9,
	}
}

func (w Weights) all() []float64 {
	return []float64{w.Description, w.Arm, w.Region, w.StoreType, w.Users, w.Conversions, w.Revenue, w.ConversionRate}
}

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	sum := 0.0
	for _, v := range w.all() {
		if v < 0 {
			return errors.New("space weights must be non-negative")
		}
		sum += v
	}
	if sum == 0 {
		return errors.New("at least one space weight must be positive")
	}
	return nil
}

func (w Weights) numeric(f Field) float64 {
	switch f {
	case FieldUsers:
		return w.Users
	case FieldConversions:
		return w.Conversions
	case FieldRevenue:
		return w.Revenue
	case FieldConversionRate:
		return w.ConversionRate
	}
	return 0
}
