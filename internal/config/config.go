// Package config holds the clustering and chaining parameters. Values come from
// defaults, the ~/.vibe-sv.yaml file and command line flags bound through viper.
package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Params is the parameter object injected into the clustering and chaining core.
type Params struct {
	// breakends closer than this are clustered by proximity
	ProximityDistance int64 `mapstructure:"proximity-distance"`

	// same-type breakends within this distance are duplicate calls
	DuplicateBreakendDistance int64 `mapstructure:"duplicate-breakend-distance"`

	// single breakends within this distance of a paired breakend are low-confidence duplicates
	SingleDuplicateDistance int64 `mapstructure:"single-duplicate-distance"`

	// upper bound on evidence merge passes
	MaxMergeIterations int `mapstructure:"max-merge-iterations"`

	// long DEL/DUP cutoff calibration
	LongDDIMinLength    int64   `mapstructure:"long-ddi-min-length"`
	LongDDIMaxLength    int64   `mapstructure:"long-ddi-max-length"`
	LongDDITrimFraction float64 `mapstructure:"long-ddi-trim-fraction"`
	LongDDIMinSamples   int     `mapstructure:"long-ddi-min-samples"`

	// solo single pairing
	SoloSingleCNTolerance float64 `mapstructure:"solo-single-cn-tolerance"`
	MinDeletionLength     int64   `mapstructure:"min-deletion-length"`

	// shortest templated insertion before positional uncertainty is added
	MinTemplatedInsertionLength int64 `mapstructure:"min-ti-length"`

	// allowed copy number shortfall inside a templated insertion
	CopyNumberTolerance float64 `mapstructure:"cn-tolerance"`

	// foldback detection
	FoldbackMaxLength int64 `mapstructure:"foldback-max-length"`

	// complex duplication ratio bounds, as duplicated/duplicating ploidy
	ComplexDupMinRatio float64 `mapstructure:"complex-dup-min-ratio"`
	ComplexDupMaxRatio float64 `mapstructure:"complex-dup-max-ratio"`

	// total SV copies per cluster
	MaxReplication int `mapstructure:"max-replication"`

	// chain builder gives up after this many iterations without a commit
	MaxNoProgressIterations int `mapstructure:"max-no-progress"`

	// slack allowed when checking ploidy consumption
	PloidyTolerance float64 `mapstructure:"ploidy-tolerance"`

	// amplification ratio flagging double minute candidates
	DoubleMinuteRatio float64 `mapstructure:"dm-ploidy-ratio"`

	// cluster chaining workers, 0 means runtime.NumCPU()
	Workers int `mapstructure:"workers"`
}

// Default returns the standard parameter set.
func Default() Params {
	return Params{
		ProximityDistance:           5000,
		DuplicateBreakendDistance:   1,
		SingleDuplicateDistance:     50,
		MaxMergeIterations:          20,
		LongDDIMinLength:            100_000,
		LongDDIMaxLength:            5_000_000,
		LongDDITrimFraction:         0.05,
		LongDDIMinSamples:           10,
		SoloSingleCNTolerance:       0.5,
		MinDeletionLength:           32,
		MinTemplatedInsertionLength: 30,
		CopyNumberTolerance:         0.5,
		FoldbackMaxLength:           5000,
		ComplexDupMinRatio:          2,
		ComplexDupMaxRatio:          4,
		MaxReplication:              500,
		MaxNoProgressIterations:     5,
		PloidyTolerance:             0.1,
		DoubleMinuteRatio:           2.3,
		Workers:                     runtime.NumCPU(),
	}
}

// SetDefaults registers the default values with a viper instance under the
// "clustering" key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	set := func(key string, val any) { v.SetDefault("clustering."+key, val) }
	set("proximity-distance", d.ProximityDistance)
	set("duplicate-breakend-distance", d.DuplicateBreakendDistance)
	set("single-duplicate-distance", d.SingleDuplicateDistance)
	set("max-merge-iterations", d.MaxMergeIterations)
	set("long-ddi-min-length", d.LongDDIMinLength)
	set("long-ddi-max-length", d.LongDDIMaxLength)
	set("long-ddi-trim-fraction", d.LongDDITrimFraction)
	set("long-ddi-min-samples", d.LongDDIMinSamples)
	set("solo-single-cn-tolerance", d.SoloSingleCNTolerance)
	set("min-deletion-length", d.MinDeletionLength)
	set("min-ti-length", d.MinTemplatedInsertionLength)
	set("cn-tolerance", d.CopyNumberTolerance)
	set("foldback-max-length", d.FoldbackMaxLength)
	set("complex-dup-min-ratio", d.ComplexDupMinRatio)
	set("complex-dup-max-ratio", d.ComplexDupMaxRatio)
	set("max-replication", d.MaxReplication)
	set("max-no-progress", d.MaxNoProgressIterations)
	set("ploidy-tolerance", d.PloidyTolerance)
	set("dm-ploidy-ratio", d.DoubleMinuteRatio)
	set("workers", d.Workers)
}

// FromViper decodes the "clustering" section of a viper instance over the defaults.
func FromViper(v *viper.Viper) (Params, error) {
	// AllSettings, and so Unmarshal, sees bound command-line flags; Sub does not.
	wrapper := struct {
		Clustering Params `mapstructure:"clustering"`
	}{Clustering: Default()}
	if err := v.Unmarshal(&wrapper); err != nil {
		return Params{}, fmt.Errorf("decode clustering config: %w", err)
	}
	p := wrapper.Clustering
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	switch {
	case p.ProximityDistance <= 0:
		return fmt.Errorf("proximity-distance must be positive, got %d", p.ProximityDistance)
	case p.LongDDIMinLength > p.LongDDIMaxLength:
		return fmt.Errorf("long-ddi-min-length %d exceeds long-ddi-max-length %d", p.LongDDIMinLength, p.LongDDIMaxLength)
	case p.LongDDITrimFraction < 0 || p.LongDDITrimFraction >= 1:
		return fmt.Errorf("long-ddi-trim-fraction must be in [0,1), got %g", p.LongDDITrimFraction)
	case p.ComplexDupMinRatio <= 1 || p.ComplexDupMaxRatio < p.ComplexDupMinRatio:
		return fmt.Errorf("invalid complex-dup ratio bounds [%g, %g]", p.ComplexDupMinRatio, p.ComplexDupMaxRatio)
	case p.MaxReplication < 1:
		return fmt.Errorf("max-replication must be at least 1, got %d", p.MaxReplication)
	case p.MaxNoProgressIterations < 1:
		return fmt.Errorf("max-no-progress must be at least 1, got %d", p.MaxNoProgressIterations)
	case p.MaxMergeIterations < 1:
		return fmt.Errorf("max-merge-iterations must be at least 1, got %d", p.MaxMergeIterations)
	}
	return nil
}
