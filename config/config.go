package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Negative hazard rate policies applied after each bootstrapped pillar.
const (
	NegativeHazardFail  = "fail"
	NegativeHazardWarn  = "warn"
	NegativeHazardClamp = "clamp"
)

// Solver holds the calibration root-finder parameters.
type Solver struct {
	// InitialGuess is the starting hazard rate for every pillar.
	InitialGuess float64 `yaml:"initial_guess" default:"0.005" validate:"gt=0"`

	// Tolerance is the step-size tolerance of the first pass.
	Tolerance float64 `yaml:"tolerance" default:"1e-9" validate:"gt=0"`

	// MaxIterations caps the first pass.
	MaxIterations int `yaml:"max_iterations" default:"100" validate:"gt=0"`

	// RetryTolerance and RetryMaxIterations drive the single retry pass
	// attempted when the first pass fails to converge.
	RetryTolerance     float64 `yaml:"retry_tolerance" default:"1e-7" validate:"gt=0"`
	RetryMaxIterations int     `yaml:"retry_max_iterations" default:"1000" validate:"gt=0"`

	// SecantStep is the relative offset of the second secant point.
	SecantStep float64 `yaml:"secant_step" default:"1e-4" validate:"gt=0"`

	// NegativeHazard selects fail, warn or clamp for negative solved hazard rates.
	NegativeHazard string `yaml:"negative_hazard" default:"fail" validate:"oneof=fail warn clamp"`
}

// Valuation holds defaults for instruments built from market quotes.
type Valuation struct {
	Mode                  string  `yaml:"mode" default:"FI" validate:"oneof=FI BBG"`
	RecoveryRate          float64 `yaml:"recovery_rate" default:"0.4" validate:"gte=0,lt=1"`
	Calendar              string  `yaml:"calendar" default:"WeekendsOnly"`
	DayCount              string  `yaml:"day_count" default:"ACT/360"`
	StubRule              string  `yaml:"stub_rule" default:"IncludeFirstExcludeEnd"`
	CouponFrequencyMonths int     `yaml:"coupon_frequency_months" default:"3" validate:"oneof=1 3 6 12"`
}

// Risk holds bump sizes for the sensitivities.
type Risk struct {
	SpreadTweakBP float64 `yaml:"spread_tweak_bp" default:"1" validate:"gt=0"`
	RateTweakBP   float64 `yaml:"rate_tweak_bp" default:"1" validate:"gt=0"`

	// HoldCreditCurve keeps the credit curve fixed in the IR DV01 instead of
	// re-bootstrapping it against the shifted discount curve.
	HoldCreditCurve bool `yaml:"hold_credit_curve"`
}

// Batch controls concurrent valuation.
type Batch struct {
	Workers int `yaml:"workers" default:"4" validate:"gte=1"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stderr"`
}

// Config is the full library/CLI configuration.
type Config struct {
	Solver    Solver    `yaml:"solver"`
	Valuation Valuation `yaml:"valuation"`
	Risk      Risk      `yaml:"risk"`
	Batch     Batch     `yaml:"batch"`
	Log       Log       `yaml:"log"`
}

// envOverrides lists the settings that can be overridden from CDS_* variables.
// Unset variables leave the pointer nil.
type envOverrides struct {
	Tolerance      *float64 `envconfig:"SOLVER_TOLERANCE"`
	MaxIterations  *int     `envconfig:"SOLVER_MAX_ITERATIONS"`
	NegativeHazard *string  `envconfig:"SOLVER_NEGATIVE_HAZARD"`
	Mode           *string  `envconfig:"VALUATION_MODE"`
	RecoveryRate   *float64 `envconfig:"VALUATION_RECOVERY_RATE"`
	Workers        *int     `envconfig:"BATCH_WORKERS"`
	LogLevel       *string  `envconfig:"LOG_LEVEL"`
	LogFormat      *string  `envconfig:"LOG_FORMAT"`
}

const envPrefix = "CDS"

var validate = validator.New()

// Default returns a configuration populated from the default tags.
func Default() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// Tags are static; a failure here is a programming error.
		panic(fmt.Sprintf("config: defaults: %v", err))
	}
	return c
}

// Load reads a YAML file, fills defaults, applies CDS_* environment overrides and validates.
// An empty path yields the defaults with environment overrides.
func Load(path string) (*Config, error) {
	var c Config
	// Defaults first so explicit zeros in the file survive.
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// ApplyEnv overrides fields from CDS_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := envconfig.Process(envPrefix, &o); err != nil {
		return fmt.Errorf("config env: %w", err)
	}
	if o.Tolerance != nil {
		c.Solver.Tolerance = *o.Tolerance
	}
	if o.MaxIterations != nil {
		c.Solver.MaxIterations = *o.MaxIterations
	}
	if o.NegativeHazard != nil {
		c.Solver.NegativeHazard = *o.NegativeHazard
	}
	if o.Mode != nil {
		c.Valuation.Mode = *o.Mode
	}
	if o.RecoveryRate != nil {
		c.Valuation.RecoveryRate = *o.RecoveryRate
	}
	if o.Workers != nil {
		c.Batch.Workers = *o.Workers
	}
	if o.LogLevel != nil {
		c.Log.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		c.Log.Format = *o.LogFormat
	}
	return nil
}

// WithDefaults returns a copy with zero fields filled from the default tags, validated.
func (s Solver) WithDefaults() (Solver, error) {
	if err := defaults.Set(&s); err != nil {
		return Solver{}, fmt.Errorf("solver defaults: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return Solver{}, fmt.Errorf("validate solver: %w", err)
	}
	return s, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
