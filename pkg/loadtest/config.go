package loadtest

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DrainPolicy determines when a sender considers its work to be finished.
type DrainPolicy string

const (
	// DrainUntilClosed makes senders keep polling an empty queue until the
	// generator has closed it, so every generated message gets processed.
	DrainUntilClosed DrainPolicy = "until-closed"
	// DrainOnEmpty makes senders stop the first time they see an empty queue,
	// even if the generator is still producing. This is a best-effort mode:
	// fewer messages than were generated may end up being processed.
	DrainOnEmpty DrainPolicy = "on-empty"
)

// Environment variables from which the required settings are loaded when
// they are not supplied on the command line.
const (
	EnvNumMessages        = "NUMBER_OF_MESSAGES"
	EnvNumSenders         = "NUMBER_OF_SENDERS"
	EnvMeanProcessingTime = "MEAN_PROCESSING_TIME"
	EnvFailureRate        = "FAILURE_RATE"
	EnvUpdateInterval     = "UPDATE_INTERVAL"
)

// Config represents the configuration for a single simulation run.
type Config struct {
	NumMessages        int         `json:"num_messages"`         // The total number of messages to generate.
	NumSenders         int         `json:"num_senders"`          // The number of concurrent senders draining the queue.
	MeanProcessingTime float64     `json:"mean_processing_time"` // The mean simulated per-message send delay, in seconds.
	FailureRate        float64     `json:"failure_rate"`         // The probability (0-1) that a simulated send fails.
	UpdateInterval     int         `json:"update_interval"`      // The period (in seconds) at which progress is reported.
	DrainPolicy        DrainPolicy `json:"drain_policy"`         // When senders stop draining the queue.
	StatsOutputFile    string      `json:"stats_output_file"`    // Where to write aggregate statistics as CSV (optional).
	MetricsOutputFile  string      `json:"metrics_output_file"`  // Where to write Prometheus metrics in text format (optional).
	RunID              string      `json:"run_id"`               // Identifies this run in logs and metrics.
	Seed               int64       `json:"seed"`                 // Random seed. 0 seeds from the clock.
}

var validDrainPolicies = map[DrainPolicy]interface{}{
	DrainUntilClosed: nil,
	DrainOnEmpty:     nil,
}

// envSetting binds a required setting's command line flag to the
// environment variable providing its default.
type envSetting struct {
	flag  string
	env   string
	apply func(c *Config, raw string) error
}

var requiredSettings = []envSetting{
	{"num-messages", EnvNumMessages, func(c *Config, raw string) (err error) {
		c.NumMessages, err = strconv.Atoi(raw)
		return
	}},
	{"num-senders", EnvNumSenders, func(c *Config, raw string) (err error) {
		c.NumSenders, err = strconv.Atoi(raw)
		return
	}},
	{"mean-processing-time", EnvMeanProcessingTime, func(c *Config, raw string) (err error) {
		c.MeanProcessingTime, err = strconv.ParseFloat(raw, 64)
		return
	}},
	{"failure-rate", EnvFailureRate, func(c *Config, raw string) (err error) {
		c.FailureRate, err = strconv.ParseFloat(raw, 64)
		return
	}},
	{"update-interval", EnvUpdateInterval, func(c *Config, raw string) (err error) {
		c.UpdateInterval, err = strconv.Atoi(raw)
		return
	}},
}

// LoadEnvDefaults fills in every required setting whose flag was not
// explicitly set (as reported by flagChanged) from the environment. A
// setting provided by neither fails immediately, naming the missing
// variable.
func (c *Config) LoadEnvDefaults(flagChanged func(name string) bool, lookupEnv func(key string) (string, bool)) error {
	for _, s := range requiredSettings {
		if flagChanged(s.flag) {
			continue
		}
		raw, ok := lookupEnv(s.env)
		if !ok {
			return NewError(ErrMissingConfig, nil, fmt.Sprintf("Environment variable '%s' not set", s.env))
		}
		if err := s.apply(c, raw); err != nil {
			return NewError(ErrInvalidConfig, err, fmt.Sprintf("Environment variable '%s' has invalid value %q", s.env, raw))
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.NumMessages < 0 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("Expected number of messages to be >= 0, but was %d", c.NumMessages))
	}
	if c.NumSenders < 1 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("Expected number of senders to be >= 1, but was %d", c.NumSenders))
	}
	if c.MeanProcessingTime < 0 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("Expected mean processing time to be >= 0, but was %f", c.MeanProcessingTime))
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("Expected failure rate to be between 0 and 1, but was %f", c.FailureRate))
	}
	if c.UpdateInterval < 1 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("Expected update interval to be >= 1 second, but was %d", c.UpdateInterval))
	}
	if _, ok := validDrainPolicies[c.DrainPolicy]; !ok {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("Expected drain policy to be one of \"%s\" or \"%s\", but was \"%s\"", DrainUntilClosed, DrainOnEmpty, c.DrainPolicy))
	}
	return nil
}

func (c Config) ToJSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%v", c)
	}
	return string(b)
}
