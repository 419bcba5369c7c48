package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/travigo/raptor/pkg/raptor"
	"github.com/travigo/raptor/pkg/util"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Routing Routing `yaml:"routing"`
	Feed    Feed    `yaml:"feed"`
	API     API     `yaml:"api"`
	Cache   Cache   `yaml:"cache"`
}

type Routing struct {
	MaxRounds int      `yaml:"max_rounds" validate:"gte=1,lte=32"`
	Mode      string   `yaml:"mode" validate:"oneof=single multi"`
	Criteria  []string `yaml:"criteria" validate:"dive,oneof=walking fare"`
	BagCap    int      `yaml:"bag_cap" validate:"gte=0"`
	Workers   int      `yaml:"workers" validate:"gte=0"`

	// Range query defaults in seconds, a zero step scans scheduled departures
	Window int `yaml:"window" validate:"gte=0"`
	Step   int `yaml:"step" validate:"gte=0"`
}

// RaptorCriteria converts the configured criteria for the scanners.
func (r Routing) RaptorCriteria() raptor.Criteria {
	criteria := raptor.Criteria{BagCap: r.BagCap}
	for _, criterion := range r.Criteria {
		criteria.Extra = append(criteria.Extra, raptor.Criterion(criterion))
	}
	return criteria
}

type Feed struct {
	Path string `yaml:"path" validate:"required"`

	// Service date as YYYYMMDD, empty keeps every trip
	Date     string   `yaml:"date" validate:"omitempty,datetime=20060102"`
	Agencies []string `yaml:"agencies"`

	// Walking time in seconds between platforms of one station
	StationTransferTime int `yaml:"station_transfer_time" validate:"gte=0"`

	Supplements []Supplement `yaml:"supplements" validate:"dive"`
}

// Supplement charges an extra fare when alighting a route at a stop. Feeds carry no such data, so
// supplements are configured next to the feed.
type Supplement struct {
	// Route id, empty matches every route
	Route string `yaml:"route"`

	// Stop or station id
	Stop string `yaml:"stop" validate:"required"`

	// Fare in minor currency units
	Fare int64 `yaml:"fare" validate:"gt=0"`
}

type API struct {
	Listen string `yaml:"listen" validate:"required"`
}

type Cache struct {
	Enabled    bool          `yaml:"enabled"`
	Expiration time.Duration `yaml:"expiration"`

	Redis Redis `yaml:"redis"`
}

type Redis struct {
	Address  string `yaml:"address" validate:"required"`
	Password string `yaml:"password"`
	Database int    `yaml:"database" validate:"gte=0"`
}

func Default() Config {
	return Config{
		Routing: Routing{
			MaxRounds: 5,
			Mode:      "multi",
			BagCap:    64,
			Window:    3600,
		},
		Feed: Feed{
			StationTransferTime: 120,
		},
		API: API{
			Listen: ":8080",
		},
		Cache: Cache{
			Expiration: 15 * time.Minute,
			Redis: Redis{
				Address: "localhost:6379",
			},
		},
	}
}

// Load builds the configuration from the defaults, the YAML file at path when given, and the
// RAPTOR_* environment variables, in increasing precedence. The result is not validated so callers
// can apply command line flags first.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}

		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}

		if err := copier.CopyWithOption(&cfg, &file, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnvironment(util.GetEnvironmentVariables("RAPTOR_")); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (cfg *Config) applyEnvironment(env map[string]string) error {
	var errs []error

	integer := func(name string, target *int) {
		if value := env[name]; value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*target = n
		}
	}
	text := func(name string, target *string) {
		if value := env[name]; value != "" {
			*target = value
		}
	}

	text("RAPTOR_FEED_PATH", &cfg.Feed.Path)
	text("RAPTOR_FEED_DATE", &cfg.Feed.Date)
	if agencies := env["RAPTOR_FEED_AGENCIES"]; agencies != "" {
		cfg.Feed.Agencies = util.RemoveDuplicateStrings(strings.Split(agencies, ","), nil)
	}
	integer("RAPTOR_STATION_TRANSFER_TIME", &cfg.Feed.StationTransferTime)

	integer("RAPTOR_MAX_ROUNDS", &cfg.Routing.MaxRounds)
	text("RAPTOR_MODE", &cfg.Routing.Mode)
	integer("RAPTOR_BAG_CAP", &cfg.Routing.BagCap)
	integer("RAPTOR_WORKERS", &cfg.Routing.Workers)
	if criteria := env["RAPTOR_CRITERIA"]; criteria != "" {
		cfg.Routing.Criteria = util.RemoveDuplicateStrings(strings.Split(criteria, ","), nil)
	}

	text("RAPTOR_API_LISTEN", &cfg.API.Listen)

	if env["RAPTOR_CACHE_ENABLED"] == "YES" {
		cfg.Cache.Enabled = true
	}
	if expiration := env["RAPTOR_CACHE_EXPIRATION"]; expiration != "" {
		d, err := time.ParseDuration(expiration)
		if err != nil {
			errs = append(errs, fmt.Errorf("RAPTOR_CACHE_EXPIRATION: %w", err))
		} else {
			cfg.Cache.Expiration = d
		}
	}
	text("RAPTOR_REDIS_ADDRESS", &cfg.Cache.Redis.Address)
	text("RAPTOR_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	integer("RAPTOR_REDIS_DATABASE", &cfg.Cache.Redis.Database)

	return errors.Join(errs...)
}

var validate = validator.New()

func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return cfg.Routing.RaptorCriteria().Validate()
}

// Validate checks routing parameters on their own, as merged per request by the planner.
func (r Routing) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	return r.RaptorCriteria().Validate()
}
