package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendMongoDB  = "mongodb"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var backends = []string{BackendFile, BackendMemory, BackendMongoDB, BackendRedis, BackendPostgres}

type Config struct {
	Region        string `toml:"region"`
	ListenAddress string `toml:"listen_address"`
	IDScheme      string `toml:"id_scheme"`
	LogLevel      string `toml:"log_level"`
	NumWorkers    int    `toml:"num_workers"`

	Storage   StorageOptions   `toml:"storage"`
	Memcached MemcachedOptions `toml:"memcached"`
	RabbitMQ  RabbitMQOptions  `toml:"rabbitmq"`
}

type StorageOptions struct {
	Backend        string `toml:"backend"`
	Path           string `toml:"path"`
	DocumentKey    string `toml:"document_key"`
	MongoDBAddress string `toml:"mongodb_address"`
	MongoDBPort    int    `toml:"mongodb_port"`
	RedisAddress   string `toml:"redis_address"`
	RedisPort      int    `toml:"redis_port"`
	PostgresURL    string `toml:"postgres_url"`
}

type MemcachedOptions struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

type RabbitMQOptions struct {
	Enabled  bool     `toml:"enabled"`
	Address  string   `toml:"address"`
	Port     int      `toml:"port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Regions  []string `toml:"regions"`
}

func Default() Config {
	return Config{
		ListenAddress: "localhost:12345",
		IDScheme:      "uuid",
		LogLevel:      "info",
		NumWorkers:    1,
		Storage: StorageOptions{
			Backend:        BackendFile,
			Path:           "data/social_data.json",
			DocumentKey:    "socialfeed",
			MongoDBAddress: "localhost",
			MongoDBPort:    27017,
			RedisAddress:   "localhost",
			RedisPort:      6379,
		},
		Memcached: MemcachedOptions{Address: "localhost", Port: 11211},
		RabbitMQ: RabbitMQOptions{
			Address:  "localhost",
			Port:     5672,
			Username: "admin",
			Password: "admin",
		},
	}
}

// Load reads .env (if present), then the TOML file at path (if non-empty),
// then applies environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	// DATABASE_URL selects postgres unless a backend is set explicitly
	if url, ok := lookup("DATABASE_URL"); ok && url != "" {
		c.Storage.PostgresURL = url
		if _, set := lookup("SOCIALFEED_STORAGE_BACKEND"); !set {
			c.Storage.Backend = BackendPostgres
		}
	}
	strs := map[string]*string{
		"SOCIALFEED_REGION":          &c.Region,
		"SOCIALFEED_LISTEN_ADDRESS":  &c.ListenAddress,
		"SOCIALFEED_ID_SCHEME":       &c.IDScheme,
		"SOCIALFEED_LOG_LEVEL":       &c.LogLevel,
		"SOCIALFEED_STORAGE_BACKEND": &c.Storage.Backend,
		"SOCIALFEED_STORAGE_PATH":    &c.Storage.Path,
		"SOCIALFEED_MONGODB_ADDRESS": &c.Storage.MongoDBAddress,
		"SOCIALFEED_REDIS_ADDRESS":   &c.Storage.RedisAddress,
		"SOCIALFEED_RABBITMQ_USER":   &c.RabbitMQ.Username,
		"SOCIALFEED_RABBITMQ_PASS":   &c.RabbitMQ.Password,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup("SOCIALFEED_NUM_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SOCIALFEED_NUM_WORKERS: %w", err)
		}
		c.NumWorkers = n
	}
	if v, ok := lookup("SOCIALFEED_RABBITMQ_REGIONS"); ok {
		c.RabbitMQ.Regions = strings.Split(v, ",")
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(backends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the file backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url or DATABASE_URL is required for the postgres backend"))
		}
	}
	if c.NumWorkers < 0 {
		errs = append(errs, fmt.Errorf("num_workers must not be negative, got %d", c.NumWorkers))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
