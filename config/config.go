package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bookshelf-app/bookshelf-service/pkg/logger"
	"github.com/kelseyhightower/envconfig"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"BOOKSHELF_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"BOOKSHELF_HTTP_PORT" default:"8081"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"30s"`
	WriteTimeout time.Duration
}

// BackendAPI points at the books REST backend this service fronts.
type BackendAPI struct {
	Host string `envconfig:"BACKEND_HTTP_HOST" default:"localhost"`
	Port string `envconfig:"BACKEND_HTTP_PORT" default:"8080"`
}

// ImageGenAPI is the external image-generation endpoint. The credential is
// supplied per request by the user and is deliberately absent here.
type ImageGenAPI struct {
	URL     string        `envconfig:"IMAGEGEN_URL" default:"https://api.openai.com/v1/images/generations"`
	Timeout time.Duration `envconfig:"IMAGEGEN_TIMEOUT" default:"2m"`
}

type Sessions struct {
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
}

type Catalog struct {
	PageSize int `envconfig:"CATALOG_PAGE_SIZE" default:"3"`
}

type Config struct {
	Server   HTTPServer `yaml:"server"`
	Backend  BackendAPI
	ImageGen ImageGenAPI
	Sessions Sessions
	Catalog  Catalog
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
