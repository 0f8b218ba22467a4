package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/offheap"
	"github.com/hupe1980/offheap/blobstore"
	miniostore "github.com/hupe1980/offheap/blobstore/minio"
	s3store "github.com/hupe1980/offheap/blobstore/s3"
	"github.com/hupe1980/offheap/codec"
	"github.com/hupe1980/offheap/resource"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config is the file form of the allocator settings.
type Config struct {
	Capacity  Size      `yaml:"capacity"`
	Codec     string    `yaml:"codec"`
	Metrics   bool      `yaml:"metrics"`
	Log       Log       `yaml:"log"`
	Resources Resources `yaml:"resources"`
	Export    Export    `yaml:"export"`
}

// Log selects the logger.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error or off
	Format string `yaml:"format"` // text or json
}

// Resources maps onto resource.Config. A zero section disables the controller.
type Resources struct {
	MemoryLimit          Size  `yaml:"memory_limit"`
	MaxConcurrentExports int64 `yaml:"max_concurrent_exports"`
	IOLimitPerSec        Size  `yaml:"io_limit_per_sec"`
}

// Export selects where reports go.
type Export struct {
	Store    string `yaml:"store"` // local, s3 or minio
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Secure   bool   `yaml:"secure"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Capacity: Size(offheap.DefaultCapacity),
		Codec:    codec.Default.Name(),
		Log:      Log{Level: "off", Format: "text"},
		Export:   Export{Store: "local", Dir: "."},
	}
}

// Load reads and validates a YAML file. Keys it does not set keep their
// Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field that Options or OpenStore would reject.
func (c Config) Validate() error {
	if c.Capacity == 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalid)
	}
	if _, err := c.Capacity.Int(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return fmt.Errorf("%w: unknown codec %q", ErrInvalid, c.Codec)
	}
	if _, _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	if c.Resources.MaxConcurrentExports < 0 {
		return fmt.Errorf("%w: max_concurrent_exports must not be negative", ErrInvalid)
	}
	return c.Export.validate()
}

func (l Log) level() (slog.Level, bool, error) {
	switch strings.ToLower(l.Level) {
	case "", "off", "none":
		return 0, false, nil
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, false, fmt.Errorf("%w: log level: %w", ErrInvalid, err)
	}
	return lvl, true, nil
}

// Logger builds the configured logger.
func (l Log) Logger() *offheap.Logger {
	lvl, on, err := l.level()
	if err != nil || !on {
		return offheap.NoopLogger()
	}
	if l.Format == "json" {
		return offheap.NewJSONLogger(lvl)
	}
	return offheap.NewTextLogger(lvl)
}

// Controller builds the resource controller, or nil when no limit is set.
func (r Resources) Controller() *resource.Controller {
	if r == (Resources{}) {
		return nil
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes:     int64(r.MemoryLimit),   //nolint:gosec // validated size
		MaxConcurrentExports: r.MaxConcurrentExports,
		IOLimitBytesPerSec:   int64(r.IOLimitPerSec), //nolint:gosec // validated size
	})
}

// Options converts the settings into allocator options. When Metrics is set,
// the returned collector is wired in; otherwise it is nil.
func (c Config) Options() ([]offheap.Option, *offheap.BasicMetricsCollector, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	capacity, _ := c.Capacity.Int()
	cd, _ := codec.ByName(c.Codec)

	opts := []offheap.Option{
		offheap.WithCapacity(capacity),
		offheap.WithCodec(cd),
		offheap.WithLogger(c.Log.Logger()),
	}
	if rc := c.Resources.Controller(); rc != nil {
		opts = append(opts, offheap.WithResourceController(rc))
	}

	var mc *offheap.BasicMetricsCollector
	if c.Metrics {
		mc = &offheap.BasicMetricsCollector{}
		opts = append(opts, offheap.WithMetricsCollector(mc))
	}
	return opts, mc, nil
}

func (e Export) validate() error {
	switch e.Store {
	case "", "local":
		return nil
	case "s3":
		if e.Bucket == "" {
			return fmt.Errorf("%w: s3 export needs a bucket", ErrInvalid)
		}
	case "minio":
		if e.Bucket == "" || e.Endpoint == "" {
			return fmt.Errorf("%w: minio export needs a bucket and an endpoint", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown export store %q", ErrInvalid, e.Store)
	}
	return nil
}

// OpenStore builds the blob store reports are exported to.
//
// S3 credentials come from the default AWS chain. MinIO credentials come
// from MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
func (e Export) OpenStore(ctx context.Context) (blobstore.Store, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	switch e.Store {
	case "s3":
		var opts []s3store.Option
		if e.Prefix != "" {
			opts = append(opts, s3store.WithPrefix(e.Prefix))
		}
		if e.Region != "" {
			opts = append(opts, s3store.WithRegion(e.Region))
		}
		return s3store.New(ctx, e.Bucket, opts...)
	case "minio":
		client, err := minio.New(e.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: e.Secure,
			Region: e.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("config: minio client: %w", err)
		}
		return miniostore.NewStore(client, e.Bucket, e.Prefix), nil
	default:
		dir := e.Dir
		if dir == "" {
			dir = "."
		}
		return blobstore.NewLocalStore(dir), nil
	}
}
