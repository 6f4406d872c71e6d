package server

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Addr       string        `env:"RDF_CUBES_ADDR" envDefault:":8080" validate:"required"`
	AdminToken string        `env:"RDF_CUBES_ADMIN_TOKEN,required" validate:"required"`
	HmacKey    string        `env:"RDF_CUBES_HMAC_KEY,required" validate:"required"`
	UploadsDir string        `env:"RDF_CUBES_UPLOADS_DIR" envDefault:"uploads" validate:"required"`
	DataDir    string        `env:"RDF_CUBES_DATA_DIR" envDefault:"data" validate:"required"`
	DBPath     string        `env:"RDF_CUBES_DB_PATH" envDefault:"data/rdf-cubes.db" validate:"required"`
	WorkDir    string        `env:"RDF_CUBES_WORK_DIR"`
	MaxSize    int64         `env:"RDF_CUBES_MAX_SIZE" envDefault:"536870912" validate:"gt=0"`
	TTL        time.Duration `env:"RDF_CUBES_TTL" envDefault:"1h" validate:"gt=0"`
	Converter  []string      `env:"RDF_CUBES_CONVERTER" envSeparator:" " envDefault:"python3 optimized_script.py" validate:"min=1,dive,required"`
	LogFile    string        `env:"RDF_CUBES_LOG_FILE"`
	LogLevel   string        `env:"RDF_CUBES_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// Validate checks the config values that env parsing cannot
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(errs))
			for _, e := range errs {
				fields = append(fields, fmt.Sprintf("%s (%s)", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// newLogger builds the JSON logger, optionally teeing into a rotating file
func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:  cfg.LogFile,
			MaxSize:   20, // megabytes
			Compress:  true,
			LocalTime: true,
		})
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}
