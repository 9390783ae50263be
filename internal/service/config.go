package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/CZERTAINLY/SessionCore/internal/log"
)

const (
	DefaultConfigFile = "SessionCore.yml"
	DefaultLogFile    = "SessionCore-server.log"
	DefaultJava       = "java"
	DefaultAgentPath  = "meta/authlibinjector.jar"
	DefaultAgentURL   = "https://github.com/yushijinhun/authlib-injector/releases/download/v1.2.6/authlib-injector-1.2.6.jar"
	DefaultBackoff    = 3 * time.Second

	EnvPrefix = "SESSIONCORE"
)

// Settings are the runtime knobs of the wrapper. They come from command line
// flags and SESSIONCORE_* environment variables, never from SessionCore.yml.
type Settings struct {
	Dir       string        `mapstructure:"dir"`
	Config    string        `mapstructure:"config"`
	LogFile   string        `mapstructure:"log_file"`
	Java      string        `mapstructure:"java"`
	AgentPath string        `mapstructure:"agent_path"`
	AgentURL  string        `mapstructure:"agent_url"`
	Backoff   time.Duration `mapstructure:"backoff"`
	Verbose   bool          `mapstructure:"verbose"`
	LogFormat string        `mapstructure:"log_format"`
}

// RegisterFlags defines the settings flags on fs and binds them to v together
// with their environment variables.
func RegisterFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("dir", "", "working directory of the server, default is the current directory")
	fs.String("config", DefaultConfigFile, "wrapper configuration file, relative to --dir")
	fs.String("log-file", DefaultLogFile, "server output log, relative to --dir")
	fs.String("java", DefaultJava, "java executable used to start the server")
	fs.String("agent-path", DefaultAgentPath, "authlib-injector jar, relative to --dir")
	fs.String("agent-url", DefaultAgentURL, "download location of the authlib-injector jar")
	fs.Duration("backoff", DefaultBackoff, "delay before a crashed server is restarted")
	fs.Bool("verbose", false, "verbose logging")
	fs.String("log-format", log.FormatConsole, "format of wrapper status lines: console or json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		errs = append(errs, v.BindPFlag(key, f))
	})
	return errors.Join(errs...)
}

func ParseSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("parsing settings: %w", err)
	}
	if s.Java == "" {
		return s, errors.New("java executable is empty")
	}
	if s.Backoff < 0 {
		return s, fmt.Errorf("backoff must not be negative, got %s", s.Backoff)
	}
	switch s.LogFormat {
	case log.FormatConsole, log.FormatJSON:
	default:
		return s, fmt.Errorf("unsupported log format %q", s.LogFormat)
	}
	return s, nil
}

// Path resolves a path relative to the server working directory.
func (s Settings) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || s.Dir == "" {
		return p
	}
	return filepath.Join(s.Dir, p)
}
