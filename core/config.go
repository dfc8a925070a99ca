package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Auth modes
const (
	AuthModeMock    = "mock"
	AuthModeBackend = "backend"
)

type (
	Config struct {
		AppName      string `mapstructure:"appName"`
		Env          string `mapstructure:"env"`
		Build        string `mapstructure:"build"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testMode"`
		SecretKey    string `mapstructure:"secretKey"`
		WorkDir      string `mapstructure:"workDir"`
		RollbarToken string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Backend  BackendConfig  `mapstructure:"backend"`
		Auth     AuthConfig     `mapstructure:"auth"`
		Database DatabaseConfig `mapstructure:"database"`
		Email    EmailConfig    `mapstructure:"email"`
		Console  ConsoleConfig  `mapstructure:"console"`
	}

	ServerConfig struct {
		Host            string        `mapstructure:"host"`
		Address         string        `mapstructure:"address"`
		DebugHost       string        `mapstructure:"debugHost"`
		FrontendBaseURL string        `mapstructure:"frontendBaseURL"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
		DisableReqLogs  bool          `mapstructure:"disableReqLogs"`
	}

	// BackendConfig locates the remote admission API every route proxy forwards to.
	BackendConfig struct {
		BaseURL string        `mapstructure:"baseURL"`
		Timeout time.Duration `mapstructure:"timeout"`
	}

	AuthConfig struct {
		Mode                 string        `mapstructure:"mode"`
		Storage              string        `mapstructure:"storage"`
		CookieName           string        `mapstructure:"cookieName"`
		LoginRateLimit       float64       `mapstructure:"loginRateLimit"`
		LoginBurst           int           `mapstructure:"loginBurst"`
		PasswordResetTimeout time.Duration `mapstructure:"passwordResetTimeout"`
	}

	DatabaseConfig struct {
		Engine     string `mapstructure:"engine"`
		Host       string `mapstructure:"host"`
		Port       string `mapstructure:"port"`
		Name       string `mapstructure:"name"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		DisableTLS bool   `mapstructure:"disableTLS"`
	}

	EmailConfig struct {
		DefaultFrom    string `mapstructure:"defaultFrom"`
		SendgridAPIKey string `mapstructure:"sendgridAPIKey"`
	}

	// ConsoleConfig configures the admin command line.
	ConsoleConfig struct {
		APIBaseURL  string `mapstructure:"apiBaseURL"`
		SessionFile string `mapstructure:"sessionFile"`
	}
)

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

// DefaultFromEmail parses EmailConfig.DefaultFrom, falling back to the bare address on failure.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.Email.DefaultFrom)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.Email.DefaultFrom}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the defaults, the optional `config/.env.<env>` file
// and the EVOLUFLOW_* environment variables, in that order of precedence.
func NewConfig() *Config {
	conf, err := LoadConfig(Getwd())
	if err != nil {
		log.Fatalf("core.NewConfig: %v", err)
	}
	return conf
}

// LoadConfig is NewConfig with an explicit project root.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.Set("env", env)
	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("server.disableReqLogs", true)
	}
	v.SetDefault("workDir", root)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetEnvPrefix("evoluflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Backend.BaseURL = strings.TrimRight(conf.Backend.BaseURL, "/")
	conf.Console.APIBaseURL = strings.TrimRight(conf.Console.APIBaseURL, "/")

	switch conf.Auth.Mode {
	case AuthModeMock, AuthModeBackend:
	default:
		return nil, errors.Errorf("unknown auth mode %q", conf.Auth.Mode)
	}
	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "EvoluFlow")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "k8#3v-qdn2(ev0lufl0w)_z!x1c5bf@r7m9tp^w0y$adm1ss10n")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.frontendBaseURL", "http://localhost:3000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 35*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("backend.baseURL", "http://localhost:8080/api")
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("auth.mode", AuthModeMock)
	v.SetDefault("auth.storage", "memory")
	v.SetDefault("auth.cookieName", "auth-token")
	v.SetDefault("auth.loginRateLimit", 1.0)
	v.SetDefault("auth.loginBurst", 5)
	v.SetDefault("auth.passwordResetTimeout", 3*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "evoluflow")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("email.defaultFrom", "noreply@localhost")
	v.SetDefault("email.sendgridAPIKey", "")

	v.SetDefault("console.apiBaseURL", "http://localhost:3000/api")
	v.SetDefault("console.sessionFile", filepath.Join(os.TempDir(), "evoluflow-session.json"))
}
