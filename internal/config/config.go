package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	DBDriver        string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	JWTSecret    string
	JWTExpiresIn time.Duration
	StrictCNPJ   bool
	CORSOrigins  []string

	FrontendBaseURL   string
	FrontendResetPath string
	SMTP              SMTP

	RedisURL    string
	RabbitURI   string
	RabbitQueue string
	Tracing     Tracing

	AdminEmail    string
	AdminPassword string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Tracing configures span export. An empty Endpoint turns tracing off.
type Tracing struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	ServiceName string
	Environment string
}

// Enabled reports whether mail should actually be sent.
func (s SMTP) Enabled() bool { return s.Host != "" }

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Port:     getenv("PORT", "3333"),
		LogLevel: parseLevel(getenv("LOG_LEVEL", "info")),

		MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		JWTSecret:    getenv("JWT_SECRET", ""),
		JWTExpiresIn: parseDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		StrictCNPJ:   parseBool("STRICT_CNPJ", true),
		CORSOrigins:  splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),

		FrontendBaseURL:   strings.TrimRight(getenv("FRONTEND_BASE_URL", "http://localhost:5173"), "/"),
		FrontendResetPath: getenv("FRONTEND_RESET_PATH", "/cadastrar-senha"),
		SMTP: SMTP{
			Host:     getenv("SMTP_HOST", ""),
			Port:     parseInt("SMTP_PORT", 587),
			User:     getenv("SMTP_USER", ""),
			Password: getenv("SMTP_PASS", ""),
			From:     getenv("MAIL_FROM", "Kogma <no-reply@kogma.local>"),
		},

		RedisURL:    getenv("REDIS_URL", ""),
		RabbitURI:   getenv("RABBIT_URI", ""),
		RabbitQueue: getenv("RABBIT_QUEUE", "kogma_orders"),

		Tracing: Tracing{
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    parseBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: parseFloat("OTEL_TRACES_SAMPLER_ARG", 1),
			ServiceName: getenv("OTEL_SERVICE_NAME", "kogma-api"),
			Environment: getenv("APP_ENV", "development"),
		},

		AdminEmail:    strings.ToLower(strings.TrimSpace(getenv("ADMIN_EMAIL", ""))),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),

		ReadHeaderTimeout: parseDuration("READ_HEADER_TIMEOUT", 5*time.Second),
		ShutdownTimeout:   parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	driver, dsn, err := databaseDSN()
	if err != nil {
		return nil, err
	}
	c.DBDriver, c.DSN = driver, dsn

	if c.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return c, nil
}

// databaseDSN prefers DATABASE_URL and falls back to the DB_* variables.
func databaseDSN() (driver, dsn string, err error) {
	if raw := getenv("DATABASE_URL", ""); raw != "" {
		return parseDatabaseURL(raw)
	}

	driver = getenv("DB_DRIVER", "mysql")
	host := getenv("DB_HOST", "localhost")
	user := getenv("DB_USER", "root")
	pass := getenv("DB_PASSWORD", "")
	name := getenv("DB_NAME", "kogma")

	switch driver {
	case "mysql":
		port := getenv("DB_PORT", "3306")
		return driver, mysqlDSN(user, pass, host+":"+port, name, nil), nil
	case "postgres":
		port := getenv("DB_PORT", "5432")
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, pass),
			Host:     host + ":" + port,
			Path:     "/" + name,
			RawQuery: "sslmode=" + getenv("DB_SSLMODE", "disable"),
		}
		return driver, u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

func parseDatabaseURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", raw, nil
	case "mysql":
		pass, _ := u.User.Password()
		host := u.Host
		if u.Port() == "" {
			host += ":3306"
		}
		return "mysql", mysqlDSN(u.User.Username(), pass, host, strings.TrimPrefix(u.Path, "/"), u.Query()), nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme %q", u.Scheme)
	}
}

func mysqlDSN(user, pass, addr, name string, extra url.Values) string {
	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = pass
	mc.Net = "tcp"
	mc.Addr = addr
	mc.DBName = name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for k := range extra {
		mc.Params[k] = extra.Get(k)
	}
	return mc.FormatDSN()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
