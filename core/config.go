package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName                   string
		Build                     string
		Env                       string // DEV (local; default), TEST, QA, PROD
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridApiKey            string

		Server       serverConfig
		Database     databaseConfig
		Redis        redisConfig
		Notification notificationConfig
		Event        eventConfig
	}

	serverConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64 // requests per second per client on sensitive endpoints
		RateBurst                 int
		DisableReqLogs            bool
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	redisConfig struct {
		Address  string // empty: notifications are fanned out in-process
		Password string
		DB       int
	}

	notificationConfig struct {
		Workers       int
		BatchSize     int
		MaxAttempts   int
		BaseBackoff   time.Duration
		MaxBackoff    time.Duration
		LeaseTimeout  time.Duration
		SweepSchedule string // cron spec
		EmailEnabled  bool
	}

	eventConfig struct {
		ArchiveSchedule string // cron spec
		FeaturedLimit   int
	}
)

func (dbc databaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Campus Connect")
	conf.SetDefault("secretKey", "k2l$+v8)x#4wn!cq=0s7hu^zr&pf1(m9e*d5yb@ag3o6tj_ixe")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromName", "Campus Connect")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.rateLimit", 1.0)
	conf.SetDefault("server.rateBurst", 5)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "campusconnect")
	conf.SetDefault("database.user", "campusconnect")
	conf.SetDefault("database.password", "campusconnect")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("database.maxOpenConns", 20)

	conf.SetDefault("redis.address", "")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)

	conf.SetDefault("notification.workers", 4)
	conf.SetDefault("notification.batchSize", 50)
	conf.SetDefault("notification.maxAttempts", 6)
	conf.SetDefault("notification.baseBackoff", 5*time.Second)
	conf.SetDefault("notification.maxBackoff", 30*time.Minute)
	conf.SetDefault("notification.leaseTimeout", 2*time.Minute)
	conf.SetDefault("notification.sweepSchedule", "@every 30s")
	conf.SetDefault("notification.emailEnabled", true)

	conf.SetDefault("event.archiveSchedule", "@hourly")
	conf.SetDefault("event.featuredLimit", 3)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// DEV_SERVER_HOST -> server.host
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	return &Config{
		AppName:         conf.GetString("appName"),
		Build:           conf.GetString("build"),
		Env:             env,
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: strings.TrimSuffix(conf.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("defaultFromName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		Server: serverConfig{
			Host:                      conf.GetString("server.host"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			RateLimit:                 conf.GetFloat64("server.rateLimit"),
			RateBurst:                 conf.GetInt("server.rateBurst"),
			DisableReqLogs:            conf.GetBool("server.disableReqLogs"),
		},
		Database: databaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
			MaxOpenConns:  conf.GetInt("database.maxOpenConns"),
		},
		Redis: redisConfig{
			Address:  conf.GetString("redis.address"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
		Notification: notificationConfig{
			Workers:       conf.GetInt("notification.workers"),
			BatchSize:     conf.GetInt("notification.batchSize"),
			MaxAttempts:   conf.GetInt("notification.maxAttempts"),
			BaseBackoff:   conf.GetDuration("notification.baseBackoff"),
			MaxBackoff:    conf.GetDuration("notification.maxBackoff"),
			LeaseTimeout:  conf.GetDuration("notification.leaseTimeout"),
			SweepSchedule: conf.GetString("notification.sweepSchedule"),
			EmailEnabled:  conf.GetBool("notification.emailEnabled"),
		},
		Event: eventConfig{
			ArchiveSchedule: conf.GetString("event.archiveSchedule"),
			FeaturedLimit:   conf.GetInt("event.featuredLimit"),
		},
	}
}

// configDir defaults to ./config; CONFIG_DIR overrides it (tests run from their package dir).
func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
