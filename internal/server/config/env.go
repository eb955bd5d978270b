package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv overlays values from a .env file and the process environment.
// The file is the one named by -env, or ./.env when present. Variables set
// in the process environment take precedence over the file.
//
// Recognised variables:
//
//	HTTP_ADDR, BASE_URL, LOG_LEVEL, DB_URL, SECRET_KEY_JWT, ALGORITHM,
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, EMAIL_TOKEN_TTL (Go durations),
//	MAIL_SERVER, MAIL_PORT, MAIL_USERNAME, MAIL_PASSWORD, MAIL_FROM, MAIL_FROM_NAME,
//	MAIL_WORKERS, MAIL_QUEUE_SIZE, REDIS_ADDR, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
//
// Malformed numbers or durations, or an unreadable explicit -env file, panic.
func parseEnv(config *Config, lookupEnv func(string) (string, bool)) {
	fileVars := readEnvFile(flagx.ConfigFileFlags(os.Args[1:]).Env)

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	envString(lookup, "HTTP_ADDR", &config.HTTPAddr)
	envString(lookup, "BASE_URL", &config.BaseURL)
	envString(lookup, "LOG_LEVEL", &config.LogLevel)
	envString(lookup, "DB_URL", &config.DatabaseDSN)
	envString(lookup, "SECRET_KEY_JWT", &config.SecretKey)
	envString(lookup, "ALGORITHM", &config.Algorithm)
	envDuration(lookup, "ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	envDuration(lookup, "REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	envDuration(lookup, "EMAIL_TOKEN_TTL", &config.EmailTokenValidityDuration)
	envString(lookup, "MAIL_SERVER", &config.SMTPHost)
	envInt(lookup, "MAIL_PORT", &config.SMTPPort)
	envString(lookup, "MAIL_USERNAME", &config.SMTPUser)
	envString(lookup, "MAIL_PASSWORD", &config.SMTPPassword)
	envString(lookup, "MAIL_FROM", &config.MailFrom)
	envString(lookup, "MAIL_FROM_NAME", &config.MailFromName)
	envInt(lookup, "MAIL_WORKERS", &config.MailWorkers)
	envInt(lookup, "MAIL_QUEUE_SIZE", &config.MailQueueSize)
	envString(lookup, "REDIS_ADDR", &config.RedisAddr)
	envInt(lookup, "RATE_LIMIT_REQUESTS", &config.RateLimitRequests)
	envDuration(lookup, "RATE_LIMIT_WINDOW", &config.RateLimitWindow)
	envString(lookup, "S3_ROOT_USER", &config.S3RootUser)
	envString(lookup, "S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString(lookup, "S3_BUCKET", &config.S3Bucket)
	envString(lookup, "S3_REGION", &config.S3Region)
	envString(lookup, "S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}

func readEnvFile(path string) map[string]string {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		panic(err)
	}
	return vars
}

func envString(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func envInt(lookup func(string) (string, bool), key string, dst *int) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(lookup func(string) (string, bool), key string, dst *time.Duration) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
