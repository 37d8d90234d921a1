package config

import (
    "log"
    "os"
    "strconv"
)

// Config holds every runtime setting the server needs. One field per
// environment variable; required ones are enforced at startup by
// must(), so a misconfigured deployment dies before taking traffic.
type Config struct {
    Env            string // application environment ("dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // MySQL username
    DBPass         string // MySQL password (optional)
    DBHost         string // MySQL host
    DBPort         string // MySQL port
    DBName         string // MySQL database name
    JWTSecret      string // HS256 signing secret for access tokens
    AccessTTLMin   int    // access token lifetime in minutes
    RefreshTTLDays int    // refresh token lifetime in days
    BcryptCost     int    // bcrypt cost for password hashing
}

// Load reads the configuration from the environment.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed for local setups
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
    }
}

func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
