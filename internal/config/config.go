package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings normalises addresses and flags
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and identities are strings, durations
// and costs are ints as the rest of the service expects them.
type Config struct {
    Env             string // application environment (e.g. "dev", "prod")
    Port            string // HTTP port to listen on
    DBUser          string // database username
    DBPass          string // database password (optional)
    DBHost          string // database host address
    DBPort          string // database port number
    DBName          string // database name
    JWTSecret       string // secret used to sign session tokens
    SessionTTLMin   int    // session lifetime in minutes
    BcryptCost      int    // bcrypt cost for password hashing
    MasterTenantID  string // reserved tenant that is always elevated and never deleted
    ElevatedEmail   string // contact address of the single elevated operator (lower-cased)
    EmergencySecret string // shared recovery secret; empty disables the fallback login
    NotifyTo        string // mailbox that receives booking notices
    CookieSecure    bool   // mark the session cookie Secure
    AMQPURL         string // broker used for notification fan-out
    TelegramToken   string // optional bot token for operator chat notices
    TelegramChatID  int64  // chat that receives operator notices
    Log             LogConfig
}

// LogConfig selects level and output format for the zap logger.
type LogConfig struct {
    Level  string // debug, info, warn, error
    Format string // json or console
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:             must("APP_ENV"),                                          // environment (dev/test/prod)
        Port:            must("APP_PORT"),                                         // port to bind the HTTP server
        DBUser:          must("DB_USER"),                                          // database user
        DBPass:          os.Getenv("DB_PASS"),                                     // database password (empty allowed)
        DBHost:          must("DB_HOST"),                                          // database host
        DBPort:          must("DB_PORT"),                                          // database port
        DBName:          must("DB_NAME"),                                          // database name
        JWTSecret:       must("JWT_SECRET"),                                       // secret used for signing sessions
        SessionTTLMin:   mustInt("SESSION_TTL_MIN"),                               // session TTL in minutes
        BcryptCost:      mustInt("BCRYPT_COST"),                                   // bcrypt cost factor
        MasterTenantID:  must("MASTER_TENANT_ID"),                                 // reserved master tenant
        ElevatedEmail:   strings.ToLower(strings.TrimSpace(os.Getenv("ELEVATED_EMAIL"))),
        EmergencySecret: os.Getenv("EMERGENCY_SECRET"),
        NotifyTo:        envStr("NOTIFY_TO", "bookings@localhost"),
        CookieSecure:    envBool("COOKIE_SECURE", false),
        AMQPURL:         amqpURL(),
        TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
        TelegramChatID:  int64(envInt("TELEGRAM_CHAT_ID", 0)),
        Log: LogConfig{
            Level:  envStr("LOG_LEVEL", "info"),
            Format: envStr("LOG_FORMAT", "json"),
        },
    }
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c Config) IsDevelopment() bool {
    return c.Env == "dev" || c.Env == "development" || c.Env == "local"
}

// amqpURL keeps the two variable names the queue code always honoured.
// An empty result disables the broker.
func amqpURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
