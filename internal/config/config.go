package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time expresses the duration knobs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// timers that drive the invite lifecycle.
type Config struct {
    Env         string // application environment (e.g. "dev", "prod")
    Port        string // HTTP port to listen on
    JWTSecret   string // secret used to verify externally issued JWTs
    StoreDriver string // "mysql" or "memory"
    DBUser      string // database username (mysql driver only)
    DBPass      string // database password (optional)
    DBHost      string // database host address
    DBPort      string // database port number
    DBName      string // database name

    Currency       string        // ISO currency code stamped on new sessions
    InviteTTL      time.Duration // time-to-live of an incomplete invite
    SweepInterval  time.Duration // expiration scheduler interval
    PaymentTimeout time.Duration // bound on a single payment call
    CASRetries     int           // bounded retries on version conflicts

    TicketServiceURL  string // base URL of the ticket ledger
    PaymentServiceURL string // base URL of the payment coordinator
    ChatServiceURL    string // base URL of the chat-membership service
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are only required when the mysql store driver is selected.
func Load() Config {
    cfg := Config{
        Env:         must("APP_ENV"),
        Port:        must("APP_PORT"),
        JWTSecret:   must("JWT_SECRET"),
        StoreDriver: envStr("STORE_DRIVER", "mysql"),

        Currency:       envStr("CURRENCY", "INR"),
        InviteTTL:      time.Duration(envInt("INVITE_TTL_HOURS", 3)) * time.Hour,
        SweepInterval:  time.Duration(envInt("SWEEP_INTERVAL_SEC", 30)) * time.Second,
        PaymentTimeout: time.Duration(envInt("PAYMENT_TIMEOUT_SEC", 10)) * time.Second,
        CASRetries:     envInt("CAS_RETRIES", 3),

        TicketServiceURL:  must("TICKET_SERVICE_URL"),
        PaymentServiceURL: must("PAYMENT_SERVICE_URL"),
        ChatServiceURL:    must("CHAT_SERVICE_URL"),
    }
    if cfg.StoreDriver == "mysql" {
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    }
    return cfg
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
