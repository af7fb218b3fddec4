package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "time"     // time converts minute counts into durations

    "github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The database settings are optional: when
// DB_HOST is empty venues live in memory and only the demo venue exists.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address (empty = in-memory venues)
    DBPort          string        // database port number
    DBName          string        // database name
    SessionSecret   string        // secret used to sign session tokens
    OperatorSecret  string        // secret of operator tokens; empty disables venue writes
    SessionTTL      time.Duration // idle time after which a selection session is dropped
    SweepInterval   time.Duration // how often idle sessions are swept
    PublishEnabled  bool          // publish selection.completed events to RabbitMQ
    ConsumerEnabled bool          // run the selection.completed log consumer in-process
    ConsumerLogDir  string        // directory the consumer appends selection.log to
}

// UseDatabase reports whether a MySQL backend is configured.
func (c Config) UseDatabase() bool { return c.DBHost != "" }

// LoadDotEnv loads variables from path (default ".env") when the file
// exists.  Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
    if len(paths) == 0 {
        paths = []string{".env"}
    }
    for _, p := range paths {
        if _, err := os.Stat(p); err != nil {
            continue
        }
        if err := godotenv.Load(p); err != nil {
            log.Printf("config: could not load %s: %v", p, err)
        }
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:             must("APP_ENV"),                        // environment (dev/test/prod)
        Port:            must("APP_PORT"),                       // port to bind the HTTP server
        DBUser:          os.Getenv("DB_USER"),                   // database user
        DBPass:          os.Getenv("DB_PASS"),                   // database password (empty allowed)
        DBHost:          os.Getenv("DB_HOST"),                   // database host
        DBPort:          envStr("DB_PORT", "3306"),              // database port
        DBName:          os.Getenv("DB_NAME"),                   // database name
        SessionSecret:   must("SESSION_SECRET"),                 // secret used for signing session tokens
        OperatorSecret:  os.Getenv("OPERATOR_SECRET"),            // optional operator token secret
        SessionTTL:      time.Duration(envInt("SESSION_TTL_MIN", 30)) * time.Minute,
        SweepInterval:   envDur("SESSION_SWEEP_INTERVAL", time.Minute),
        PublishEnabled:  envBool("QUEUE_PUBLISH_ENABLED", false),
        ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", false),
        ConsumerLogDir:  envStr("QUEUE_LOG_DIR", "logs"),
    }
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
