// Package config reads server settings from flags, the environment and an
// optional .env file. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string

	// S3 image storage. Images go to the database when Bucket is empty.
	Bucket    string
	Region    string
	PublicURL string

	CORSOrigins []string

	// Requests per second and burst for the login and register endpoints.
	AuthRate  float64
	AuthBurst int

	// RotateSecret replaces the token signing secret on startup, which logs
	// every member out.
	RotateSecret bool
}

const usage = `Usage: flipi [flags]

Flags:
  -d, -db <path>          SQLite database path (env FLIPI_DB, default: flipi.sqlite3)
  -a, -addr <host:port>   listen address (env FLIPI_ADDR, default: :8080)
  -u, -user <name>        admin username on first run (env FLIPI_ADMIN, default: Admin)
  -l, -log <path>         log file path (env FLIPI_LOG, default: stdout/stderr only)
  -bucket <name>          S3 bucket for images (env FLIPI_BUCKET, default: store in database)
  -region <name>          S3 region (env FLIPI_REGION or AWS_REGION, default: eu-central-1)
  -public-url <url>       public base URL of the bucket (env FLIPI_PUBLIC_URL)
  -cors <origins>         comma separated allowed origins (env FLIPI_CORS, default: *)
  -auth-rate <n>          auth requests per second per client (env FLIPI_AUTH_RATE, default: 1)
  -auth-burst <n>         auth request burst per client (env FLIPI_AUTH_BURST, default: 5)
  -rotate-secret          replace the token signing secret, logging everyone out
  -h, -help               show this help and exit
`

// Load reads envFile (if it exists) into the environment and parses args.
// It returns flag.ErrHelp when help was requested.
func Load(args []string, envFile string, out io.Writer) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	flags := flag.NewFlagSet("flipi", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() { fmt.Fprint(out, usage) }

	cfg := &Config{}
	stringVar(flags, &cfg.DBPath, []string{"db", "d"}, env("FLIPI_DB", "flipi.sqlite3"))
	stringVar(flags, &cfg.Addr, []string{"addr", "a"}, env("FLIPI_ADDR", ":8080"))
	stringVar(flags, &cfg.AdminUser, []string{"user", "u"}, env("FLIPI_ADMIN", "Admin"))
	stringVar(flags, &cfg.LogPath, []string{"log", "l"}, env("FLIPI_LOG", ""))
	stringVar(flags, &cfg.Bucket, []string{"bucket"}, env("FLIPI_BUCKET", ""))
	stringVar(flags, &cfg.Region, []string{"region"}, env("FLIPI_REGION", env("AWS_REGION", "eu-central-1")))
	stringVar(flags, &cfg.PublicURL, []string{"public-url"}, env("FLIPI_PUBLIC_URL", ""))

	var cors string
	stringVar(flags, &cors, []string{"cors"}, env("FLIPI_CORS", "*"))

	rate, err := strconv.ParseFloat(env("FLIPI_AUTH_RATE", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing FLIPI_AUTH_RATE: %w", err)
	}
	burst, err := strconv.Atoi(env("FLIPI_AUTH_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("parsing FLIPI_AUTH_BURST: %w", err)
	}
	flags.Float64Var(&cfg.AuthRate, "auth-rate", rate, "")
	flags.IntVar(&cfg.AuthBurst, "auth-burst", burst, "")
	flags.BoolVar(&cfg.RotateSecret, "rotate-secret", false, "")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	for _, o := range strings.Split(cors, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	if cfg.AuthRate <= 0 || cfg.AuthBurst <= 0 {
		return nil, errors.New("auth rate and burst must be positive")
	}
	return cfg, nil
}

func stringVar(flags *flag.FlagSet, p *string, names []string, value string) {
	for _, name := range names {
		flags.StringVar(p, name, value, "")
	}
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
