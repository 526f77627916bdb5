package cassandra

import (
	"flag"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxRetries bounds the dispatch retry loop.
	DefaultMaxRetries = 5
	// DefaultPageSize is the per-page row and column count used when a
	// caller does not specify one.
	DefaultPageSize = 100
)

// Config for a Client.
type Config struct {
	Addresses      string        `yaml:"addresses"`
	Port           int           `yaml:"port"`
	Keyspace       string        `yaml:"keyspace"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Framed         bool          `yaml:"framed"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	MinBackoff     time.Duration `yaml:"min_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	PageSize       int           `yaml:"page_size"`

	// For tests to inject specific implementations.
	StubFactory StubFactory `yaml:"-"`
	Rand        *rand.Rand  `yaml:"-"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.Addresses, "cassandra.addresses", "", "Comma-separated hostnames or ips of Cassandra instances.")
	f.IntVar(&cfg.Port, "cassandra.port", 9160, "Default port for addresses given without one.")
	f.StringVar(&cfg.Keyspace, "cassandra.keyspace", "", "Keyspace to select after connecting.")
	f.StringVar(&cfg.Username, "cassandra.username", "", "Username to authenticate with after selecting the keyspace.")
	f.StringVar(&cfg.Password, "cassandra.password", "", "Password to authenticate with after selecting the keyspace.")
	f.BoolVar(&cfg.Framed, "cassandra.framed", true, "Use a framed transport.")
	f.DurationVar(&cfg.ConnectTimeout, "cassandra.connect-timeout", 1*time.Second, "Timeout when opening a connection.")
	f.DurationVar(&cfg.SendTimeout, "cassandra.send-timeout", 0, "Socket send timeout. 0 means no explicit timeout.")
	f.DurationVar(&cfg.ReceiveTimeout, "cassandra.receive-timeout", 0, "Socket receive timeout. 0 means no explicit timeout.")
	f.IntVar(&cfg.MaxRetries, "cassandra.max-retries", DefaultMaxRetries, "Number of attempts for each remote call before giving up.")
	f.DurationVar(&cfg.MinBackoff, "cassandra.min-backoff", 100*time.Millisecond, "Initial delay between call retries; doubles on each retry.")
	f.DurationVar(&cfg.MaxBackoff, "cassandra.max-backoff", 10*time.Second, "Cap on the delay between call retries.")
	f.IntVar(&cfg.PageSize, "cassandra.page-size", DefaultPageSize, "Rows and columns fetched per page when not specified per call.")
}

func (cfg *Config) applyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = 9160
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 1 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
}

// servers parses the address list into node descriptors.
func (cfg *Config) servers() ([]NodeDescriptor, error) {
	if strings.TrimSpace(cfg.Addresses) == "" {
		return nil, errors.New("no cassandra addresses configured")
	}
	var nodes []NodeDescriptor
	for _, addr := range strings.Split(cfg.Addresses, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, port := addr, cfg.Port
		if h, p, err := net.SplitHostPort(addr); err == nil {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, errors.Wrapf(err, "bad port in address %q", addr)
			}
			host, port = h, n
		}
		nodes = append(nodes, NodeDescriptor{
			Host:           host,
			Port:           port,
			Framed:         cfg.Framed,
			ConnectTimeout: cfg.ConnectTimeout,
			SendTimeout:    cfg.SendTimeout,
			ReceiveTimeout: cfg.ReceiveTimeout,
		})
	}
	if len(nodes) == 0 {
		return nil, errors.New("no cassandra addresses configured")
	}
	return nodes, nil
}
