package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Transport names accepted by CHAT_TRANSPORT.
const (
	TransportMemory  = "memory"
	TransportDiscord = "discord"
	TransportRedis   = "redis"
)

// Config is the full runtime configuration, read from the environment so main stays lean.
type Config struct {
	Env          string             `env:"VERIGATE_ENV,default=dev"`
	HTTP         HTTPConfig         `env:",prefix=HTTP_"`
	Identity     IdentityConfig     `env:",prefix=IDENTITY_"`
	Verification VerificationConfig `env:",prefix=VERIFY_"`
	Store        StoreConfig        `env:",prefix=STORE_"`
	Chat         ChatConfig         `env:",prefix=CHAT_"`
	Redis        RedisConfig        `env:",prefix=REDIS_"`
	Kafka        KafkaConfig        `env:",prefix=KAFKA_"`
}

// HTTPConfig captures HTTP server level configuration.
type HTTPConfig struct {
	Addr       string `env:"ADDR,default=:8080"`
	AdminToken string `env:"ADMIN_TOKEN"`
	// ServiceToken gates the /v1 API; empty leaves it closed.
	ServiceToken string `env:"SERVICE_TOKEN"`
}

// IdentityConfig points the identity client at the remote "who am I" endpoint.
type IdentityConfig struct {
	Endpoint    string        `env:"ENDPOINT,default=http://localhost:9090/v1/users/authenticated"`
	AuthHeader  string        `env:"AUTH_HEADER,default=Authorization"`
	AuthScheme  string        `env:"AUTH_SCHEME,default=Bearer"`
	StripPrefix string        `env:"STRIP_PREFIX,default=Bearer "`
	Timeout     time.Duration `env:"TIMEOUT,default=3s"`
	UserAgent   string        `env:"USER_AGENT,default=verigate/1.0"`
}

// VerificationConfig tunes the verification state machine.
type VerificationConfig struct {
	// StaleAfter is how long a successful validation is trusted before the gate revalidates.
	StaleAfter          time.Duration `env:"STALE_AFTER,default=1h"`
	MinCredentialLength int           `env:"MIN_CREDENTIAL_LENGTH,default=20"`
	TaskTimeout         time.Duration `env:"TASK_TIMEOUT,default=15s"`
	// SubmitLimit caps credential submissions per user within SubmitWindow; 0 disables it.
	SubmitLimit  int           `env:"SUBMIT_LIMIT,default=5"`
	SubmitWindow time.Duration `env:"SUBMIT_WINDOW,default=1m"`
}

// StoreConfig describes the channel that doubles as the record store.
type StoreConfig struct {
	ChannelID string `env:"CHANNEL_ID,default=database"`
	// Window is how many recent messages are scanned; records older than it are invisible.
	Window int `env:"WINDOW,default=100"`
}

// ChatConfig selects and configures the chat transport.
type ChatConfig struct {
	Transport      string `env:"TRANSPORT,default=memory"`
	DiscordToken   string `env:"DISCORD_TOKEN"`
	GuildID        string `env:"GUILD_ID"`
	GuildName      string `env:"GUILD_NAME,default=the server"`
	AuditChannelID string `env:"AUDIT_CHANNEL_ID,default=logging"`
}

// RedisConfig configures the optional Redis-emulated channel transport.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE,default=10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS,default=2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT,default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=3s"`
	KeyPrefix    string        `env:"KEY_PREFIX,default=verigate"`
}

// KafkaConfig enables mirroring audit events to a topic when Brokers is set.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC,default=verigate.audit"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// FromMap reads configuration from a fixed map; used by tests.
func FromMap(ctx context.Context, env map[string]string) (Config, error) {
	return load(ctx, envconfig.MapLookuper(env))
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &cfg, lookuper); err != nil {
		return Config{}, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c Config) Validate() error {
	var errs []error
	switch c.Chat.Transport {
	case TransportMemory:
	case TransportDiscord:
		if c.Chat.DiscordToken == "" {
			errs = append(errs, errors.New("CHAT_DISCORD_TOKEN is required for the discord transport"))
		}
	case TransportRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CHAT_TRANSPORT %q", c.Chat.Transport))
	}
	if c.Store.ChannelID == "" {
		errs = append(errs, errors.New("STORE_CHANNEL_ID is required"))
	}
	if c.Store.Window <= 0 || c.Store.Window > 100 {
		errs = append(errs, fmt.Errorf("STORE_WINDOW must be within 1..100, got %d", c.Store.Window))
	}
	if c.Verification.StaleAfter <= 0 {
		errs = append(errs, errors.New("VERIFY_STALE_AFTER must be positive"))
	}
	if c.Identity.Timeout <= 0 {
		errs = append(errs, errors.New("IDENTITY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the process runs with development defaults.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}
