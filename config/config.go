package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Fees      FeeConfig       `mapstructure:"fees"`
	Chain     ChainConfig     `mapstructure:"chain"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"` // postgres | sqlite
	DSN          string        `mapstructure:"dsn"`    // 优先于下面的分项配置
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	Timeout      time.Duration `mapstructure:"timeout"` // 每次存储调用的超时
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	LogLevel     string        `mapstructure:"log_level"`
}

func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// VaultConfig 签名与 ReferralVault 合约配置；缺省时 sign-voucher 返回 configured=false
type VaultConfig struct {
	SignerPrivateKey     string        `mapstructure:"signer_private_key"`
	SignerMnemonic       string        `mapstructure:"signer_mnemonic"`
	SignerDerivationPath string        `mapstructure:"signer_derivation_path"`
	RemoteSignerURL      string        `mapstructure:"remote_signer_url"`
	SignerAddress        string        `mapstructure:"signer_address"` // 仅远程签名时需要
	Address              string        `mapstructure:"address"`
	ChainID              int64         `mapstructure:"chain_id"`
	VoucherTTL           time.Duration `mapstructure:"voucher_ttl"`
	TokenAllowlist       []string      `mapstructure:"token_allowlist"`
}

type FeeConfig struct {
	FeeBps           int64 `mapstructure:"fee_bps"`
	ReferrerShareBps int64 `mapstructure:"referrer_share_bps"`
}

type ChainConfig struct {
	RPCURL      string `mapstructure:"rpc_url"`
	VerifySwaps bool   `mapstructure:"verify_swaps"`
}

type RateLimitConfig struct {
	VoucherPerMinute int `mapstructure:"voucher_per_minute"`
	VoucherBurst     int `mapstructure:"voucher_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Output string `mapstructure:"output"` // stdout, stderr, file
	File   string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "referral_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("vault.signer_private_key", "")
	v.SetDefault("vault.signer_mnemonic", "")
	v.SetDefault("vault.signer_derivation_path", "m/44'/60'/0'/0/0")
	v.SetDefault("vault.remote_signer_url", "")
	v.SetDefault("vault.signer_address", "")
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.chain_id", 0)
	v.SetDefault("vault.voucher_ttl", time.Hour)
	v.SetDefault("vault.token_allowlist", []string{})
	v.SetDefault("fees.fee_bps", 200)
	v.SetDefault("fees.referrer_share_bps", 3000)
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.verify_swaps", false)
	v.SetDefault("ratelimit.voucher_per_minute", 30)
	v.SetDefault("ratelimit.voucher_burst", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/referral-ledger.log")
}

// Load reads .env, an optional yaml file and the environment (VAULT_ADDRESS -> vault.address).
// path may be empty to search the default locations.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/referral-ledger")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// list values coming from env arrive as one comma separated string
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Vault.TokenAllowlist = splitList(cfg.Vault.TokenAllowlist)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Fees.FeeBps < 0 || c.Fees.FeeBps > 10000 {
		return fmt.Errorf("fees.fee_bps must be within 0..10000, got %d", c.Fees.FeeBps)
	}
	if c.Fees.ReferrerShareBps < 0 || c.Fees.ReferrerShareBps > 10000 {
		return fmt.Errorf("fees.referrer_share_bps must be within 0..10000, got %d", c.Fees.ReferrerShareBps)
	}
	if c.Chain.VerifySwaps && c.Chain.RPCURL == "" {
		return errors.New("chain.verify_swaps requires chain.rpc_url")
	}
	return nil
}

// Redacted is safe to log: key material is replaced.
func (c Config) Redacted() Config {
	out := c
	if out.Vault.SignerPrivateKey != "" {
		out.Vault.SignerPrivateKey = "<redacted>"
	}
	if out.Vault.SignerMnemonic != "" {
		out.Vault.SignerMnemonic = "<redacted>"
	}
	if out.Database.Password != "" {
		out.Database.Password = "<redacted>"
	}
	if out.Database.DSN != "" {
		out.Database.DSN = "<redacted>"
	}
	return out
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
