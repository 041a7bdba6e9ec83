package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	MaxBodyBytes      int64
	MaxConcurrent     int64
	RPS               float64 // 全局令牌桶
	Burst             int
	TrustedProxies    []string
	CORSOrigins       []string
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level      string
	JSON       bool
	File       string // 非空则额外写文件并切割
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret             string // access token
	RefreshSecret      string
	Issuer             string
	AccessTokenTTLMin  int
	RefreshTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string // mongo / postgres / mysql / sqlite
	DSN                string
	Name               string // mongo 库名
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
	ConnectTimeoutSec  int
}

// RateLimit 登录 / 刷新令牌的按地址限流
type RateLimit struct {
	Store  string // memory / redis
	Window time.Duration
	Max    int
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	RateLimit RateLimit
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "task-manager-api")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 3000)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.http.requesttimeoutsec", 10)
	v.SetDefault("app.http.maxbodybytes", 1<<20)
	v.SetDefault("app.http.maxconcurrent", 300)
	v.SetDefault("app.http.rps", 200)
	v.SetDefault("app.http.burst", 400)
	v.SetDefault("app.http.trustedproxies", []string{})
	v.SetDefault("app.http.corsorigins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxsizemb", 100)
	v.SetDefault("log.maxbackups", 7)
	v.SetDefault("log.maxagedays", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.refreshsecret", "")
	v.SetDefault("jwt.issuer", "task-manager-api")
	v.SetDefault("jwt.accesstokenttlmin", 120)
	v.SetDefault("jwt.refreshtokenttlmin", 7*24*60)

	v.SetDefault("db.driver", "mongo")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.name", "taskmanager")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxopenconns", 50)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")
	v.SetDefault("db.connecttimeoutsec", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.window", 15*time.Minute)
	v.SetDefault("ratelimit.max", 10)
}

// Load 读取 yaml（可选）+ APP_ 前缀环境变量；也兼容旧的 MONGO_URI / SECRET_KEY 等变量名
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = defaultPath
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"db.dsn":            {"APP_DB_DSN", "MONGO_URI", "DATABASE_URL"},
		"jwt.secret":        {"APP_JWT_SECRET", "SECRET_KEY"},
		"jwt.refreshsecret": {"APP_JWT_REFRESHSECRET", "REFRESH_SECRET"},
		"app.http.port":     {"APP_APP_HTTP_PORT", "PORT"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate 启动前必须提供的配置
func (c *Config) Validate() error {
	var problems []error
	if c.JWT.Secret == "" {
		problems = append(problems, errors.New("jwt.secret (SECRET_KEY) is required"))
	}
	if c.JWT.RefreshSecret == "" {
		problems = append(problems, errors.New("jwt.refreshsecret (REFRESH_SECRET) is required"))
	}
	if c.JWT.Secret != "" && c.JWT.Secret == c.JWT.RefreshSecret {
		problems = append(problems, errors.New("access and refresh secrets must differ"))
	}
	if c.DB.DSN == "" {
		problems = append(problems, errors.New("db.dsn (MONGO_URI / DATABASE_URL) is required"))
	}
	switch c.DB.Driver {
	case "mongo", "postgres", "mysql", "sqlite":
	default:
		problems = append(problems, fmt.Errorf("unsupported db.driver %q", c.DB.Driver))
	}
	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			problems = append(problems, errors.New("redis.addr is required when ratelimit.store=redis"))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported ratelimit.store %q", c.RateLimit.Store))
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		problems = append(problems, errors.New("ratelimit.max and ratelimit.window must be positive"))
	}
	return errors.Join(problems...)
}

func (j JWT) AccessTTL() time.Duration  { return time.Duration(j.AccessTokenTTLMin) * time.Minute }
func (j JWT) RefreshTTL() time.Duration { return time.Duration(j.RefreshTokenTTLMin) * time.Minute }
