package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	URL  string // 对外地址，邮件里的链接用它拼
	HTTP HTTP
}

type Log struct {
	Level string
	JSON  bool
}

type DB struct {
	Driver             string // sqlite / mysql / postgres
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Redis struct {
	Enable   bool   `mapstructure:"enable"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Session struct {
	CookieName   string
	TTLHours     int
	CookieSecure bool
}

type JWT struct {
	Secret     string
	Issuer     string
	TTLDays    int
	CookieName string
}

type SMTP struct {
	Enable   bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Auth struct {
	// 显式的管理员白名单，登录时按用户名比对（替代把用户名写死在鉴权逻辑里）
	AdminUsernames []string `mapstructure:"admin_usernames"`
}

type Shop struct {
	WhatsAppPhone string `mapstructure:"whatsapp_phone"`
	CacheTTLSec   int    `mapstructure:"cache_ttl_sec"`
}

type Config struct {
	App     App
	Log     Log
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Session Session
	JWT     JWT
	SMTP    SMTP
	Auth    Auth `mapstructure:"auth"`
	Shop    Shop `mapstructure:"shop"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "casa-comfort")
	v.SetDefault("app.url", "http://localhost:8080")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "casa_comfort.db")
	v.SetDefault("db.automigrate", true)
	v.SetDefault("session.cookiename", "sid")
	v.SetDefault("session.ttlhours", 24)
	v.SetDefault("jwt.issuer", "casa-comfort")
	v.SetDefault("jwt.ttldays", 7)
	v.SetDefault("jwt.cookiename", "token")
	v.SetDefault("shop.cache_ttl_sec", 30)
}
