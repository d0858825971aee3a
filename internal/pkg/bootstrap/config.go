// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"stockd/internal/pkg/logger"
)

// Duration 包装 time.Duration，支持 YAML 里的 "30m"、"20ms" 写法
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config 是进程级配置的根结构，从 YAML 文件加载，环境变量可覆盖关键项
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
	Store StoreConfig `yaml:"store"`
}

type AppConfig struct {
	Reservation ReservationConfig `yaml:"reservation"`
	Reaper      ReaperConfig      `yaml:"reaper"`
	Cache       CacheConfig       `yaml:"cache"`
}

// ReservationConfig 承载预占相关的策略常量
type ReservationConfig struct {
	// MaxPerReservation 单笔预占的数量上限
	MaxPerReservation int `yaml:"max_per_reservation"`
	// SoftHoldTTL 购物车软预占的默认有效期
	SoftHoldTTL Duration `yaml:"soft_hold_ttl"`
	// AdmissionRule 是 CEL 表达式，准入校验在创建预占前执行
	AdmissionRule string `yaml:"admission_rule"`
	// RetryAttempts 乐观锁冲突时的重试次数上限
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryBackoff 每次重试之间的基础退避时长
	RetryBackoff Duration `yaml:"retry_backoff"`
}

type ReaperConfig struct {
	Interval  Duration `yaml:"interval"`
	BatchSize int      `yaml:"batch_size"`
}

type CacheConfig struct {
	// AvailabilityTTL 可用量快照在 Redis 中的过期时间
	AvailabilityTTL Duration `yaml:"availability_ttl"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Mysql     MysqlConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type MysqlConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	StockEventsTopic string   `yaml:"stock_events_topic"`
}

type NacosConfig struct {
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

type ZookeeperConfig struct {
	Addrs []string `yaml:"addrs"`
}

// StoreConfig 选择持久化实现，memory 仅用于本地运行和测试
type StoreConfig struct {
	Driver string `yaml:"driver"` // "mysql" | "memory"
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回当前生效的配置快照
func GetCurrentConfig() *Config {
	if c := currentConfig.Load(); c != nil {
		return c
	}
	c := defaultConfig()
	currentConfig.Store(c)
	return c
}

// Init 加载配置并初始化全局日志
// CONFIG_PATH 未设置时退回默认值，保证本地开发可以零配置启动
func Init(serviceName string) {
	logger.Init(serviceName)

	cfg := defaultConfig()
	path := getEnv("CONFIG_PATH", "configs/config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Logger().Warn().Str("path", path).Err(err).
			Msg("Config file not readable, falling back to defaults")
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Logger().Fatal().Str("path", path).Err(err).Msg("Invalid config file")
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Reservation: ReservationConfig{
				MaxPerReservation: 100,
				SoftHoldTTL:       Duration{30 * time.Minute},
				AdmissionRule:     "quantity > 0 && quantity <= max_per_reservation && reference_id != ''",
				RetryAttempts:     3,
				RetryBackoff:      Duration{20 * time.Millisecond},
			},
			Reaper: ReaperConfig{
				Interval:  Duration{5 * time.Minute},
				BatchSize: 200,
			},
			Cache: CacheConfig{
				AvailabilityTTL: Duration{5 * time.Second},
			},
		},
		Infra: InfraConfig{
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Mysql: MysqlConfig{
				Host: "localhost", Port: 3306,
				User: "root", Password: "root", Database: "stockd",
			},
			Redis: RedisConfig{Addr: "localhost:6379"},
			Kafka: KafkaConfig{
				Brokers:          []string{"localhost:9092"},
				StockEventsTopic: "stock-events-topic",
			},
			Nacos: NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			Zookeeper: ZookeeperConfig{
				Addrs: []string{"localhost:2181"},
			},
		},
		Store: StoreConfig{Driver: "mysql"},
	}
}

// applyEnvOverrides 允许容器环境在不改配置文件的情况下覆盖连接地址
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("MYSQL_HOST"); ok {
		cfg.Infra.Mysql.Host = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Infra.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = splitAddrs(v)
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.Addrs = v
	}
	if v, ok := os.LookupEnv("NACOS_NAMESPACE"); ok {
		cfg.Infra.Nacos.Namespace = v
	}
	if v, ok := os.LookupEnv("NACOS_GROUP"); ok {
		cfg.Infra.Nacos.Group = v
	}
	if v, ok := os.LookupEnv("ZOOKEEPER_ADDRS"); ok {
		cfg.Infra.Zookeeper.Addrs = splitAddrs(v)
	}
	if v, ok := os.LookupEnv("STORE_DRIVER"); ok {
		cfg.Store.Driver = v
	}
}

func splitAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
