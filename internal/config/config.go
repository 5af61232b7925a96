package config

import (
	"time"

	"token-indexer-sol/internal/mq"
	"token-indexer-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,default=console,options=console|json"`
	LogDir   string `json:"log_dir,default=logs"`
	Level    string `json:"level,default=info,options=debug|info|warn|error"`
	Compress bool   `json:"compress,optional"`
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// GrpcConfig Yellowstone gRPC 客户端配置
type GrpcConfig struct {
	Endpoint           string `json:"endpoint"`
	XToken             string `json:"x_token,optional"`
	Commitment         string `json:"commitment,default=confirmed,options=processed|confirmed|finalized"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,optional"`

	StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"`

	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=10"`
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=5"`

	InitialWindowSize     int `json:"initial_window_size,default=1073741824"`
	InitialConnWindowSize int `json:"initial_conn_window_size,default=1073741824"`

	MaxCallSendMsgSize int `json:"max_call_send_msg_size,default=67108864"`
	MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,default=1073741824"`

	ReconnectIntervalSec int `json:"reconnect_interval_sec,default=2"`
	ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`
	SendTimeoutSec       int `json:"send_timeout_sec,default=5"`
	BlockRecvTimeoutSec  int `json:"block_recv_timeout_sec,default=30"`
	MaxLatencyWarnMs     int `json:"max_latency_warn_ms,default=3000"`
}

// RpcConfig 用于 slot 复核的 Solana RPC
type RpcConfig struct {
	Endpoint         string `json:"endpoint"`
	CheckDelaySec    int    `json:"check_delay_sec,default=60"`
	CheckIntervalSec int    `json:"check_interval_sec,default=10"`
}

// KafkaProducerConfig Brokers 为空时变更只打印日志
type KafkaProducerConfig struct {
	Brokers          string `json:"brokers,optional"`
	BatchSize        int    `json:"batch_size,default=32768"`
	LingerMs         int    `json:"linger_ms,default=5"`
	DeliverTimeoutMs int    `json:"deliver_timeout_ms,default=3000"`

	Topics struct {
		Balance string `json:"balance,default=sol-token-balance"`
		Token   string `json:"token,default=sol-token-mint"`
	} `json:"topics,optional"`

	Partitions struct {
		Balance int `json:"balance,default=16"`
		Token   int `json:"token,default=4"`
	} `json:"partitions,optional"`
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicSpec{
			{Topic: c.Topics.Balance, Partitions: c.Partitions.Balance},
			{Topic: c.Topics.Token, Partitions: c.Partitions.Token},
		},
	}
}

func (c *KafkaProducerConfig) DeliverTimeout() time.Duration {
	return time.Duration(c.DeliverTimeoutMs) * time.Millisecond
}

type StoreConfig struct {
	Driver        string `json:"driver,default=memory,options=memory|redis|postgres"`
	JournalDriver string `json:"journal_driver,default=memory,options=memory|redis"`
	JournalTTLSec int    `json:"journal_ttl_sec,default=259200"`
}

type RedisConfig struct {
	Addr     string `json:"addr,optional"`
	Password string `json:"password,optional"`
	DB       int    `json:"db,optional"`
}

type PostgresConfig struct {
	DSN      string `json:"dsn,optional"`
	MaxConns int32  `json:"max_conns,default=16"`
}

// IndexerConfig 区块处理与 journal 维护
type IndexerConfig struct {
	Workers          int    `json:"workers,optional"` // 0 表示 CPU 核数
	BlockChanSize    int    `json:"block_chan_size,default=200"`
	MaxRetries       uint64 `json:"max_retries,default=10"`
	RetryIntervalMs  int    `json:"retry_interval_ms,default=200"`
	RetainSlots      uint64 `json:"retain_slots,default=3000"`
	PruneEverySlot   uint64 `json:"prune_every_slot,default=100"`
	FlushIntervalSec int    `json:"flush_interval_sec,default=2"`
	GCIntervalSec    int    `json:"gc_interval_sec,default=600"`
}

// Config 索引器主配置
type Config struct {
	LogConf           LogConfig           `json:"logger"`
	Grpc              GrpcConfig          `json:"grpc"`
	Rpc               RpcConfig           `json:"rpc"`
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer,optional"`
	Store             StoreConfig         `json:"store"`
	Redis             RedisConfig         `json:"redis,optional"`
	Postgres          PostgresConfig      `json:"postgres,optional"`
	Indexer           IndexerConfig       `json:"indexer"`
}
