package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"token-indexer-sol/internal/config"
	"token-indexer-sol/internal/consts"
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/indexer"
	"token-indexer-sol/internal/logic/progress"
	"token-indexer-sol/internal/logic/subscriber"
	"token-indexer-sol/internal/mq"
	"token-indexer-sol/internal/store/memory"
	"token-indexer-sol/internal/store/pgstore"
	"token-indexer-sol/internal/store/redisstore"
	"token-indexer-sol/pkg/logger"
)

// ServiceContext 索引服务依赖的全部资源
type ServiceContext struct {
	Config   config.Config
	Indexer  *indexer.Indexer
	Progress *progress.Manager
	Producer *kafka.Producer
	Redis    *redis.Client
	Postgres *pgxpool.Pool
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{Config: c}
	ok := false
	defer func() {
		if !ok {
			sc.Close()
		}
	}()

	if err := sc.initClients(); err != nil {
		return nil, err
	}

	journal, err := sc.newJournal()
	if err != nil {
		return nil, err
	}
	var dbProgress *progress.DBProgressStore
	if sc.Postgres != nil {
		dbProgress = progress.NewDBProgressStore(sc.Postgres)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if last, found, err := dbProgress.LatestSlot(ctx); err != nil {
			logger.Warnf("[svc] 读取历史进度失败: %v", err)
		} else if found {
			logger.Infof("[svc] 上次已处理到 slot %d", last)
		}
		cancel()
	}
	sc.Progress = progress.NewManager(journal, dbProgress)

	balanceStore, tokenStore, err := sc.newStores()
	if err != nil {
		return nil, err
	}
	balancePub, tokenPub, err := sc.newPublishers()
	if err != nil {
		return nil, err
	}

	workers := c.Indexer.Workers
	if workers <= 0 {
		workers = consts.CpuCount
	}
	sc.Indexer = indexer.New(
		subscriber.DefaultRegistry(),
		indexer.NewBalanceReconciler(balanceStore, balancePub),
		indexer.NewTokenReconciler(tokenStore, tokenPub),
		sc.Progress,
		workers,
	)

	ok = true
	logger.Infof("[svc] 服务上下文初始化完成: store=%s journal=%s workers=%d kafka=%v",
		c.Store.Driver, c.Store.JournalDriver, workers, sc.Producer != nil)
	return sc, nil
}

func (sc *ServiceContext) needRedis() bool {
	return sc.Config.Store.Driver == "redis" || sc.Config.Store.JournalDriver == "redis"
}

func (sc *ServiceContext) initClients() error {
	c := sc.Config
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sc.needRedis() {
		sc.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		if err := sc.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", c.Redis.Addr, err)
		}
	}

	if c.Postgres.DSN != "" {
		poolConf, err := pgxpool.ParseConfig(c.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("parse postgres dsn: %w", err)
		}
		poolConf.MaxConns = c.Postgres.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, poolConf)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		sc.Postgres = pool
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping: %w", err)
		}
	} else if c.Store.Driver == "postgres" {
		return fmt.Errorf("store driver postgres requires postgres.dsn")
	}

	if c.KafkaProducerConf.Brokers != "" {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			return fmt.Errorf("kafka producer 初始化失败: %w", err)
		}
		sc.Producer = producer
	}
	return nil
}

func (sc *ServiceContext) newJournal() (progress.Journal, error) {
	switch sc.Config.Store.JournalDriver {
	case "redis":
		ttl := time.Duration(sc.Config.Store.JournalTTLSec) * time.Second
		return progress.NewRedisJournal(sc.Redis, ttl), nil
	case "memory", "":
		return progress.NewMemoryJournal(), nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", sc.Config.Store.JournalDriver)
	}
}

func (sc *ServiceContext) newStores() (indexer.BalanceStore, indexer.TokenStore, error) {
	switch sc.Config.Store.Driver {
	case "redis":
		return redisstore.New[domain.BalanceID, domain.Balance](sc.Redis, "balance"),
			redisstore.New[domain.TokenID, domain.Token](sc.Redis, "token"), nil
	case "postgres":
		return pgstore.New[domain.BalanceID, domain.Balance](sc.Postgres, "balance"),
			pgstore.New[domain.TokenID, domain.Token](sc.Postgres, "token"), nil
	case "memory", "":
		return memory.NewStore[domain.BalanceID, domain.Balance](),
			memory.NewStore[domain.TokenID, domain.Token](), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", sc.Config.Store.Driver)
	}
}

func (sc *ServiceContext) newPublishers() (indexer.BalancePublisher, indexer.TokenPublisher, error) {
	if sc.Producer == nil {
		return mq.LogPublisher[domain.BalanceEvent, domain.Balance]{Name: "balance", Convert: mq.BalanceChangeMessage},
			mq.LogPublisher[domain.TokenEvent, domain.Token]{Name: "token", Convert: mq.TokenChangeMessage}, nil
	}

	kc := sc.Config.KafkaProducerConf
	balancePub := mq.NewChangePublisher[domain.BalanceEvent, domain.Balance](sc.Producer, mq.ChangePublisherOption{
		Topic:          kc.Topics.Balance,
		Partitions:     kc.Partitions.Balance,
		EventType:      consts.EventTypeBalanceChange,
		DeliverTimeout: kc.DeliverTimeout(),
	}, mq.BalanceChangeMessage)
	tokenPub := mq.NewChangePublisher[domain.TokenEvent, domain.Token](sc.Producer, mq.ChangePublisherOption{
		Topic:          kc.Topics.Token,
		Partitions:     kc.Partitions.Token,
		EventType:      consts.EventTypeTokenChange,
		DeliverTimeout: kc.DeliverTimeout(),
	}, mq.TokenChangeMessage)
	return balancePub, tokenPub, nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		sc.Producer.Flush(5000)
		sc.Producer.Close()
	}
	if sc.Redis != nil {
		_ = sc.Redis.Close()
	}
	if sc.Postgres != nil {
		sc.Postgres.Close()
	}
}
