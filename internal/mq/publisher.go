package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"

	"token-indexer-sol/internal/logic/reconciler"
	"token-indexer-sol/internal/utils"
	"token-indexer-sol/pkg/logger"
)

// Converter 将实体变更转换为消息 key 与 protobuf 消息体
type Converter[E any, T any] func(change reconciler.Change[E, T]) (key string, msg proto.Message, err error)

type ChangePublisherOption struct {
	Topic          string
	Partitions     int
	EventType      uint32
	DeliverTimeout time.Duration
}

// ChangePublisher 把实体变更写入 Kafka 并同步等待回执。
// 同一实体的消息落在同一分区，保证下游按变更顺序消费。
type ChangePublisher[E any, T any] struct {
	producer Producer
	opt      ChangePublisherOption
	convert  Converter[E, T]
}

func NewChangePublisher[E any, T any](producer Producer, opt ChangePublisherOption, convert Converter[E, T]) *ChangePublisher[E, T] {
	if opt.Partitions <= 0 {
		opt.Partitions = 1
	}
	if opt.DeliverTimeout <= 0 {
		opt.DeliverTimeout = 3 * time.Second
	}
	return &ChangePublisher[E, T]{producer: producer, opt: opt, convert: convert}
}

func (p *ChangePublisher[E, T]) Publish(ctx context.Context, change reconciler.Change[E, T]) error {
	job, err := p.buildJob(change)
	if err != nil {
		return err
	}

	_, failed := SendKafkaJobs(ctx, p.producer, []*KafkaJob{job}, p.opt.DeliverTimeout)
	if len(failed) > 0 {
		return fmt.Errorf("publish %s key=%s: %w", p.opt.Topic, job.Key, failed[0].Err)
	}
	return nil
}

func (p *ChangePublisher[E, T]) buildJob(change reconciler.Change[E, T]) (*KafkaJob, error) {
	key, msg, err := p.convert(change)
	if err != nil {
		return nil, fmt.Errorf("convert change: %w", err)
	}
	value, err := utils.EncodeEvent(p.opt.EventType, msg)
	if err != nil {
		return nil, err
	}
	return &KafkaJob{
		Topic:     p.opt.Topic,
		Partition: int32(utils.PartitionHashString(key, uint32(p.opt.Partitions))),
		Key:       []byte(key),
		Value:     value,
	}, nil
}

// LogPublisher 只打印变更，用于 dry-run
type LogPublisher[E any, T any] struct {
	Name    string
	Convert Converter[E, T]
}

func (p LogPublisher[E, T]) Publish(_ context.Context, change reconciler.Change[E, T]) error {
	if p.Convert == nil {
		return errors.New("log publisher: nil converter")
	}
	key, msg, err := p.Convert(change)
	if err != nil {
		return err
	}
	logger.Infof("[%s] change key=%s reverted=%v causes=%d msg=%v", p.Name, key, change.Reverted, len(change.Causes), msg)
	return nil
}
