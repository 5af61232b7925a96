package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"token-indexer-sol/internal/config"
	"token-indexer-sol/internal/consts"
	"token-indexer-sol/pkg/logger"
)

// GrpcStreamManager 维护 Yellowstone 区块订阅，断流或超时自动重连
type GrpcStreamManager struct {
	mu                sync.Mutex
	conn              *grpc.ClientConn
	client            pb.GeyserClient
	stream            pb.Geyser_SubscribeClient
	stopped           bool
	reconnectAttempts int
	conf              config.GrpcConfig
	commitment        pb.CommitmentLevel
	blockChan         chan<- *pb.SubscribeUpdateBlock
	connCtx           context.Context
	connCancel        context.CancelFunc
}

func NewGrpcStreamManager(conf config.GrpcConfig, blockChan chan<- *pb.SubscribeUpdateBlock) (*GrpcStreamManager, error) {
	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	creds := credentials.NewTLS(&tls.Config{InsecureSkipVerify: conf.InsecureSkipVerify})
	conn, err := grpc.DialContext(
		dialCtx,
		conf.Endpoint,
		grpc.WithTransportCredentials(creds),
		grpc.WithInitialWindowSize(int32(conf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(conf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(conf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(conf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(conf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(conf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", conf.Endpoint, err)
	}

	return &GrpcStreamManager{
		conn:       conn,
		client:     pb.NewGeyserClient(conn),
		conf:       conf,
		commitment: parseCommitment(conf.Commitment),
		blockChan:  blockChan,
	}, nil
}

func parseCommitment(s string) pb.CommitmentLevel {
	switch s {
	case "processed":
		return pb.CommitmentLevel_PROCESSED
	case "finalized":
		return pb.CommitmentLevel_FINALIZED
	default:
		return pb.CommitmentLevel_CONFIRMED
	}
}

func (m *GrpcStreamManager) Start() {
	m.mustConnect()
}

func (m *GrpcStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// mustConnect 循环直到连接成功或被停止
func (m *GrpcStreamManager) mustConnect() {
	interval := time.Duration(m.conf.ReconnectIntervalSec) * time.Second
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if m.reconnectAttempts > 3 {
			time.Sleep(interval * 2)
		} else if m.reconnectAttempts > 0 {
			time.Sleep(interval)
		}
		m.reconnectAttempts++
		logger.Infof("[grpc] connecting %s, attempt %d", m.conf.Endpoint, m.reconnectAttempts)
		err := m.connect()
		if err == nil {
			return
		}
		logger.Warnf("[grpc] connect failed: %v, will retry", err)
	}
}

// buildSubscribeRequest 只订阅涉及 Token / Token-2022 / Metadata 程序的区块
func buildSubscribeRequest(commitment pb.CommitmentLevel) *pb.SubscribeRequest {
	blocks := map[string]*pb.SubscribeRequestFilterBlocks{
		"blocks": {
			AccountInclude:      consts.GrpcAccountInclude,
			IncludeTransactions: boolPtr(true),
			IncludeAccounts:     boolPtr(false),
			IncludeEntries:      boolPtr(false),
		},
	}
	return &pb.SubscribeRequest{
		Blocks:     blocks,
		Commitment: &commitment,
	}
}

func (m *GrpcStreamManager) connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return errors.New("manager is stopped")
	}

	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(m.connCtx, metadata.New(map[string]string{"x-token": m.conf.XToken}))
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	sendTimeout := time.Duration(m.conf.SendTimeoutSec) * time.Second
	if err := sendWithTimeout(m.connCtx, stream.Send, buildSubscribeRequest(m.commitment), sendTimeout); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.stream = stream
	m.reconnectAttempts = 0
	logger.Infof("[grpc] connection established, commitment=%s", m.commitment)

	go m.pingLoop(m.connCtx, stream)
	go m.blockRecvLoop(m.connCtx, stream)
	return nil
}

func (m *GrpcStreamManager) blockRecvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	last := time.Now()
	blockTimeout := time.Duration(m.conf.BlockRecvTimeoutSec) * time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		update, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Warnf("[grpc] stream closed by server (EOF), will reconnect")
				m.reconnect()
				return
			}
			if ctx.Err() != nil {
				return
			}
			logger.Warnf("[grpc] stream error: %v", err)
			if m.reconnectIfBlockTimeout(last, blockTimeout) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Block); ok {
			now := time.Now()
			if u.Block.BlockTime != nil {
				latency := now.UnixMilli() - u.Block.BlockTime.Timestamp*1000
				if m.conf.MaxLatencyWarnMs > 0 && latency > int64(m.conf.MaxLatencyWarnMs) {
					logger.Warnf("[grpc] slot %d latency to blockTime %d ms", u.Block.Slot, latency)
				}
			}
			// 区块不可丢弃，通道满时阻塞直到处理器跟上
			select {
			case m.blockChan <- u.Block:
			case <-ctx.Done():
				return
			}
			last = now
		}

		if m.reconnectIfBlockTimeout(last, blockTimeout) {
			return
		}
	}
}

func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

func (m *GrpcStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	interval := time.Duration(m.conf.StreamPingIntervalSec) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var id int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			req := &pb.SubscribeRequest{Ping: &pb.SubscribeRequestPing{Id: id}}
			if err := sendWithTimeout(ctx, stream.Send, req, time.Duration(m.conf.SendTimeoutSec)*time.Second); err != nil {
				// 只记录，是否重连由接收超时决定
				logger.Warnf("[grpc] ping failed: %v", err)
			}
		}
	}
}

func (m *GrpcStreamManager) reconnectIfBlockTimeout(last time.Time, timeout time.Duration) bool {
	if timeout > 0 && time.Since(last) > timeout {
		logger.Warnf("[grpc] no block for %v, reconnecting", timeout)
		m.reconnect()
		return true
	}
	return false
}

func (m *GrpcStreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	go m.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
