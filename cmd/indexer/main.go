package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"

	"token-indexer-sol/internal/config"
	"token-indexer-sol/internal/logic/grpc"
	"token-indexer-sol/internal/logic/progress"
	"token-indexer-sol/internal/svc"
	"token-indexer-sol/pkg/logger"
)

var configFile = flag.String("f", "etc/indexer.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		logx.Must(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	logx.Must(err)
	defer serviceContext.Close()

	blockChan := make(chan *pb.SubscribeUpdateBlock, c.Indexer.BlockChanSize)
	reorgChan := make(chan []uint64, 16)

	checker := grpc.NewSlotChecker(
		grpc.NewRpcBlockLister(c.Rpc.Endpoint),
		serviceContext.Progress,
		reorgChan,
		time.Duration(c.Rpc.CheckDelaySec)*time.Second,
		time.Duration(c.Rpc.CheckIntervalSec)*time.Second,
	)
	processor := grpc.NewBlockProcessor(serviceContext.Indexer, checker, blockChan, reorgChan, grpc.BlockProcessorOption{
		MaxRetries:     c.Indexer.MaxRetries,
		RetryInterval:  time.Duration(c.Indexer.RetryIntervalMs) * time.Millisecond,
		RetainSlots:    c.Indexer.RetainSlots,
		PruneEverySlot: c.Indexer.PruneEverySlot,
	})
	stream, err := grpc.NewGrpcStreamManager(c.Grpc, blockChan)
	logx.Must(err)

	sg := zerosvc.NewServiceGroup()
	sg.Add(progress.NewLoopService(
		serviceContext.Progress,
		time.Duration(c.Indexer.FlushIntervalSec)*time.Second,
		time.Duration(c.Indexer.GCIntervalSec)*time.Second,
		c.Indexer.RetainSlots,
	))
	sg.Add(checker)
	sg.Add(processor)
	sg.Add(stream)

	logx.Infof("Starting token indexer, grpc=%s", c.Grpc.Endpoint)
	go sg.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-processor.Done():
	}

	logx.Info("Shutting down services...")
	sg.Stop()
	if err := processor.Err(); err != nil {
		logx.Errorf("block processor stopped with error: %v", err)
	}
}
