package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/NanoOS/internal/config"
	"github.com/GriffinCanCode/NanoOS/internal/eventloop"
	"github.com/GriffinCanCode/NanoOS/internal/logging"
	"github.com/GriffinCanCode/NanoOS/internal/pipe"
	"github.com/GriffinCanCode/NanoOS/internal/thread"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// pipedemo wires the whole pipe stack together: two pipes welded into a
// chain, a producer thread whose stdio is a pipe side, and an event loop
// pumping bytes at the outer end. Prometheus metrics are exposed over
// HTTP while it runs.
func main() {
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *logging.Logger
	if *dev || cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
	}
	defer logger.Sync() //nolint:errcheck
	pipe.UseLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	// two pipes, welded into one chain: producer -> [p]=[q] -> consumer
	p := pipe.Alloc(cfg.Pipe.Capacity, cfg.Pipe.TriggerLevel)
	q := pipe.Alloc(cfg.Pipe.Capacity, cfg.Pipe.TriggerLevel)
	pipe.Weld(p.BobSide, q.AliceSide)
	logger.Info("pipe chain ready",
		zap.String("producer side", p.AliceSide.ID().String()),
		zap.String("consumer side", q.BobSide.ID().String()),
	)

	// the producer talks plain stdio; the pipe is invisible to it
	producer := thread.New()
	p.AliceSide.InstallAsStdio(producer)
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				producer.Write([]byte("tick\n")) //nolint:errcheck
			}
		}
	}()

	// the consumer drains the chain from an event loop subscription
	loop := eventloop.New(logger, cfg.Loop.QueueDepth)
	readable, _ := q.BobSide.Links()
	loop.Subscribe(readable, eventloop.ModeLevel, func() {
		buf := make([]byte, cfg.Pipe.Capacity)
		n := q.BobSide.Receive(buf, 0)
		if n > 0 {
			logger.Info("chain delivered",
				zap.Int("bytes", n),
				zap.ByteString("payload", buf[:n]),
			)
		}
	})
	go loop.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	cancel()
	loop.Stop()
	loop.Unsubscribe(readable)

	producer.SetStdoutCallback(nil)
	producer.SetStdinCallback(nil)
	// let an in-flight tick clear the detached callbacks
	time.Sleep(100 * time.Millisecond)
	p.AliceSide.Free()
	q.BobSide.Free()
	pipe.Unweld(p.BobSide)
	p.BobSide.Free()
	q.AliceSide.Free()
}

// serveMetrics exposes the Prometheus registry over HTTP.
func serveMetrics(addr string, logger *logging.Logger) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("metrics server", zap.Error(err))
	}
}
