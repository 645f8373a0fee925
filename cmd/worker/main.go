package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/selmo/Tagdstiller-sub001/internal/config"
	"github.com/selmo/Tagdstiller-sub001/internal/queue"
	"github.com/selmo/Tagdstiller-sub001/internal/storage"
	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger/console"
	"github.com/selmo/Tagdstiller-sub001/pkg/pipeline"

	_ "github.com/selmo/Tagdstiller-sub001/pkg/ai/ollama"
	_ "github.com/selmo/Tagdstiller-sub001/pkg/ai/openai"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	// LLM gateway; nil when disabled, the pipeline then runs on the
	// deterministic extractors alone.
	gateway, err := cfg.NewGateway()
	if err != nil {
		logger.Fatal("Could not create LLM gateway", "err", err)
	}

	store, err := artifact.NewStore(cfg.ArtifactRoot)
	if err != nil {
		logger.Fatal("Failed to open artifact store", "err", err)
	}

	sources, err := storage.BuildSources(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to build document sources", "err", err)
	}

	pipe := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Gateway: gateway,
	})

	// Init rabbitmq
	conn, err := queue.Init(cfg.Queue.URL())
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.AnalyzeQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// Re-enqueue runs an earlier worker left pending or running.
	if err := queue.RecoverStaleRuns(ch, store); err != nil {
		logger.Error("Stale run recovery failed", "err", err)
	}

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.AnalyzeQueue:
					processingErr = queue.ProcessAnalyzeMessage(ctx, pipe, store, sources, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				if gateway.Enabled() {
					metrics := gateway.Metrics()
					aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
					aiHours := int(aiDuration.Hours())
					aiMinutes := int(aiDuration.Minutes()) % 60
					aiSeconds := int(aiDuration.Seconds()) % 60
					logger.Info(
						"AI Metrics",
						"requests", metrics.Requests,
						"input_tokens", metrics.InputTokens,
						"output_tokens", metrics.OutputTokens,
						"total_tokens", metrics.TotalTokens,
						"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
					)
					gateway.ResetMetrics()
				}

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// Exhausted messages go to the dead-letter queue
	if retries >= queue.MaxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
