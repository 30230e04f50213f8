package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/segmentio/kafka-go"

	"imgpress/internal/blob"
	"imgpress/internal/compress"
	"imgpress/internal/models"
	"imgpress/internal/server"
	"imgpress/internal/storage"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer db.Close()

	blobs, err := blob.NewFSStore(cfg.StoragePath)
	if err != nil {
		log.Fatalf("failed to init blob store: %v", err)
	}

	engine := compress.NewEngine(cfg.Compression)
	orch := compress.NewOrchestrator(db, blobs, engine)
	validator := compress.NewValidator(cfg.Compression.AllowedTypes)

	// Kafka producer
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{cfg.KafkaBroker},
		Topic:   cfg.KafkaTopic,
	})

	// Start cache-warming consumer in background: every uploaded record
	// id gets compressed ahead of the first download.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		consumer := kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{cfg.KafkaBroker},
			Topic:   cfg.KafkaTopic,
			GroupID: "image-compressor-group",
		})
		defer consumer.Close()

		for {
			msg, err := consumer.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("error reading message: %v", err)
				continue
			}
			id, err := strconv.ParseInt(string(msg.Value), 10, 64)
			if err != nil {
				log.Printf("bad record id %q: %v", msg.Value, err)
				continue
			}
			if _, err := orch.GetCompressedBytes(ctx, id, 0); err != nil {
				log.Printf("error warming record %d: %v", id, err)
			}
		}
	}()

	srv := server.NewServer(cfg, db, blobs, orch, validator, producer)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	srv.Stop()
	producer.Close()
}
