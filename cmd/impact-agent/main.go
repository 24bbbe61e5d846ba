// Command impact-agent runs one batch of the photo-to-proposal
// pipeline and exits. Configuration comes from the environment.
package main

import (
	"context"
	"os"

	"github.com/apex/log"

	"impact-agent/config"
	"impact-agent/pipeline"
)

func main() {
	cfg := config.Load()

	service, cleanup, err := pipeline.Build(cfg)
	if err != nil {
		log.Errorf("Failed to initialize pipeline: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()

	// Per-file failures are reported in the batch summary; only a batch
	// that could not run at all is fatal.
	if _, err := service.ProcessPhotos(ctx); err != nil {
		log.Errorf("Photo batch failed: %v", err)
		os.Exit(1)
	}
	if _, err := service.ProcessAnalyses(ctx); err != nil {
		log.Errorf("Analysis batch failed: %v", err)
		os.Exit(1)
	}
}
