package pipeline

import (
	"fmt"

	"github.com/apex/log"

	"impact-agent/chain"
	"impact-agent/config"
	"impact-agent/ipfs"
	"impact-agent/ledger"
	"impact-agent/media"
	"impact-agent/providers/geo"
	"impact-agent/providers/news"
	"impact-agent/providers/vision"
	"impact-agent/providers/weather"
	"impact-agent/rabbitmq"
	"impact-agent/tagline"
)

// Build wires the full production service from configuration. The
// returned cleanup closes whatever connections were opened.
func Build(cfg *config.Config) (*Service, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	visionClient := vision.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.RequestTimeout)

	submitter, err := chain.NewSubmitter(cfg.ChainRPCURL, cfg.PrivateKey, cfg.ContractAddress, cfg.SubmissionProfile)
	if err != nil {
		return nil, nil, fmt.Errorf("init submitter: %w", err)
	}

	led, closeLedger, err := buildLedger(cfg)
	if err != nil {
		return nil, nil, err
	}

	var broker *rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		broker, err = rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey)
		if err != nil {
			// The broker is optional; run without it.
			log.Warnf("RabbitMQ unavailable, continuing without publishing: %v", err)
			broker = nil
		}
	}

	deps := Deps{
		Extractor: media.NewExtractor(media.Options{
			MaxBytes:         cfg.MaxImageBytes,
			StartQuality:     cfg.StartQuality,
			MinQuality:       cfg.MinQuality,
			QualityStep:      cfg.QualityStep,
			MaxDimension:     cfg.MaxDimension,
			MaxHeicDimension: cfg.MaxHeicDimension,
		}),
		Vision:    visionClient,
		Geocoder:  geo.NewClient(cfg.RequestTimeout),
		Weather:   weather.NewClient(cfg.RequestTimeout),
		News:      news.NewClient(cfg.RequestTimeout, cfg.NewsDaysWindow, cfg.NewsMaxRecords),
		Publisher: ipfs.NewPublisher(cfg.PinataJWT, cfg.PinataBaseURL, cfg.GatewayURL),
		Submitter: submitter,
		Prompter:  visionClient,
		Ledger:    led,
		Tagline:   tagline.NewRuleBased(),
		Broker:    broker,
	}

	cleanup := func() {
		if broker != nil {
			broker.Close()
		}
		if closeLedger != nil {
			closeLedger()
		}
	}

	return NewService(cfg, deps), cleanup, nil
}

func buildLedger(cfg *config.Config) (ledger.Ledger, func(), error) {
	if cfg.LedgerBackend == "mysql" {
		db, err := ledger.OpenMySQL(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("init mysql ledger: %w", err)
		}
		l := ledger.NewMySQLLedger(db, cfg.SubmissionProfile)
		if err := l.CreateTable(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return l, func() { db.Close() }, nil
	}
	return ledger.NewFileLedger(cfg.ActiveLedgerPath()), nil, nil
}
