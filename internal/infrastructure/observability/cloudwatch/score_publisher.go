package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

const (
	// CloudWatch limits
	maxDatumsPerRequest = 1000
	maxRetries          = 3
	initialBackoff      = 100 * time.Millisecond
)

// ScorePublisherConfig holds configuration for CloudWatch score publishing.
type ScorePublisherConfig struct {
	Namespace         string // CloudWatch namespace (e.g., "RiskAnalyzer/Scores")
	Region            string
	Endpoint          string // Optional endpoint override (for LocalStack)
	AccessKeyID       string
	SecretAccessKey   string
	BufferSize        int           // Buffer size before auto-flush
	FlushInterval     time.Duration // Automatic flush interval
	StorageResolution int32         // Storage resolution in seconds (1 or 60)
}

type scoreDatum struct {
	name      string
	value     float64
	scope     string
	category  string
	timestamp time.Time
}

// ScorePublisher ships overall and per-category risk scores to AWS
// CloudWatch. Datapoints are buffered and flushed in batches.
type ScorePublisher struct {
	client            *cloudwatch.Client
	namespace         string
	storageResolution int32

	buffer     []scoreDatum
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewScorePublisher creates a new CloudWatch score publisher.
func NewScorePublisher(ctx context.Context, cfg ScorePublisherConfig) (*ScorePublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := &ScorePublisher{
		client:            cloudwatch.NewFromConfig(awsCfg),
		namespace:         cfg.Namespace,
		storageResolution: cfg.StorageResolution,
		buffer:            make([]scoreDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushTicker:       time.NewTicker(cfg.FlushInterval),
		stopCh:            make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// PublishAssessment buffers the overall score and one datapoint per category.
func (p *ScorePublisher) PublishAssessment(ctx context.Context, assessment *entity.Assessment) error {
	if assessment == nil {
		return fmt.Errorf("assessment cannot be nil")
	}

	datums := make([]scoreDatum, 0, 1+len(assessment.Categories))
	datums = append(datums, scoreDatum{
		name:      "OverallRiskScore",
		value:     assessment.OverallScore,
		scope:     "overall",
		timestamp: assessment.GeneratedAt,
	})
	for _, cs := range assessment.Categories {
		datums = append(datums, scoreDatum{
			name:      "CategoryRiskScore",
			value:     cs.Score,
			scope:     "category",
			category:  cs.Category.String(),
			timestamp: assessment.GeneratedAt,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, d := range datums {
		p.buffer = append(p.buffer, d)

		if len(p.buffer) >= p.bufferSize {
			if err := p.flushBufferUnsafe(ctx); err != nil {
				return fmt.Errorf("failed to flush buffer: %w", err)
			}
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered datapoints.
func (p *ScorePublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining datapoints.
func (p *ScorePublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

// flushLoop runs in a background goroutine and flushes the buffer periodically.
func (p *ScorePublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			// Errors are retried on the next tick
			_ = p.Flush(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *ScorePublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	data := make([]types.MetricDatum, 0, len(p.buffer))
	for _, d := range p.buffer {
		data = append(data, p.convertToDatum(d))
	}

	for i := 0; i < len(data); i += maxDatumsPerRequest {
		end := i + maxDatumsPerRequest
		if end > len(data) {
			end = len(data)
		}

		if err := p.publishBatchWithRetry(ctx, data[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// publishBatchWithRetry publishes a batch of datapoints with exponential backoff retry.
func (p *ScorePublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		}

		_, err := p.client.PutMetricData(ctx, input)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// convertToDatum converts a buffered score to CloudWatch MetricDatum.
func (p *ScorePublisher) convertToDatum(d scoreDatum) types.MetricDatum {
	dimensions := []types.Dimension{
		{
			Name:  aws.String("Scope"),
			Value: aws.String(d.scope),
		},
	}
	if d.category != "" {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String("Category"),
			Value: aws.String(d.category),
		})
	}

	datum := types.MetricDatum{
		MetricName: aws.String(d.name),
		Value:      aws.Float64(d.value),
		Unit:       types.StandardUnitNone,
		Timestamp:  aws.Time(d.timestamp),
		Dimensions: dimensions,
	}

	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
