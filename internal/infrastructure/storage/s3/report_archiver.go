package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

// Config настраивает подключение к S3-совместимому хранилищу
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// ReportArchiver складывает JSON-отчеты assessments в object storage.
// Ключи вида <prefix>/2026/01/02/assessment-150405.json, чтобы отчеты
// листались по дате.
type ReportArchiver struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewReportArchiver создает archiver и проверяет обязательные параметры
func NewReportArchiver(ctx context.Context, cfg Config) (*ReportArchiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "risk-reports"
	}

	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = &cfg.Endpoint
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return &ReportArchiver{
		client:    client,
		bucket:    strings.TrimSpace(cfg.Bucket),
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

type reportDocument struct {
	GeneratedAt  string              `json:"generated_at"`
	OverallScore float64             `json:"overall_score"`
	OverallLevel string              `json:"overall_level"`
	Categories   []reportCategory    `json:"categories"`
	Alerts       []reportAlert       `json:"alerts"`
	Similarity   map[string]float64  `json:"similarity"`
	Indicators   []reportIndicator   `json:"indicators"`
}

type reportCategory struct {
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
	Level        string  `json:"level"`
	WarningCount int     `json:"warning_count"`
}

type reportAlert struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type reportIndicator struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	Score     float64 `json:"score"`
	IsWarning bool    `json:"is_warning"`
}

// ArchiveAssessment записывает assessment как JSON-объект и возвращает ключ
func (a *ReportArchiver) ArchiveAssessment(ctx context.Context, assessment *entity.Assessment) (string, error) {
	if assessment == nil {
		return "", fmt.Errorf("assessment is required")
	}

	doc := reportDocument{
		GeneratedAt:  assessment.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		OverallScore: assessment.OverallScore,
		OverallLevel: assessment.OverallLevel.String(),
		Categories:   make([]reportCategory, 0, len(assessment.Categories)),
		Alerts:       make([]reportAlert, 0, len(assessment.Alerts)),
		Similarity:   make(map[string]float64, len(assessment.Similarity)),
		Indicators:   make([]reportIndicator, 0, len(assessment.Indicators)),
	}

	for _, cs := range assessment.Categories {
		doc.Categories = append(doc.Categories, reportCategory{
			Category:     cs.Category.String(),
			Score:        cs.Score,
			Level:        cs.Level.String(),
			WarningCount: cs.WarningCount,
		})
	}
	for _, alert := range assessment.Alerts {
		doc.Alerts = append(doc.Alerts, reportAlert{
			ID:       alert.ID,
			Severity: string(alert.Severity),
			Message:  alert.Message,
		})
	}
	for _, pm := range assessment.Similarity {
		doc.Similarity[pm.Pattern] = pm.Similarity
	}
	for _, ind := range assessment.Indicators {
		doc.Indicators = append(doc.Indicators, reportIndicator{
			ID:        ind.ID(),
			Value:     ind.Value(),
			Score:     ind.Score(),
			IsWarning: ind.IsWarning(),
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	ts := assessment.GeneratedAt.UTC()
	key := fmt.Sprintf("%s/%s/assessment-%s.json",
		a.keyPrefix,
		ts.Format("2006/01/02"),
		ts.Format("150405"),
	)

	contentType := "application/json"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object failed: %w", err)
	}

	return key, nil
}
