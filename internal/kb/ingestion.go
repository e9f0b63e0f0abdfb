package kb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/google/uuid"
)

// Ingestion polling defaults.
const (
	DefaultSyncWait     = 10 * time.Minute
	DefaultSyncInterval = 30 * time.Second
)

// IngestionAPIClient is the subset of the Bedrock agent client used to run
// ingestion jobs.
type IngestionAPIClient interface {
	StartIngestionJob(ctx context.Context, params *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
	GetIngestionJob(ctx context.Context, params *bedrockagent.GetIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetIngestionJobOutput, error)
}

// JobStatus is the state of one ingestion job.
type JobStatus struct {
	JobID            string   `json:"job_id"`
	Status           string   `json:"status"`
	DocumentsScanned int64    `json:"documents_scanned"`
	DocumentsIndexed int64    `json:"documents_indexed"`
	DocumentsFailed  int64    `json:"documents_failed"`
	FailureReasons   []string `json:"failure_reasons,omitempty"`
}

// Complete reports whether the job finished successfully.
func (s JobStatus) Complete() bool {
	return s.Status == string(types.IngestionJobStatusComplete)
}

// Failed reports whether the job finished unsuccessfully.
func (s JobStatus) Failed() bool {
	return s.Status == string(types.IngestionJobStatusFailed)
}

// Ingestion starts knowledge base data-source sync jobs and polls them to
// completion.
type Ingestion struct {
	client       IngestionAPIClient
	kbID         string
	dataSourceID string
	wait         time.Duration
	interval     time.Duration
	logger       *slog.Logger
}

// IngestionConfig configures an Ingestion helper.
type IngestionConfig struct {
	Client       IngestionAPIClient
	KBID         string
	DataSourceID string
	Wait         time.Duration
	Interval     time.Duration
	Logger       *slog.Logger
}

// NewIngestion creates an ingestion helper for one data source.
func NewIngestion(cfg IngestionConfig) (*Ingestion, error) {
	if cfg.KBID == "" {
		return nil, fmt.Errorf("knowledge base ID is not configured")
	}
	if cfg.DataSourceID == "" {
		return nil, fmt.Errorf("data source ID is not configured")
	}
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultSyncWait
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Ingestion{
		client:       cfg.Client,
		kbID:         cfg.KBID,
		dataSourceID: cfg.DataSourceID,
		wait:         cfg.Wait,
		interval:     cfg.Interval,
		logger:       cfg.Logger,
	}, nil
}

// StartSync starts an ingestion job for the data source and returns its ID.
func (i *Ingestion) StartSync(ctx context.Context) (string, error) {
	out, err := i.client.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(i.kbID),
		DataSourceId:    aws.String(i.dataSourceID),
		ClientToken:     aws.String(uuid.NewString()),
		Description:     aws.String("lonb document sync"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start ingestion job: %w", err)
	}
	jobID := aws.ToString(out.IngestionJob.IngestionJobId)
	i.logger.Info("ingestion job started", "job_id", jobID, "kb_id", i.kbID)
	return jobID, nil
}

// Status returns the current state of an ingestion job.
func (i *Ingestion) Status(ctx context.Context, jobID string) (JobStatus, error) {
	out, err := i.client.GetIngestionJob(ctx, &bedrockagent.GetIngestionJobInput{
		KnowledgeBaseId: aws.String(i.kbID),
		DataSourceId:    aws.String(i.dataSourceID),
		IngestionJobId:  aws.String(jobID),
	})
	if err != nil {
		return JobStatus{}, fmt.Errorf("failed to get ingestion job %s: %w", jobID, err)
	}

	job := out.IngestionJob
	status := JobStatus{
		JobID:          jobID,
		Status:         string(job.Status),
		FailureReasons: job.FailureReasons,
	}
	if stats := job.Statistics; stats != nil {
		status.DocumentsScanned = stats.NumberOfDocumentsScanned
		status.DocumentsIndexed = stats.NumberOfNewDocumentsIndexed
		status.DocumentsFailed = stats.NumberOfDocumentsFailed
	}
	return status, nil
}

// WaitForCompletion polls the job at the configured interval until it
// completes, fails, or the overall wait budget is exhausted.
func (i *Ingestion) WaitForCompletion(ctx context.Context, jobID string) error {
	attempts := uint(i.wait / i.interval)
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			status, err := i.Status(ctx, jobID)
			if err != nil {
				return err
			}
			switch {
			case status.Complete():
				i.logger.Info("ingestion job complete",
					"job_id", jobID,
					"documents_indexed", status.DocumentsIndexed,
					"documents_failed", status.DocumentsFailed)
				return nil
			case status.Failed():
				return retry.Unrecoverable(fmt.Errorf("ingestion job %s failed: %v", jobID, status.FailureReasons))
			default:
				i.logger.Debug("ingestion job in progress", "job_id", jobID, "status", status.Status)
				return fmt.Errorf("ingestion job %s still %s", jobID, status.Status)
			}
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(i.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
