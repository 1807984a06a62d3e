package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"
)

type snapshotUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Backups takes scheduled encrypted snapshots of the record database
// and uploads them to S3.
type Backups struct {
	cfg      BackupConfig
	store    *Store
	sealer   *Sealer
	uploader snapshotUploader
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewBackups(ctx context.Context, cfg BackupConfig, store *Store, logger *slog.Logger) (*Backups, error) {
	sealer, err := NewSealer(cfg.AgeRecipient)
	if err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Backups{
		cfg:      cfg,
		store:    store,
		sealer:   sealer,
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
		logger:   logger,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg BackupConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	// Explicit keys win; otherwise the default chain (env, shared
	// config, instance role) applies.
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// Start schedules the backup job.
func (b *Backups) Start() error {
	b.cron = cron.New()
	if _, err := b.cron.AddFunc(b.cfg.Schedule, b.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}
	b.cron.Start()
	b.logger.Info("backups scheduled", "schedule", b.cfg.Schedule, "bucket", b.cfg.S3Bucket)
	return nil
}

// Stop cancels the schedule. A backup already running finishes.
func (b *Backups) Stop() {
	if b.cron != nil {
		b.cron.Stop()
	}
}

func (b *Backups) runScheduled() {
	if err := b.RunNow(context.Background()); err != nil {
		b.logger.Error("backup failed", "error", err)
	}
}

// RunNow snapshots the database, seals it, and uploads the sealed copy.
func (b *Backups) RunNow(ctx context.Context) error {
	tmpDir, err := os.MkdirTemp("", "ftserver-backup-")
	if err != nil {
		return fmt.Errorf("failed to create backup workspace: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snap := filepath.Join(tmpDir, "records.db")
	if err := b.store.Snapshot(ctx, snap); err != nil {
		return err
	}

	sealed := snap + ".age"
	if err := b.sealFile(snap, sealed); err != nil {
		return err
	}

	f, err := os.Open(sealed)
	if err != nil {
		return fmt.Errorf("failed to open sealed snapshot: %w", err)
	}
	defer f.Close()

	key := path.Join(b.cfg.S3Prefix, time.Now().UTC().Format("2006-01-02T15-04-05Z")+".db.age")
	if _, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.S3Bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	b.logger.Info("backup uploaded", "bucket", b.cfg.S3Bucket, "key", key)
	return nil
}

func (b *Backups) sealFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create sealed snapshot: %w", err)
	}
	if err := b.sealer.Seal(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish sealed snapshot: %w", err)
	}
	return nil
}
