package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"campusbilling_go/database"
	"campusbilling_go/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const auditQueueKey = "audit:queue"

// AuditArchiveService flushes Redis-cached audit entries into the database
// and periodically compresses old entries into S3 archives. Billing is an
// audited domain: every payment mutation leaves an ActivityLog row, and
// those rows must survive beyond the hot table.
type AuditArchiveService struct {
	db          *gorm.DB
	redisClient *redis.Client
	awsConfig   aws.Config
}

// archivedEntry is the export representation stored inside archives.
type archivedEntry struct {
	ID         uint           `json:"id"`
	UserID     uint           `json:"user_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID uint           `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  time.Time      `json:"created_at"`
	Username   string         `json:"username,omitempty"`
	UserRole   string         `json:"user_role,omitempty"`
}

func NewAuditArchiveService(db *gorm.DB) *AuditArchiveService {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; audit archives will stay local until configured")
	}
	return &AuditArchiveService{
		db:          db,
		redisClient: database.GetRedisClient(),
		awsConfig:   cfg,
	}
}

// RunMaintenance is the scheduler entry point: flush the Redis cache, then
// archive entries older than 30 days.
func (s *AuditArchiveService) RunMaintenance() error {
	if err := s.FlushCachedEntries(); err != nil {
		logrus.WithError(err).Warn("Audit cache flush failed")
	}
	return s.ArchiveOldEntries(30)
}

// FlushCachedEntries moves audit entries from the Redis cache into the
// database once their cache TTL window has passed.
func (s *AuditArchiveService) FlushCachedEntries() error {
	if s.redisClient == nil {
		return nil
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	keys, err := s.redisClient.ZRangeByScore(ctx, auditQueueKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read audit queue: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	flushed, failed := 0, 0
	for _, key := range keys {
		raw, err := s.redisClient.Get(ctx, key).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				logrus.WithError(err).Errorf("Failed to read cached audit entry %s", key)
				failed++
			}
			continue
		}

		var entry models.ActivityLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logrus.WithError(err).Errorf("Failed to decode cached audit entry %s", key)
			failed++
			continue
		}
		if err := s.db.Create(&entry).Error; err != nil {
			logrus.WithError(err).Error("Failed to persist cached audit entry")
			failed++
			continue
		}

		pipe := s.redisClient.Pipeline()
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, auditQueueKey, key)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithError(err).Errorf("Failed to drop flushed audit entry %s from cache", key)
		}
		flushed++
	}

	logrus.WithFields(logrus.Fields{"flushed": flushed, "failed": failed}).Info("Audit cache flush finished")
	return nil
}

// ArchiveOldEntries zips entries older than daysOld into S3 and deletes them
// from the hot table. A LogArchive row records every completed archive.
func (s *AuditArchiveService) ArchiveOldEntries(daysOld int) error {
	if daysOld < 7 {
		return fmt.Errorf("minimum archive age is 7 days")
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	var entries []archivedEntry
	batchSize := 1000
	for offset := 0; ; offset += batchSize {
		var logs []models.ActivityLog
		err := s.db.Preload("User").
			Where("created_at < ?", cutoff).
			Limit(batchSize).Offset(offset).
			Find(&logs).Error
		if err != nil {
			return fmt.Errorf("failed to load audit entries for archiving: %w", err)
		}
		if len(logs) == 0 {
			break
		}
		for _, l := range logs {
			entries = append(entries, toArchivedEntry(l))
		}
	}

	if len(entries) == 0 {
		return nil
	}
	logrus.Infof("Archiving %d audit entries older than %s", len(entries), cutoff.Format("2006-01-02"))

	fileName := fmt.Sprintf("audit_logs_%s.zip", cutoff.Format("2006-01-02"))
	archive, err := buildArchive(entries, fileName)
	if err != nil {
		return fmt.Errorf("failed to build audit archive: %w", err)
	}

	s3Key := fmt.Sprintf("audit/archived/%d/%02d/%s", cutoff.Year(), cutoff.Month(), fileName)
	if err := s.uploadToS3(s3Key, archive); err != nil {
		return fmt.Errorf("failed to upload audit archive: %w", err)
	}

	result := s.db.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete archived audit entries: %w", result.Error)
	}

	meta := models.LogArchive{
		FileName:    fileName,
		S3Key:       s3Key,
		StartDate:   entries[0].CreatedAt,
		EndDate:     cutoff,
		RecordCount: len(entries),
		FileSize:    int64(archive.Len()),
		Status:      "completed",
	}
	if err := s.db.Create(&meta).Error; err != nil {
		logrus.WithError(err).Error("Failed to save audit archive metadata")
	}

	logrus.WithFields(logrus.Fields{
		"s3_key":  s3Key,
		"records": len(entries),
		"deleted": result.RowsAffected,
	}).Info("Audit archive completed")
	return nil
}

func toArchivedEntry(l models.ActivityLog) archivedEntry {
	e := archivedEntry{
		ID:         l.ID,
		UserID:     l.UserID,
		Action:     l.Action,
		Resource:   l.Resource,
		ResourceID: l.ResourceID,
		IPAddress:  l.IPAddress,
		UserAgent:  l.UserAgent,
		CreatedAt:  l.CreatedAt,
	}
	if !l.Details.IsNull() {
		var details map[string]any
		if err := json.Unmarshal(l.Details, &details); err == nil {
			e.Details = details
		}
	}
	if l.User.ID > 0 {
		e.Username = l.User.Username
		e.UserRole = l.User.Role
	}
	return e
}

// buildArchive packs the entries into a ZIP with a JSON export and a CSV
// export side by side.
func buildArchive(entries []archivedEntry, fileName string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	jsonFile, err := zw.Create("audit_logs.json")
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(jsonFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"export_date":    time.Now().UTC(),
		"record_count":   len(entries),
		"format_version": "1.0",
		"entries":        entries,
	}); err != nil {
		return nil, err
	}

	metaFile, err := zw.Create("metadata.json")
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(metaFile).Encode(map[string]any{
		"file_name":    fileName,
		"created_at":   time.Now().UTC(),
		"record_count": len(entries),
		"date_range": map[string]any{
			"start": entries[0].CreatedAt,
			"end":   entries[len(entries)-1].CreatedAt,
		},
		"schema_version": "1.0",
		"description":    "Campus billing audit log archive",
	}); err != nil {
		return nil, err
	}

	csvFile, err := zw.Create("audit_logs.csv")
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"id", "user_id", "username", "role", "action", "resource", "resource_id", "ip_address", "created_at", "details"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		details := ""
		if e.Details != nil {
			if b, err := json.Marshal(e.Details); err == nil {
				details = string(b)
			}
		}
		record := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			strconv.FormatUint(uint64(e.UserID), 10),
			e.Username,
			e.UserRole,
			e.Action,
			e.Resource,
			strconv.FormatUint(uint64(e.ResourceID), 10),
			e.IPAddress,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *AuditArchiveService) uploadToS3(key string, data *bytes.Buffer) error {
	if s.awsConfig.Region == "" {
		return fmt.Errorf("AWS not configured")
	}
	client := s3.NewFromConfig(s.awsConfig)
	bucket := os.Getenv("S3_BUCKET_NAME")

	_, err := client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String("application/zip"),
	})
	return err
}

// Archives lists the recorded archive metadata, newest first.
func (s *AuditArchiveService) Archives() ([]models.LogArchive, error) {
	var archives []models.LogArchive
	if err := s.db.Order("created_at DESC").Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit archives: %w", err)
	}
	return archives, nil
}

// Download streams one archive back from S3.
func (s *AuditArchiveService) Download(archiveID uint) (io.ReadCloser, string, error) {
	var archive models.LogArchive
	if err := s.db.First(&archive, archiveID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("archive not found")
		}
		return nil, "", fmt.Errorf("failed to load archive: %w", err)
	}
	if s.awsConfig.Region == "" {
		return nil, "", fmt.Errorf("AWS not configured")
	}
	client := s3.NewFromConfig(s.awsConfig)
	bucket := os.Getenv("S3_BUCKET_NAME")
	out, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &archive.S3Key,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive: %w", err)
	}
	return out.Body, archive.FileName, nil
}
