package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"campusbilling_go/database"
	"campusbilling_go/models"
	"campusbilling_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditController serves the activity log trail and its S3 archives.
type AuditController struct {
	archive *services.AuditArchiveService
}

func NewAuditController() *AuditController {
	return &AuditController{archive: services.NewAuditArchiveService(database.GetDB())}
}

// AuditEntryResponse is one activity log entry with parsed details.
type AuditEntryResponse struct {
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

func toAuditEntryResponse(l models.ActivityLog) AuditEntryResponse {
	resp := AuditEntryResponse{
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
			resp.Details = details
		}
	}
	if l.User.ID > 0 {
		resp.Username = l.User.Username
		resp.UserRole = l.User.Role
	}
	return resp
}

// GetEntries retrieves paginated audit entries with filters.
func (ac *AuditController) GetEntries(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.ActivityLog{}).Preload("User")

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if parsed, err := time.Parse("2006-01-02", startDate); err == nil {
			query = query.Where("created_at >= ?", parsed)
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if parsed, err := time.Parse("2006-01-02", endDate); err == nil {
			query = query.Where("created_at <= ?", parsed.Add(24*time.Hour))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logrus.WithError(err).Error("Failed to count audit entries")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve audit entries"})
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		logrus.WithError(err).Error("Failed to retrieve audit entries")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve audit entries"})
	}

	responses := make([]AuditEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = toAuditEntryResponse(entry)
	}

	return c.JSON(fiber.Map{
		"entries":     responses,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// GetEntry retrieves a single audit entry by ID.
func (ac *AuditController) GetEntry(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entry ID"})
	}

	var entry models.ActivityLog
	if err := database.DB.Preload("User").First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Entry not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve entry"})
	}

	return c.JSON(toAuditEntryResponse(entry))
}

// ListArchives returns the recorded S3 archive metadata.
func (ac *AuditController) ListArchives(c *fiber.Ctx) error {
	archives, err := ac.archive.Archives()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list archives"})
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// DownloadArchive streams one archive zip from S3.
func (ac *AuditController) DownloadArchive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid archive ID"})
	}

	reader, fileName, err := ac.archive.Download(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	defer reader.Close()

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", "attachment; filename="+fileName)
	return c.SendStream(reader)
}
