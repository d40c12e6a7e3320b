package controllers

import (
	"campusbilling_go/database"
	"campusbilling_go/middleware"
	"campusbilling_go/models"
	"campusbilling_go/services"
	"campusbilling_go/services/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type DeductionController struct {
	deductions *services.SalaryDeductionService
}

func NewDeductionController() *DeductionController {
	return &DeductionController{deductions: services.NewSalaryDeductionService(database.GetDB())}
}

// RunBatchRequest runs the deduction batch for an explicit period. Month and
// year default to the current calendar month when omitted.
type RunBatchRequest struct {
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
	Year  int `json:"year" validate:"omitempty,min=2000"`
}

// RunBatch triggers the salary deduction batch. Re-running a completed month
// only produces skips.
func (dc *DeductionController) RunBatch(c *fiber.Ctx) error {
	var req RunBatchRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var summary *services.DeductionSummary
	var err error
	if req.Month > 0 && req.Year > 0 {
		summary, err = dc.deductions.ProcessMonthlyDeductionsFor(req.Month, req.Year)
	} else {
		summary, err = dc.deductions.ProcessMonthlyDeductions()
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	middleware.LogActivity(c, "CREATE", "salary_deductions", 0, summary)

	if err := notifications.NewService().NotifyAdmins(
		"Salary deduction batch finished",
		"The monthly fee deduction batch has completed.",
		"info", summary); err != nil {
		logrus.WithError(err).Warn("Failed to notify admins about deduction batch")
	}

	return c.JSON(fiber.Map{
		"message": "Deduction batch finished",
		"summary": summary,
	})
}

// GetEmployeeDeductions lists an employee's deduction rows, newest first.
func (dc *DeductionController) GetEmployeeDeductions(c *fiber.Ctx) error {
	employeeID, err := c.ParamsInt("id")
	if err != nil || employeeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid employee id"})
	}

	var deductions []models.SalaryDeduction
	if err := database.DB.Where("employee_id = ?", employeeID).
		Preload("Student").
		Order("for_year DESC, for_month DESC, id DESC").
		Find(&deductions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load deductions"})
	}

	return c.JSON(fiber.Map{
		"employee_id": employeeID,
		"deductions":  deductions,
	})
}
