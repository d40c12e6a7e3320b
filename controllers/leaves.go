package controllers

import (
	"time"

	"campusbilling_go/database"
	"campusbilling_go/middleware"
	"campusbilling_go/models"
	"campusbilling_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type LeaveController struct {
	rollover *services.LeaveRolloverService
}

func NewLeaveController() *LeaveController {
	return &LeaveController{rollover: services.NewLeaveRolloverService(database.GetDB())}
}

// CreateLeaveConfigRequest defines a leave allocation rule for a role.
type CreateLeaveConfigRequest struct {
	EmployeeType        string          `json:"employee_type" validate:"required"`
	RoleName            string          `json:"role_name" validate:"required"`
	LeaveType           string          `json:"leave_type" validate:"required"`
	AllocationPeriod    string          `json:"allocation_period" validate:"required,oneof=monthly yearly"`
	AllowedDays         decimal.Decimal `json:"allowed_days" validate:"required"`
	IsCarryForward      bool            `json:"is_carry_forward"`
	MaxCarryForwardDays decimal.Decimal `json:"max_carry_forward_days"`
}

// CreateLeaveConfig adds a leave allocation rule. Existing balances are not
// recomputed; new rules take effect at the next rollover.
func (lc *LeaveController) CreateLeaveConfig(c *fiber.Ctx) error {
	var req CreateLeaveConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.AllowedDays.LessThanOrEqual(decimal.Zero) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Allowed days must be positive"})
	}

	cfg := models.LeaveConfig{
		EmployeeType:        req.EmployeeType,
		RoleName:            req.RoleName,
		LeaveType:           req.LeaveType,
		AllocationPeriod:    req.AllocationPeriod,
		AllowedDays:         req.AllowedDays,
		IsCarryForward:      req.IsCarryForward,
		MaxCarryForwardDays: req.MaxCarryForwardDays,
		IsActive:            true,
	}
	if err := database.DB.Create(&cfg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create leave config"})
	}

	middleware.LogActivity(c, "CREATE", "leave_configs", cfg.ID, fiber.Map{
		"role":   cfg.RoleName,
		"leave":  cfg.LeaveType,
		"period": cfg.AllocationPeriod,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"config": cfg})
}

// GetBalances returns an employee's leave balances, newest period first.
func (lc *LeaveController) GetBalances(c *fiber.Ctx) error {
	employeeID, err := c.ParamsInt("id")
	if err != nil || employeeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid employee id"})
	}

	balances, err := lc.rollover.Balances(uint(employeeID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load balances"})
	}

	return c.JSON(fiber.Map{
		"employee_id": employeeID,
		"balances":    balances,
	})
}

// GetHistory returns the employee's leave balance audit trail.
func (lc *LeaveController) GetHistory(c *fiber.Ctx) error {
	employeeID, err := c.ParamsInt("id")
	if err != nil || employeeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid employee id"})
	}

	history, err := lc.rollover.History(uint(employeeID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load history"})
	}

	return c.JSON(fiber.Map{
		"employee_id": employeeID,
		"history":     history,
	})
}

// RecordUsageRequest books approved leave days against a balance.
type RecordUsageRequest struct {
	LeaveType string          `json:"leave_type" validate:"required"`
	Days      decimal.Decimal `json:"days" validate:"required"`
}

// RecordUsage books leave usage for an employee.
func (lc *LeaveController) RecordUsage(c *fiber.Ctx) error {
	employeeID, err := c.ParamsInt("id")
	if err != nil || employeeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid employee id"})
	}

	var req RecordUsageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := lc.rollover.RecordUsage(uint(employeeID), req.LeaveType, req.Days, time.Now()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	middleware.LogActivity(c, "CREATE", "leave_usage", uint(employeeID), fiber.Map{
		"leave_type": req.LeaveType,
		"days":       req.Days.String(),
	})

	return c.JSON(fiber.Map{"message": "Leave usage recorded"})
}
