package controllers

import (
	"campusbilling_go/database"
	"campusbilling_go/middleware"
	"campusbilling_go/models"
	"campusbilling_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ChargeController struct {
	charges *services.ExtraChargeService
}

func NewChargeController() *ChargeController {
	return &ChargeController{charges: services.NewExtraChargeService(database.GetDB())}
}

// CreateChargeRequest defines a new extra charge.
type CreateChargeRequest struct {
	Name     string          `json:"name" validate:"required,max=255"`
	ClassID  *uint           `json:"class_id"`
	CampusID uint            `json:"campus_id" validate:"required"`
	Category string          `json:"category" validate:"required,oneof=monthly once_per_lifetime once_per_class"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

// CreateCharge adds a charge definition to the catalog.
func (cc *ChargeController) CreateCharge(c *fiber.Ctx) error {
	var req CreateChargeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}

	charge := models.ClassFeeExtraCharge{
		Name:     req.Name,
		ClassID:  req.ClassID,
		CampusID: req.CampusID,
		Category: req.Category,
		Amount:   req.Amount,
		IsActive: true,
	}
	if err := database.DB.Create(&charge).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create charge"})
	}

	middleware.LogActivity(c, "CREATE", "charges", charge.ID, fiber.Map{
		"name":     charge.Name,
		"category": charge.Category,
		"amount":   charge.Amount.String(),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"charge": charge})
}

// DeactivateCharge soft-disables a charge. Ledger history stays untouched,
// so re-activating later cannot double-bill settled once-per charges.
func (cc *ChargeController) DeactivateCharge(c *fiber.Ctx) error {
	chargeID, err := c.ParamsInt("id")
	if err != nil || chargeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid charge id"})
	}

	result := database.DB.Model(&models.ClassFeeExtraCharge{}).
		Where("id = ?", chargeID).
		Update("is_active", false)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate charge"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Charge not found"})
	}

	middleware.LogActivity(c, "UPDATE", "charges", uint(chargeID), fiber.Map{"action": "deactivate"})
	return c.JSON(fiber.Map{"message": "Charge deactivated"})
}

// AssignChargeRequest links a charge to a student.
type AssignChargeRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
	ChargeID  uint `json:"charge_id" validate:"required"`
}

// AssignCharge marks a charge applicable to a student.
func (cc *ChargeController) AssignCharge(c *fiber.Ctx) error {
	var req AssignChargeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var existing models.StudentChargeAssignment
	err := database.DB.Where("student_id = ? AND charge_id = ?", req.StudentID, req.ChargeID).
		First(&existing).Error
	if err == nil {
		if err := database.DB.Model(&existing).Update("is_assigned", true).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign charge"})
		}
		return c.JSON(fiber.Map{"assignment": existing})
	}

	assignment := models.StudentChargeAssignment{
		StudentID:  req.StudentID,
		ChargeID:   req.ChargeID,
		IsAssigned: true,
	}
	if err := database.DB.Create(&assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign charge"})
	}

	middleware.LogActivity(c, "CREATE", "charge_assignments", assignment.ID, fiber.Map{
		"student_id": req.StudentID,
		"charge_id":  req.ChargeID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assignment": assignment})
}

// GetApplicableCharges lists the charges that currently apply to a student
// under the configured applicability policy.
func (cc *ChargeController) GetApplicableCharges(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("id")
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	var student models.Student
	if err := database.DB.First(&student, studentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	charges, err := cc.charges.GetApplicableCharges(student.ClassID, student.ID, student.CampusID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve charges"})
	}

	return c.JSON(fiber.Map{
		"student_id": student.ID,
		"charges":    charges,
	})
}

// PreviewExtraCharges returns the total extra-charge amount the student
// would owe if billed right now. Read-only; repeated calls give the same
// answer until a payment lands.
func (cc *ChargeController) PreviewExtraCharges(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("id")
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	var student models.Student
	if err := database.DB.First(&student, studentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	total, err := cc.charges.CalculateExtraCharges(student.ClassID, student.ID, student.CampusID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to calculate charges"})
	}

	return c.JSON(fiber.Map{
		"student_id":    student.ID,
		"extra_charges": total,
	})
}

// HasPaidCharge reports whether the student has already settled a specific
// charge under its recurrence category.
func (cc *ChargeController) HasPaidCharge(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("id")
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}
	chargeID, err := c.ParamsInt("chargeId")
	if err != nil || chargeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid charge id"})
	}

	var student models.Student
	if err := database.DB.First(&student, studentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	paid, err := cc.charges.HasPaidCharge(student.ID, uint(chargeID), student.ClassID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check payment history"})
	}

	return c.JSON(fiber.Map{
		"student_id": student.ID,
		"charge_id":  chargeID,
		"paid":       paid,
	})
}
