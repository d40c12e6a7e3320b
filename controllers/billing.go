package controllers

import (
	"errors"

	"campusbilling_go/database"
	"campusbilling_go/middleware"
	"campusbilling_go/models"
	"campusbilling_go/services"
	"campusbilling_go/services/feecalc"
	"campusbilling_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BillingController struct {
	billing *services.BillingService
	charges *services.ExtraChargeService
}

func NewBillingController() *BillingController {
	db := database.GetDB()
	return &BillingController{
		billing: services.NewBillingService(db),
		charges: services.NewExtraChargeService(db),
	}
}

// CreateBillingRequest creates one billing cycle for a student. Fees are
// snapshotted from the class fee schedule with the student's category
// discounts applied; a payment may be recorded in the same request.
type CreateBillingRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
	ForMonth  int  `json:"for_month" validate:"required,min=1,max=12"`
	ForYear   int  `json:"for_year" validate:"required,min=2000"`

	CashPaid       decimal.Decimal `json:"cash_paid"`
	OnlinePaid     decimal.Decimal `json:"online_paid"`
	BankAccountRef string          `json:"bank_account_ref"`
}

// CreateStudentBilling bills a student for one month.
func (bc *BillingController) CreateStudentBilling(c *fiber.Ctx) error {
	var req CreateBillingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()

	var student models.Student
	if err := db.First(&student, req.StudentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}
	if student.HasLeft {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Student has left; no new billing allowed"})
	}

	var classFee models.ClassFee
	if err := db.Where("class_id = ? AND is_active = ?", student.ClassID, true).First(&classFee).Error; err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "No active fee schedule for the student's class"})
	}

	// Discounts come from the student's active category assignment, if any.
	tuitionDiscount, admissionDiscount := decimal.Zero, decimal.Zero
	var assignment models.StudentCategoryAssignment
	err := db.Where("student_id = ? AND is_active = ?", student.ID, true).First(&assignment).Error
	if err == nil {
		tuitionDiscount = assignment.TuitionDiscountPercent
		admissionDiscount = assignment.AdmissionDiscountPercent
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load category assignment"})
	}

	tuition := feecalc.ApplyPercentDiscount(classFee.TuitionFee, tuitionDiscount)
	admission := decimal.Zero
	if !student.AdmissionFeePaid {
		admission = feecalc.ApplyPercentDiscount(classFee.AdmissionFee, admissionDiscount)
	}

	var payment *services.PaymentParams
	if req.CashPaid.Add(req.OnlinePaid).GreaterThan(decimal.Zero) {
		receivedBy := "unknown"
		if user, err := middleware.GetCurrentUser(c); err == nil {
			receivedBy = user.Username
		}
		payment = &services.PaymentParams{
			CashPaid:       req.CashPaid,
			OnlinePaid:     req.OnlinePaid,
			BankAccountRef: req.BankAccountRef,
			ReceivedBy:     receivedBy,
		}
	}

	var master *models.BillingMaster
	err = db.Transaction(func(tx *gorm.DB) error {
		previousDues, err := bc.billing.LatestDues(tx, student.ID)
		if err != nil {
			return err
		}
		eligible, err := bc.charges.EligibleCharges(tx, student.ClassID, student.ID, student.CampusID)
		if err != nil {
			return err
		}
		master, err = bc.billing.CreateBillingTx(tx, services.CreateBillingParams{
			StudentID:         student.ID,
			ClassID:           student.ClassID,
			CampusID:          student.CampusID,
			ForMonth:          req.ForMonth,
			ForYear:           req.ForYear,
			TuitionFee:        tuition,
			AdmissionFee:      admission,
			PreviousDues:      previousDues,
			Payment:           payment,
			MarkAdmissionPaid: !student.AdmissionFeePaid && admission.GreaterThan(decimal.Zero),
		}, eligible)
		return err
	})
	if errors.Is(err, services.ErrBillingExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Billing already exists for this month"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create billing"})
	}

	middleware.LogActivity(c, "CREATE", "billing", master.ID, fiber.Map{
		"student_id": student.ID,
		"for_month":  req.ForMonth,
		"for_year":   req.ForYear,
		"total":      master.TotalPayable.String(),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Billing created successfully",
		"billing": master,
	})
}

// GetStudentBilling returns all billing cycles for a student, newest first.
func (bc *BillingController) GetStudentBilling(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("id")
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	masters, err := bc.billing.StudentBilling(uint(studentID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load billing"})
	}

	return c.JSON(fiber.Map{
		"student_id": studentID,
		"billing":    masters,
	})
}

// RecordPaymentRequest is one payment against an existing billing cycle.
type RecordPaymentRequest struct {
	CashPaid       decimal.Decimal `json:"cash_paid"`
	OnlinePaid     decimal.Decimal `json:"online_paid"`
	BankAccountRef string          `json:"bank_account_ref"`
}

// RecordPayment appends a payment to a billing cycle and returns the receipt.
func (bc *BillingController) RecordPayment(c *fiber.Ctx) error {
	billingID, err := c.ParamsInt("id")
	if err != nil || billingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid billing id"})
	}

	var req RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	receivedBy := "unknown"
	if user, err := middleware.GetCurrentUser(c); err == nil {
		receivedBy = user.Username
	}

	txn, err := bc.billing.RecordPayment(uint(billingID), services.PaymentParams{
		CashPaid:       req.CashPaid,
		OnlinePaid:     req.OnlinePaid,
		BankAccountRef: req.BankAccountRef,
		ReceivedBy:     receivedBy,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var master models.BillingMaster
	if err := database.DB.Preload("Student").Preload("Transactions").
		First(&master, billingID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load receipt"})
	}

	middleware.LogActivity(c, "CREATE", "payments", txn.ID, fiber.Map{
		"billing_master_id": billingID,
		"receipt_number":    txn.ReceiptNumber,
		"amount":            txn.AmountPaid.String(),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payment recorded successfully",
		"receipt": utils.ToReceiptDTO(master, txn.ID),
	})
}

// GetReceiptData returns the statement view of a billing cycle: all
// payments so far, no current-payment split.
func (bc *BillingController) GetReceiptData(c *fiber.Ctx) error {
	billingID, err := c.ParamsInt("id")
	if err != nil || billingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid billing id"})
	}

	var master models.BillingMaster
	if err := database.DB.Preload("Student").Preload("Transactions").
		First(&master, billingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Billing not found"})
	}

	return c.JSON(fiber.Map{
		"receipt": utils.ToReceiptDTO(master, 0),
	})
}

// GetReceipt rebuilds the receipt for a past transaction. Reprints match the
// original because the split is derived from transaction order, not time.
func (bc *BillingController) GetReceipt(c *fiber.Ctx) error {
	txnID, err := c.ParamsInt("id")
	if err != nil || txnID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction id"})
	}

	var txn models.BillingTransaction
	if err := database.DB.First(&txn, txnID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
	}

	var master models.BillingMaster
	if err := database.DB.Preload("Student").Preload("Transactions").
		First(&master, txn.BillingMasterID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load billing"})
	}

	return c.JSON(fiber.Map{
		"receipt": utils.ToReceiptDTO(master, txn.ID),
	})
}
