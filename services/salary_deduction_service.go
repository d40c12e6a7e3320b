package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"campusbilling_go/models"
	"campusbilling_go/services/feecalc"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const deductionReceivedBy = "System-SalaryDeduction"

// Per-student outcomes that end a transaction without creating records.
// They roll the transaction back and are not failures.
var (
	errStudentLeft        = errors.New("student has left")
	errNoClassFee         = errors.New("no active class fee")
	errNoSalaryDefinition = errors.New("no active salary definition")
	errNoAvailableSalary  = errors.New("no available salary")
)

// SalaryDeductionService runs the monthly batch that bills employee-parent
// students against their parent's salary. Each student is processed in its
// own transaction; the parent's salary row is locked while the shared cap is
// computed so siblings cannot over-allocate one salary.
type SalaryDeductionService struct {
	db      *gorm.DB
	billing *BillingService
	charges *ExtraChargeService
}

func NewSalaryDeductionService(db *gorm.DB) *SalaryDeductionService {
	return &SalaryDeductionService{
		db:      db,
		billing: NewBillingService(db),
		charges: NewExtraChargeService(db),
	}
}

// DeductionSummary is the post-run report surfaced to operators.
type DeductionSummary struct {
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	Processed     int             `json:"processed"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	TotalDeducted decimal.Decimal `json:"total_deducted"`
	Failures      []string        `json:"failures,omitempty"`
}

// RunIfDue is the scheduler entry point. It re-checks hourly whether a batch
// for the current month has already been recorded and runs one if not.
// At-least-once at this layer; exactly-once for money movement comes from
// the per-student billing-exists guard and the unique billing index.
func (s *SalaryDeductionService) RunIfDue() error {
	now := time.Now()
	var count int64
	err := s.db.Model(&models.SalaryDeduction{}).
		Where("for_month = ? AND for_year = ?", int(now.Month()), now.Year()).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check deduction batch state: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err = s.ProcessMonthlyDeductionsFor(int(now.Month()), now.Year())
	return err
}

// ProcessMonthlyDeductions runs the batch for the current calendar month.
func (s *SalaryDeductionService) ProcessMonthlyDeductions() (*DeductionSummary, error) {
	now := time.Now()
	return s.ProcessMonthlyDeductionsFor(int(now.Month()), now.Year())
}

// ProcessMonthlyDeductionsFor runs the batch for an explicit (month, year).
// Failures are isolated per student: a bad record is logged and counted, and
// the batch moves on.
func (s *SalaryDeductionService) ProcessMonthlyDeductionsFor(month, year int) (*DeductionSummary, error) {
	summary := &DeductionSummary{Month: month, Year: year, TotalDeducted: decimal.Zero}

	var assignments []models.StudentCategoryAssignment
	err := s.db.Where("is_active = ? AND category_type = ? AND payment_mode IN ?",
		true, models.CategoryEmployeeParent,
		[]string{models.PaymentModeCutFromSalary, models.PaymentModeCustomRatio}).
		Preload("Student").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load employee-parent assignments: %w", err)
	}

	// Group by employee and walk employees in a stable order. Sequential
	// processing per employee plus the FOR UPDATE lock on the salary row
	// keeps the shared-salary cap honest across siblings.
	byEmployee := make(map[uint][]models.StudentCategoryAssignment)
	for _, a := range assignments {
		if a.EmployeeID == nil {
			// Payroll-linked payment mode without an employee is a data
			// integrity violation; never guess a deduction.
			summary.Failed++
			msg := fmt.Sprintf("student %d: %s assignment has no linked employee", a.StudentID, a.PaymentMode)
			summary.Failures = append(summary.Failures, msg)
			logrus.WithFields(logrus.Fields{
				"student_id": a.StudentID,
				"month":      month,
				"year":       year,
			}).Error(msg)
			continue
		}
		byEmployee[*a.EmployeeID] = append(byEmployee[*a.EmployeeID], a)
	}
	employeeIDs := make([]uint, 0, len(byEmployee))
	for id := range byEmployee {
		employeeIDs = append(employeeIDs, id)
	}
	sort.Slice(employeeIDs, func(i, j int) bool { return employeeIDs[i] < employeeIDs[j] })

	for _, employeeID := range employeeIDs {
		for _, assignment := range byEmployee[employeeID] {
			amount, err := s.processStudent(assignment, employeeID, month, year)
			switch {
			case err == nil:
				summary.Processed++
				summary.TotalDeducted = summary.TotalDeducted.Add(amount)
			case errors.Is(err, ErrBillingExists):
				// Already billed this cycle; idempotent re-run, not an error.
				summary.Skipped++
			case errors.Is(err, errStudentLeft):
				summary.Skipped++
			case errors.Is(err, errNoClassFee), errors.Is(err, errNoSalaryDefinition), errors.Is(err, errNoAvailableSalary):
				summary.Skipped++
				logrus.WithFields(logrus.Fields{
					"student_id":  assignment.StudentID,
					"employee_id": employeeID,
					"month":       month,
					"year":        year,
				}).Warnf("Salary deduction skipped: %v", err)
			default:
				summary.Failed++
				msg := fmt.Sprintf("student %d (employee %d): %v", assignment.StudentID, employeeID, err)
				summary.Failures = append(summary.Failures, msg)
				logrus.WithFields(logrus.Fields{
					"student_id":  assignment.StudentID,
					"employee_id": employeeID,
					"month":       month,
					"year":        year,
				}).Errorf("Salary deduction failed: %v", err)
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"month":          month,
		"year":           year,
		"processed":      summary.Processed,
		"skipped":        summary.Skipped,
		"failed":         summary.Failed,
		"total_deducted": summary.TotalDeducted.String(),
	}).Info("Salary deduction batch finished")

	return summary, nil
}

// processStudent bills one student against the parent's salary inside a
// single transaction. Returns the deducted amount on success.
func (s *SalaryDeductionService) processStudent(assignment models.StudentCategoryAssignment, employeeID uint, month, year int) (amount decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing student %d: %v", assignment.StudentID, r)
		}
	}()

	amount = decimal.Zero
	err = s.db.Transaction(func(tx *gorm.DB) error {
		student := assignment.Student
		if student.ID == 0 {
			if err := tx.First(&student, assignment.StudentID).Error; err != nil {
				return fmt.Errorf("student %d not found: %w", assignment.StudentID, err)
			}
		}
		if student.HasLeft {
			return errStudentLeft
		}

		// Idempotence guard against duplicate runs.
		var existing int64
		if err := tx.Model(&models.BillingMaster{}).
			Where("student_id = ? AND for_month = ? AND for_year = ?", student.ID, month, year).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing billing: %w", err)
		}
		if existing > 0 {
			return ErrBillingExists
		}

		var classFee models.ClassFee
		if err := tx.Where("class_id = ? AND is_active = ?", student.ClassID, true).
			First(&classFee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoClassFee
			}
			return fmt.Errorf("failed to load class fee: %w", err)
		}

		// Lock the salary row; the shared-salary computation below must not
		// race a sibling's concurrent deduction.
		var salary models.SalaryDefinition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("employee_id = ? AND is_active = ?", employeeID, true).
			First(&salary).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoSalaryDefinition
			}
			return fmt.Errorf("failed to load salary definition: %w", err)
		}

		tuitionFee := feecalc.ApplyPercentDiscount(classFee.TuitionFee, assignment.TuitionDiscountPercent)

		eligible, err := s.charges.EligibleCharges(tx, student.ClassID, student.ID, student.CampusID)
		if err != nil {
			return err
		}
		extraCharges := decimal.Zero
		for _, charge := range eligible {
			extraCharges = extraCharges.Add(charge.Amount)
		}

		admissionFee := decimal.Zero
		if !student.AdmissionFeePaid {
			admissionFee = feecalc.ApplyPercentDiscount(classFee.AdmissionFee, assignment.AdmissionDiscountPercent)
		}

		totalFee := tuitionFee.Add(extraCharges).Add(admissionFee)
		calculatedDeduction := feecalc.DeductionShare(totalFee, assignment.CustomTuitionPercent)

		var usedSalary decimal.Decimal
		if err := tx.Model(&models.SalaryDeduction{}).
			Where("employee_id = ? AND for_month = ? AND for_year = ?", employeeID, month, year).
			Select("COALESCE(SUM(amount), 0)").Scan(&usedSalary).Error; err != nil {
			return fmt.Errorf("failed to sum existing deductions: %w", err)
		}
		available := salary.NetSalary.Sub(usedSalary)

		finalDeduction := feecalc.CapToAvailable(calculatedDeduction, available)
		if finalDeduction.LessThanOrEqual(decimal.Zero) {
			return errNoAvailableSalary
		}

		previousDues, err := s.billing.LatestDues(tx, student.ID)
		if err != nil {
			return err
		}

		master, err := s.billing.CreateBillingTx(tx, CreateBillingParams{
			StudentID:    student.ID,
			ClassID:      student.ClassID,
			CampusID:     student.CampusID,
			ForMonth:     month,
			ForYear:      year,
			TuitionFee:   tuitionFee,
			AdmissionFee: admissionFee,
			PreviousDues: previousDues,
			Payment: &PaymentParams{
				OnlinePaid: finalDeduction,
				ReceivedBy: deductionReceivedBy,
			},
			MarkAdmissionPaid: !student.AdmissionFeePaid && admissionFee.GreaterThan(decimal.Zero),
		}, eligible)
		if err != nil {
			return err
		}

		deduction := models.SalaryDeduction{
			EmployeeID:      employeeID,
			StudentID:       student.ID,
			BillingMasterID: master.ID,
			Amount:          finalDeduction,
			ForMonth:        month,
			ForYear:         year,
		}
		if err := tx.Create(&deduction).Error; err != nil {
			return fmt.Errorf("failed to create salary deduction: %w", err)
		}

		amount = finalDeduction
		return nil
	})
	return amount, err
}
