package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campusbilling_go/models"
	"campusbilling_go/services/feecalc"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBillingExists signals that a billing record already exists for the
// (student, month, year) cycle. Callers treat it as an idempotent skip, not
// a failure.
var ErrBillingExists = errors.New("billing already exists for this cycle")

// BillingService creates billing cycles and applies payments. All money
// movement for one cycle happens in a single transaction so receipts never
// observe a partially-visible billing state.
type BillingService struct {
	db      *gorm.DB
	charges *ExtraChargeService
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{db: db, charges: NewExtraChargeService(db)}
}

// CreateBillingParams carries the snapshot fee components for one cycle.
// Tuition and admission arrive already discounted; the service resolves
// extra charges and unpaid fines itself.
type CreateBillingParams struct {
	StudentID    uint
	ClassID      uint
	CampusID     uint
	ForMonth     int
	ForYear      int
	TuitionFee   decimal.Decimal
	AdmissionFee decimal.Decimal
	PreviousDues decimal.Decimal

	// Optional payment recorded atomically with the billing creation.
	Payment *PaymentParams

	// Flip Student.AdmissionFeePaid after a non-zero admission fee is billed.
	MarkAdmissionPaid bool
}

// PaymentParams describes one payment event. ReceiptNumber is normally left
// empty and generated; bulk imports set it to a deterministic value so
// re-importing the same file cannot double-pay.
type PaymentParams struct {
	CashPaid       decimal.Decimal
	OnlinePaid     decimal.Decimal
	BankAccountRef string
	ReceivedBy     string
	ReceiptNumber  string
}

func (p PaymentParams) amount() decimal.Decimal {
	return p.CashPaid.Add(p.OnlinePaid)
}

func (p PaymentParams) receiptNumber() string {
	if p.ReceiptNumber != "" {
		return p.ReceiptNumber
	}
	return newReceiptNumber()
}

// CreateBilling opens its own transaction around CreateBillingTx.
func (s *BillingService) CreateBilling(params CreateBillingParams) (*models.BillingMaster, error) {
	var master *models.BillingMaster
	err := s.db.Transaction(func(tx *gorm.DB) error {
		eligible, err := s.charges.EligibleCharges(tx, params.ClassID, params.StudentID, params.CampusID)
		if err != nil {
			return err
		}
		master, err = s.CreateBillingTx(tx, params, eligible)
		return err
	})
	if err != nil {
		return nil, err
	}
	return master, nil
}

// CreateBillingTx creates the BillingMaster plus everything that must become
// visible with it: the charge-payment ledger rows for the eligible charges,
// the fine reconciliation, and the optional first transaction. The caller
// owns the transaction; eligible charges must have been resolved on the same
// tx so the eligibility read and the ledger write are one atomic unit.
func (s *BillingService) CreateBillingTx(tx *gorm.DB, params CreateBillingParams, eligible []models.ClassFeeExtraCharge) (*models.BillingMaster, error) {
	var existing models.BillingMaster
	err := tx.Where("student_id = ? AND for_month = ? AND for_year = ?",
		params.StudentID, params.ForMonth, params.ForYear).
		First(&existing).Error
	if err == nil {
		return nil, ErrBillingExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing billing: %w", err)
	}

	misc := decimal.Zero
	for _, charge := range eligible {
		misc = misc.Add(charge.Amount)
	}

	// Snapshot unpaid fines into this cycle.
	var fines []models.StudentFineCharge
	if err := tx.Where("student_id = ? AND is_paid = ?", params.StudentID, false).Find(&fines).Error; err != nil {
		return nil, fmt.Errorf("failed to load unpaid fines: %w", err)
	}
	fineTotal := decimal.Zero
	for _, fine := range fines {
		fineTotal = fineTotal.Add(fine.Amount)
	}

	totalPayable := feecalc.NetPayable(params.TuitionFee, params.AdmissionFee, fineTotal, params.PreviousDues, misc)
	paid := decimal.Zero
	if params.Payment != nil {
		paid = params.Payment.amount()
	}

	master := models.BillingMaster{
		StudentID:            params.StudentID,
		ForMonth:             params.ForMonth,
		ForYear:              params.ForYear,
		ClassID:              params.ClassID,
		CampusID:             params.CampusID,
		TuitionFee:           params.TuitionFee,
		AdmissionFee:         params.AdmissionFee,
		MiscellaneousCharges: misc,
		Fine:                 fineTotal,
		PreviousDues:         params.PreviousDues,
		TotalPayable:         totalPayable,
		TotalPaid:            paid,
		Dues:                 feecalc.RemainingDues(totalPayable, paid),
	}
	if err := tx.Create(&master).Error; err != nil {
		// The unique index on (student_id, for_month, for_year) closes the
		// race where two batches pass the existence check together.
		if isDuplicateKeyError(err) {
			return nil, ErrBillingExists
		}
		return nil, fmt.Errorf("failed to create billing master: %w", err)
	}

	for _, charge := range eligible {
		if err := s.charges.SavePaymentHistory(tx, charge, params.StudentID, master.ID, params.ClassID, params.CampusID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	for _, fine := range fines {
		updates := map[string]interface{}{
			"is_paid":           true,
			"paid_date":         &now,
			"billing_master_id": master.ID,
		}
		if err := tx.Model(&models.StudentFineCharge{}).Where("id = ?", fine.ID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to reconcile fine %d: %w", fine.ID, err)
		}
	}

	if params.Payment != nil && paid.GreaterThan(decimal.Zero) {
		txn := models.BillingTransaction{
			BillingMasterID: master.ID,
			AmountPaid:      paid,
			CashPaid:        params.Payment.CashPaid,
			OnlinePaid:      params.Payment.OnlinePaid,
			BankAccountRef:  params.Payment.BankAccountRef,
			ReceiptNumber:   params.Payment.receiptNumber(),
			ReceivedBy:      params.Payment.ReceivedBy,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return nil, fmt.Errorf("failed to create billing transaction: %w", err)
		}
		master.Transactions = append(master.Transactions, txn)
	}

	if params.MarkAdmissionPaid && params.AdmissionFee.GreaterThan(decimal.Zero) {
		if err := tx.Model(&models.Student{}).Where("id = ?", params.StudentID).
			Update("admission_fee_paid", true).Error; err != nil {
			return nil, fmt.Errorf("failed to mark admission fee paid: %w", err)
		}
	}

	return &master, nil
}

// RecordPayment appends an immutable transaction to an existing billing
// cycle and keeps the stored Dues consistent. The master row is locked for
// the duration so concurrent payments cannot both read the same dues.
func (s *BillingService) RecordPayment(billingMasterID uint, payment PaymentParams) (*models.BillingTransaction, error) {
	amount := payment.amount()
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	var txn models.BillingTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var master models.BillingMaster
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&master, billingMasterID).Error; err != nil {
			return fmt.Errorf("billing master %d not found: %w", billingMasterID, err)
		}

		txn = models.BillingTransaction{
			BillingMasterID: master.ID,
			AmountPaid:      amount,
			CashPaid:        payment.CashPaid,
			OnlinePaid:      payment.OnlinePaid,
			BankAccountRef:  payment.BankAccountRef,
			ReceiptNumber:   payment.receiptNumber(),
			ReceivedBy:      payment.ReceivedBy,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("failed to create billing transaction: %w", err)
		}

		updates := map[string]interface{}{
			"total_paid": master.TotalPaid.Add(amount),
			"dues":       feecalc.RemainingDues(master.Dues, amount),
		}
		if err := tx.Model(&models.BillingMaster{}).Where("id = ?", master.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update billing dues: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"billing_master_id": billingMasterID,
		"receipt_number":    txn.ReceiptNumber,
		"amount":            amount.String(),
	}).Info("Payment recorded")

	return &txn, nil
}

// LatestDues pulls forward the dues from the student's most recent billing
// cycle (year, then month, descending). No prior cycle means zero.
func (s *BillingService) LatestDues(tx *gorm.DB, studentID uint) (decimal.Decimal, error) {
	var master models.BillingMaster
	err := tx.Where("student_id = ?", studentID).
		Order("for_year DESC, for_month DESC").
		First(&master).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load latest billing: %w", err)
	}
	return master.Dues, nil
}

// StudentBilling returns the student's billing cycles with their
// transactions, newest first.
func (s *BillingService) StudentBilling(studentID uint) ([]models.BillingMaster, error) {
	var masters []models.BillingMaster
	err := s.db.Where("student_id = ?", studentID).
		Preload("Transactions").
		Order("for_year DESC, for_month DESC").
		Find(&masters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load student billing: %w", err)
	}
	return masters, nil
}

func newReceiptNumber() string {
	return "RCPT-" + uuid.NewString()
}

// isDuplicateKeyError detects unique-constraint violations across the MySQL
// and SQLite drivers without importing either directly.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
