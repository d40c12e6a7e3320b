package utils

import (
	"time"

	"campusbilling_go/models"

	"github.com/shopspring/decimal"
)

// StudentShort is the compact student representation used on receipts.
type StudentShort struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	ClassID   uint   `json:"class_id"`
	CampusID  uint   `json:"campus_id"`
}

// TransactionDTO is one payment line on a receipt.
type TransactionDTO struct {
	ID             uint            `json:"id"`
	ReceiptNumber  string          `json:"receipt_number"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	CashPaid       decimal.Decimal `json:"cash_paid"`
	OnlinePaid     decimal.Decimal `json:"online_paid"`
	BankAccountRef string          `json:"bank_account_ref,omitempty"`
	ReceivedBy     string          `json:"received_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ReceiptDTO is the full receipt view for one billing cycle. PreviouslyPaid
// covers every transaction before the one being receipted; CurrentPayment is
// that transaction itself. Splitting on transaction order keeps a reprinted
// receipt identical to the original.
type ReceiptDTO struct {
	BillingMasterID      uint             `json:"billing_master_id"`
	Student              StudentShort     `json:"student"`
	ForMonth             int              `json:"for_month"`
	ForYear              int              `json:"for_year"`
	TuitionFee           decimal.Decimal  `json:"tuition_fee"`
	AdmissionFee         decimal.Decimal  `json:"admission_fee"`
	MiscellaneousCharges decimal.Decimal  `json:"miscellaneous_charges"`
	Fine                 decimal.Decimal  `json:"fine"`
	PreviousDues         decimal.Decimal  `json:"previous_dues"`
	TotalPayable         decimal.Decimal  `json:"total_payable"`
	PreviouslyPaid       decimal.Decimal  `json:"previously_paid"`
	CurrentPayment       *TransactionDTO  `json:"current_payment,omitempty"`
	TotalPaid            decimal.Decimal  `json:"total_paid"`
	Dues                 decimal.Decimal  `json:"dues"`
	Transactions         []TransactionDTO `json:"transactions,omitempty"`
}

func toTransactionDTO(t models.BillingTransaction) TransactionDTO {
	return TransactionDTO{
		ID:             t.ID,
		ReceiptNumber:  t.ReceiptNumber,
		AmountPaid:     t.AmountPaid,
		CashPaid:       t.CashPaid,
		OnlinePaid:     t.OnlinePaid,
		BankAccountRef: t.BankAccountRef,
		ReceivedBy:     t.ReceivedBy,
		CreatedAt:      t.CreatedAt,
	}
}

// ToReceiptDTO builds the receipt for one billing cycle around a specific
// transaction. transactionID zero means a statement view: everything paid so
// far counts as PreviouslyPaid and there is no CurrentPayment. The caller
// must have preloaded Transactions.
func ToReceiptDTO(master models.BillingMaster, transactionID uint) ReceiptDTO {
	dto := ReceiptDTO{
		BillingMasterID: master.ID,
		Student: StudentShort{
			ID:        master.Student.ID,
			FirstName: master.Student.FirstName,
			LastName:  master.Student.LastName,
			ClassID:   master.ClassID,
			CampusID:  master.CampusID,
		},
		ForMonth:             master.ForMonth,
		ForYear:              master.ForYear,
		TuitionFee:           master.TuitionFee,
		AdmissionFee:         master.AdmissionFee,
		MiscellaneousCharges: master.MiscellaneousCharges,
		Fine:                 master.Fine,
		PreviousDues:         master.PreviousDues,
		TotalPayable:         master.TotalPayable,
		TotalPaid:            master.TotalPaid,
		Dues:                 master.Dues,
		PreviouslyPaid:       decimal.Zero,
	}

	for _, txn := range master.Transactions {
		dto.Transactions = append(dto.Transactions, toTransactionDTO(txn))
		switch {
		case transactionID == 0 || txn.ID < transactionID:
			dto.PreviouslyPaid = dto.PreviouslyPaid.Add(txn.AmountPaid)
		case txn.ID == transactionID:
			current := toTransactionDTO(txn)
			dto.CurrentPayment = &current
		}
	}

	return dto
}
