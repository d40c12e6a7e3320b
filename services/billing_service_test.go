package services

import (
	"testing"

	"campusbilling_go/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBillingComposesTotal(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewBillingService(db)

	assignCharge(t, db, student, "Exam Fee", models.ChargeMonthly, "200.00")
	require.NoError(t, db.Create(&models.StudentFineCharge{
		StudentID: student.ID,
		Amount:    dec("100.00"),
		Reason:    "Late library return",
	}).Error)

	master, err := svc.CreateBilling(CreateBillingParams{
		StudentID:    student.ID,
		ClassID:      student.ClassID,
		CampusID:     student.CampusID,
		ForMonth:     4,
		ForYear:      2026,
		TuitionFee:   dec("1500.00"),
		AdmissionFee: dec("5000.00"),
		PreviousDues: dec("250.00"),
	})
	require.NoError(t, err)

	assert.True(t, dec("200.00").Equal(master.MiscellaneousCharges))
	assert.True(t, dec("100.00").Equal(master.Fine))
	assert.True(t, dec("7050.00").Equal(master.TotalPayable), "1500 + 5000 + 100 + 250 + 200")
	assert.True(t, master.TotalPaid.IsZero())
	assert.True(t, master.TotalPayable.Equal(master.Dues))
}

func TestCreateBillingDuplicateCycle(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "0.00")
	svc := NewBillingService(db)

	params := CreateBillingParams{
		StudentID:  student.ID,
		ClassID:    student.ClassID,
		CampusID:   student.CampusID,
		ForMonth:   4,
		ForYear:    2026,
		TuitionFee: dec("1500.00"),
	}

	_, err := svc.CreateBilling(params)
	require.NoError(t, err)

	_, err = svc.CreateBilling(params)
	assert.ErrorIs(t, err, ErrBillingExists)

	var count int64
	require.NoError(t, db.Model(&models.BillingMaster{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateBillingReconcilesFines(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "0.00")
	svc := NewBillingService(db)

	fine := models.StudentFineCharge{StudentID: student.ID, Amount: dec("100.00")}
	require.NoError(t, db.Create(&fine).Error)

	master, err := svc.CreateBilling(CreateBillingParams{
		StudentID:  student.ID,
		ClassID:    student.ClassID,
		CampusID:   student.CampusID,
		ForMonth:   4,
		ForYear:    2026,
		TuitionFee: dec("1500.00"),
	})
	require.NoError(t, err)

	var reloaded models.StudentFineCharge
	require.NoError(t, db.First(&reloaded, fine.ID).Error)
	assert.True(t, reloaded.IsPaid)
	require.NotNil(t, reloaded.PaidDate)
	require.NotNil(t, reloaded.BillingMasterID)
	assert.Equal(t, master.ID, *reloaded.BillingMasterID)

	// Fines travel with one cycle only; the next cycle starts clean.
	next, err := svc.CreateBilling(CreateBillingParams{
		StudentID:  student.ID,
		ClassID:    student.ClassID,
		CampusID:   student.CampusID,
		ForMonth:   5,
		ForYear:    2026,
		TuitionFee: dec("1500.00"),
	})
	require.NoError(t, err)
	assert.True(t, next.Fine.IsZero())
}

func TestCreateBillingWithInitialPayment(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewBillingService(db)

	master, err := svc.CreateBilling(CreateBillingParams{
		StudentID:    student.ID,
		ClassID:      student.ClassID,
		CampusID:     student.CampusID,
		ForMonth:     4,
		ForYear:      2026,
		TuitionFee:   dec("1500.00"),
		AdmissionFee: dec("5000.00"),
		Payment: &PaymentParams{
			CashPaid:   dec("4000.00"),
			OnlinePaid: dec("2000.00"),
			ReceivedBy: "accounts.main",
		},
		MarkAdmissionPaid: true,
	})
	require.NoError(t, err)

	assert.True(t, dec("6000.00").Equal(master.TotalPaid))
	assert.True(t, dec("500.00").Equal(master.Dues))
	require.Len(t, master.Transactions, 1)
	assert.NotEmpty(t, master.Transactions[0].ReceiptNumber)

	var reloaded models.Student
	require.NoError(t, db.First(&reloaded, student.ID).Error)
	assert.True(t, reloaded.AdmissionFeePaid)
}

func TestRecordPayment(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "0.00")
	svc := NewBillingService(db)

	master, err := svc.CreateBilling(CreateBillingParams{
		StudentID:  student.ID,
		ClassID:    student.ClassID,
		CampusID:   student.CampusID,
		ForMonth:   4,
		ForYear:    2026,
		TuitionFee: dec("1500.00"),
	})
	require.NoError(t, err)

	txn, err := svc.RecordPayment(master.ID, PaymentParams{
		CashPaid:   dec("1000.00"),
		ReceivedBy: "accounts.main",
	})
	require.NoError(t, err)
	assert.True(t, dec("1000.00").Equal(txn.AmountPaid))

	var reloaded models.BillingMaster
	require.NoError(t, db.First(&reloaded, master.ID).Error)
	assert.True(t, dec("1000.00").Equal(reloaded.TotalPaid))
	assert.True(t, dec("500.00").Equal(reloaded.Dues))

	// Overpayment floors dues at zero rather than going negative.
	_, err = svc.RecordPayment(master.ID, PaymentParams{
		OnlinePaid: dec("900.00"),
		ReceivedBy: "accounts.main",
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&reloaded, master.ID).Error)
	assert.True(t, dec("1900.00").Equal(reloaded.TotalPaid))
	assert.True(t, reloaded.Dues.IsZero())
}

func TestRecordPaymentRejectsNonPositive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBillingService(db)

	_, err := svc.RecordPayment(1, PaymentParams{})
	assert.Error(t, err)

	_, err = svc.RecordPayment(1, PaymentParams{CashPaid: dec("-50.00")})
	assert.Error(t, err)
}

func TestRecordPaymentDeterministicReceipt(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "0.00")
	svc := NewBillingService(db)

	master, err := svc.CreateBilling(CreateBillingParams{
		StudentID:  student.ID,
		ClassID:    student.ClassID,
		CampusID:   student.CampusID,
		ForMonth:   4,
		ForYear:    2026,
		TuitionFee: dec("1500.00"),
	})
	require.NoError(t, err)

	payment := PaymentParams{
		CashPaid:      dec("500.00"),
		ReceivedBy:    "import",
		ReceiptNumber: "IMP-202604-1-abc",
	}
	txn, err := svc.RecordPayment(master.ID, payment)
	require.NoError(t, err)
	assert.Equal(t, "IMP-202604-1-abc", txn.ReceiptNumber)

	// Replaying the same receipt collides on the unique index instead of
	// double-paying.
	_, err = svc.RecordPayment(master.ID, payment)
	require.Error(t, err)
	assert.True(t, isDuplicateKeyError(err))

	var reloaded models.BillingMaster
	require.NoError(t, db.First(&reloaded, master.ID).Error)
	assert.True(t, dec("500.00").Equal(reloaded.TotalPaid))
}

func TestLatestDues(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "0.00")
	svc := NewBillingService(db)

	dues, err := svc.LatestDues(db, student.ID)
	require.NoError(t, err)
	assert.True(t, dues.IsZero(), "no history means zero dues")

	cycles := []struct {
		month, year int
		dues        string
	}{
		{12, 2025, "300.00"},
		{1, 2026, "450.00"},
		{11, 2025, "999.00"}, // older, must not win
	}
	for _, c := range cycles {
		require.NoError(t, db.Create(&models.BillingMaster{
			StudentID: student.ID,
			ForMonth:  c.month,
			ForYear:   c.year,
			ClassID:   student.ClassID,
			CampusID:  student.CampusID,
			Dues:      dec(c.dues),
		}).Error)
	}

	dues, err = svc.LatestDues(db, student.ID)
	require.NoError(t, err)
	assert.True(t, dec("450.00").Equal(dues), "latest cycle is Jan 2026")
}

func TestStudentBillingOrdering(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "0.00")
	svc := NewBillingService(db)

	for _, c := range []struct{ month, year int }{{12, 2025}, {2, 2026}, {1, 2026}} {
		require.NoError(t, db.Create(&models.BillingMaster{
			StudentID: student.ID,
			ForMonth:  c.month,
			ForYear:   c.year,
			ClassID:   student.ClassID,
			CampusID:  student.CampusID,
			Dues:      decimal.Zero,
		}).Error)
	}

	masters, err := svc.StudentBilling(student.ID)
	require.NoError(t, err)
	require.Len(t, masters, 3)
	assert.Equal(t, 2, masters[0].ForMonth)
	assert.Equal(t, 1, masters[1].ForMonth)
	assert.Equal(t, 12, masters[2].ForMonth)
}
