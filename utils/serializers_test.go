package utils

import (
	"testing"

	"campusbilling_go/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiptFixture() models.BillingMaster {
	d := decimal.RequireFromString
	return models.BillingMaster{
		BaseModel:    models.BaseModel{ID: 7},
		StudentID:    42,
		ForMonth:     4,
		ForYear:      2026,
		ClassID:      3,
		CampusID:     1,
		TuitionFee:   d("1500.00"),
		TotalPayable: d("1500.00"),
		TotalPaid:    d("1500.00"),
		Dues:         decimal.Zero,
		Student:      models.Student{BaseModel: models.BaseModel{ID: 42}, FirstName: "Asha"},
		Transactions: []models.BillingTransaction{
			{BaseModel: models.BaseModel{ID: 10}, AmountPaid: d("1000.00"), ReceiptNumber: "RCPT-1"},
			{BaseModel: models.BaseModel{ID: 11}, AmountPaid: d("500.00"), ReceiptNumber: "RCPT-2"},
		},
	}
}

func TestToReceiptDTOSplitsOnTransaction(t *testing.T) {
	dto := ToReceiptDTO(receiptFixture(), 11)

	assert.True(t, decimal.RequireFromString("1000.00").Equal(dto.PreviouslyPaid))
	require.NotNil(t, dto.CurrentPayment)
	assert.Equal(t, "RCPT-2", dto.CurrentPayment.ReceiptNumber)
	assert.True(t, decimal.RequireFromString("500.00").Equal(dto.CurrentPayment.AmountPaid))
	assert.Len(t, dto.Transactions, 2)
	assert.Equal(t, uint(42), dto.Student.ID)
}

func TestToReceiptDTOStatementView(t *testing.T) {
	dto := ToReceiptDTO(receiptFixture(), 0)

	assert.Nil(t, dto.CurrentPayment)
	assert.True(t, decimal.RequireFromString("1500.00").Equal(dto.PreviouslyPaid), "statement counts all payments as already made")
}

func TestToReceiptDTOReprintMatchesOriginal(t *testing.T) {
	master := receiptFixture()

	original := ToReceiptDTO(master, 10)
	assert.True(t, original.PreviouslyPaid.IsZero())
	require.NotNil(t, original.CurrentPayment)
	assert.Equal(t, "RCPT-1", original.CurrentPayment.ReceiptNumber)

	// A later payment appended to the cycle must not change the first
	// receipt's split when it is reprinted.
	master.Transactions = append(master.Transactions, models.BillingTransaction{
		BaseModel: models.BaseModel{ID: 12}, AmountPaid: decimal.RequireFromString("100.00"),
	})
	reprint := ToReceiptDTO(master, 10)
	assert.True(t, reprint.PreviouslyPaid.Equal(original.PreviouslyPaid))
	assert.Equal(t, original.CurrentPayment.ReceiptNumber, reprint.CurrentPayment.ReceiptNumber)
}
