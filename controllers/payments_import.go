package controllers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"campusbilling_go/database"
	"campusbilling_go/middleware"
	"campusbilling_go/models"
	"campusbilling_go/services"
	"campusbilling_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// PaymentsImportController ingests bank statement exports (CSV or XLSX) and
// records each row as a payment against the matching billing cycle.
type PaymentsImportController struct {
	billing *services.BillingService
}

func NewPaymentsImportController() *PaymentsImportController {
	return &PaymentsImportController{billing: services.NewBillingService(database.GetDB())}
}

// Import handles POST /api/import/payments with a multipart "file" field.
// Expected columns: Student ID, Month, Year, Cash Paid, Online Paid,
// Bank Account Ref, Payment Date. Rows get a deterministic receipt number
// derived from their content, so re-importing a file only yields duplicates,
// never double payments.
func (pc *PaymentsImportController) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if !utils.IsValidFileExtension(fh.Filename, []string{"csv", "xlsx"}) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type (csv,xlsx)"})
	}

	var rows [][]string
	if strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open file"})
		}
		defer f.Close()
		rows, err = readCSVRows(f)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	} else {
		tmpDir, _ := os.MkdirTemp("", "cb-payments-")
		tmp := filepath.Join(tmpDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), utils.SanitizeString(fh.Filename)))
		if err := c.SaveFile(fh, tmp); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to buffer upload"})
		}
		var rerr error
		rows, rerr = readXLSXRows(tmp)
		_ = os.Remove(tmp)
		if rerr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": rerr.Error()})
		}
	}

	if len(rows) < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file has no data rows"})
	}

	col := mapHeaderIndexes(rows[0])
	for _, required := range []string{"Student ID", "Month", "Year"} {
		if _, ok := col[required]; !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing column: " + required})
		}
	}

	receivedBy := "Import"
	if user, err := middleware.GetCurrentUser(c); err == nil {
		receivedBy = "Import-" + user.Username
	}

	inserted, skipped, duplicates := 0, 0, 0
	var errorsList []string

	for i := 1; i < len(rows); i++ {
		r := rows[i]
		get := func(key string) string {
			if idx, ok := col[key]; ok && idx < len(r) {
				return strings.TrimSpace(r[idx])
			}
			return ""
		}

		studentID, err := strconv.ParseUint(get("Student ID"), 10, 32)
		if err != nil || studentID == 0 {
			errorsList = append(errorsList, fmt.Sprintf("row %d: invalid student id", i+1))
			continue
		}
		month, _ := strconv.Atoi(get("Month"))
		year, _ := strconv.Atoi(get("Year"))
		if month < 1 || month > 12 || year < 2000 {
			errorsList = append(errorsList, fmt.Sprintf("row %d: invalid month/year", i+1))
			continue
		}

		cash := parseDecimal(get("Cash Paid"))
		online := parseDecimal(get("Online Paid"))
		if cash.Add(online).LessThanOrEqual(decimal.Zero) {
			skipped++
			continue
		}

		var master models.BillingMaster
		if err := database.DB.Where("student_id = ? AND for_month = ? AND for_year = ?",
			studentID, month, year).First(&master).Error; err != nil {
			errorsList = append(errorsList, fmt.Sprintf("row %d: no billing cycle for student %d %d/%d", i+1, studentID, month, year))
			continue
		}

		receipt := importReceiptNumber(uint(studentID), month, year, cash, online, get("Bank Account Ref"), get("Payment Date"))
		var existing int64
		database.DB.Model(&models.BillingTransaction{}).
			Where("receipt_number = ?", receipt).Count(&existing)
		if existing > 0 {
			duplicates++
			continue
		}

		if _, err := pc.billing.RecordPayment(master.ID, services.PaymentParams{
			CashPaid:       cash,
			OnlinePaid:     online,
			BankAccountRef: get("Bank Account Ref"),
			ReceivedBy:     receivedBy,
			ReceiptNumber:  receipt,
		}); err != nil {
			if strings.Contains(err.Error(), "Duplicate entry") || strings.Contains(err.Error(), "UNIQUE constraint failed") {
				duplicates++
				continue
			}
			errorsList = append(errorsList, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		inserted++
	}

	middleware.LogActivity(c, "CREATE", "payments_import", 0, fiber.Map{
		"file_name":  fh.Filename,
		"inserted":   inserted,
		"duplicates": duplicates,
		"errors":     len(errorsList),
	})

	return c.JSON(fiber.Map{
		"success":      true,
		"file_name":    fh.Filename,
		"data_rows":    len(rows) - 1,
		"inserted":     inserted,
		"skipped":      skipped,
		"duplicates":   duplicates,
		"errors_count": len(errorsList),
		"errors":       errorsList,
	})
}

// importReceiptNumber derives a stable receipt number from the row's key
// fields; identical rows across imports collide on purpose.
func importReceiptNumber(studentID uint, month, year int, cash, online decimal.Decimal, bankRef, dateStr string) string {
	key := strings.Join([]string{
		strconv.FormatUint(uint64(studentID), 10),
		strconv.Itoa(month),
		strconv.Itoa(year),
		cash.String(),
		online.String(),
		bankRef,
		dateStr,
	}, "|")
	var sum uint32
	for i := 0; i < len(key); i++ {
		sum = sum*16777619 ^ uint32(key[i])
	}
	return fmt.Sprintf("IMP-%d%02d-%d-%08x", year, month, studentID, sum)
}

func readCSVRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		sheet = "Sheet1"
	}
	return f.GetRows(sheet)
}

func mapHeaderIndexes(header []string) map[string]int {
	m := map[string]int{}
	for i, h := range header {
		m[strings.TrimSpace(h)] = i
	}
	return m
}

// parseDecimal tolerates thousand separators and currency noise; anything
// unparseable is zero.
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDate accepts the date layouts seen in bank exports.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{"2006-01-02", "02/01/2006", "01/02/2006", "2006/01/02", "2 Jan 2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
