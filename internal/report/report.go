// Package report appends completed-call summaries to an Excel ledger.
// The ledger is an audit artifact, not a state store: nothing reads it
// back at runtime.
package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SwarajMP/Bankbot/internal/call"
	"github.com/SwarajMP/Bankbot/internal/logger"
)

const sheetName = "Calls"

var header = []any{
	"started_at", "room", "phone", "duration_s",
	"interactions", "interested", "payment_amount", "payment_confirmed",
}

// Writer appends one row per completed call to an .xlsx workbook,
// creating it with a header row on first use.
type Writer struct {
	mu   sync.Mutex
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Append adds one summary row and saves the workbook.
func (w *Writer) Append(s call.Summary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("reading ledger rows: %w", err)
	}

	cell := fmt.Sprintf("A%d", len(rows)+1)
	row := []any{
		s.StartedAt.Format(time.RFC3339),
		s.Room,
		logger.Sanitize(s.PhoneNumber),
		s.Duration.Seconds(),
		s.Interactions,
		s.Interested,
		s.PaymentAmount,
		s.PaymentConfirmed,
	}
	if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
		return fmt.Errorf("writing ledger row: %w", err)
	}

	if created {
		if err := f.SaveAs(w.path); err != nil {
			return fmt.Errorf("creating ledger: %w", err)
		}
		return nil
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}

func (w *Writer) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, false, fmt.Errorf("naming ledger sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, false, fmt.Errorf("writing ledger header: %w", err)
	}
	return f, true, nil
}
