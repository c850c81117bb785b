// Package export renders a spot's bookings as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"spotbook/pkg/interval"
	"spotbook/pkg/model"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Bookings"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	publicHeaders = []string{"Start date", "End date", "Nights"}
	ownerHeaders  = []string{"Reservation", "Renter", "Created at"}
)

// Workbook lays out one row per booking in insertion order. Renter columns
// are only added when the views carry them, i.e. for the spot owner.
func Workbook(spotID string, views []model.BookingView) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("error naming sheet: %w", err)
	}

	if err := f.SetCellValue(SheetName, "A1", "Spot "+spotID); err != nil {
		return nil, err
	}

	headers := publicHeaders
	detailed := hasDetail(views)
	if detailed {
		headers = append(append([]string{}, publicHeaders...), ownerHeaders...)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %w", err)
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, 2)
	last, _ := excelize.CoordinatesToCellName(len(headers), 2)
	if err := f.SetCellStyle(SheetName, first, last, headerStyle); err != nil {
		return nil, err
	}

	for i, v := range views {
		row := []any{
			v.StartDate.String(),
			v.EndDate.String(),
			interval.Range{Start: v.StartDate, End: v.EndDate}.Nights(),
		}
		if detailed {
			row = append(row, v.ID, renterName(v.User), createdAt(v.CreatedAt))
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("error writing row %d: %w", i+1, err)
		}
	}

	return f, nil
}

// Write renders the workbook straight to w.
func Write(w io.Writer, spotID string, views []model.BookingView) error {
	f, err := Workbook(spotID, views)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func hasDetail(views []model.BookingView) bool {
	for _, v := range views {
		if v.ID != "" {
			return true
		}
	}
	return false
}

func renterName(r *model.Renter) string {
	if r == nil {
		return ""
	}
	return r.FirstName + " " + r.LastName
}

func createdAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
