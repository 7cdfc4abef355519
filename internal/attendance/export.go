package attendance

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var exportHeader = []string{
	"id", "childId", "childName", "className", "teacherId", "teacherName",
	"pickerId", "pickerName", "action", "timestamp", "date",
}

// Export is a named set of records ready to be written as a file.
type Export struct {
	Name     string
	Records  []Record
	Location *time.Location
}

// CSVFilename is the attachment name for the CSV rendition.
func (e Export) CSVFilename() string { return e.Name + ".csv" }

// XLSXFilename is the attachment name for the spreadsheet rendition.
func (e Export) XLSXFilename() string { return e.Name + ".xlsx" }

func (e Export) rows() [][]string {
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	out := make([][]string, 0, len(e.Records))
	for _, r := range e.Records {
		out = append(out, []string{
			strconv.FormatInt(r.ID, 10),
			optInt(r.ChildID),
			r.ChildName,
			r.ClassName,
			optInt(r.TeacherID),
			r.TeacherName,
			optInt(r.PickerID),
			r.PickerName,
			r.Action,
			r.Timestamp.In(loc).Format(exportTimeLayout),
			r.Date,
		})
	}
	return out
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// WriteCSV writes a header line followed by one line per record. Every field
// is quoted and embedded quotes are doubled.
func (e Export) WriteCSV(w io.Writer) error {
	lines := make([]string, 0, len(e.Records)+1)
	lines = append(lines, csvLine(exportHeader))
	for _, row := range e.rows() {
		lines = append(lines, csvLine(row))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\r\n"))
	return err
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

// WriteXLSX writes the same rows into a single "Departures" sheet.
func (e Export) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Departures"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}
	if err := write(1, exportHeader); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, row := range e.rows() {
		if err := write(i+2, row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("xlsx panes: %w", err)
	}
	return f.Write(w)
}
