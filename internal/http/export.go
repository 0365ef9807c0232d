package httpapi

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"wardshift/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ChecklistExportHeader 清单导出表头
var ChecklistExportHeader = []string{
	"Order",
	"Description",
	"Completed",
	"Completed By",
	"Completed At",
}

// BuildHandoverWorkbook 生成交接班报表 Excel 文件
// Renders the current state whether or not the handover is finalized.
func BuildHandoverWorkbook(h *domain.Handover) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Shift Handover"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 基本信息块
	info := [][2]string{
		{"Hospital", h.Hospital},
		{"Service", h.Service},
		{"Shift", h.ShiftType},
		{"Date", h.ShiftDate.Format("2006-01-02")},
		{"Status", h.Status},
		{"Start Time", h.StartTime.UTC().Format(time.RFC3339)},
	}
	if h.EndTime != nil {
		info = append(info, [2]string{"End Time", h.EndTime.UTC().Format(time.RFC3339)})
	}
	info = append(info,
		[2]string{"Patients", fmt.Sprintf("%d (%s)", len(h.PatientIDs), strings.Join(h.PatientIDs, ", "))},
		[2]string{"Tasks", fmt.Sprintf("%d (%s)", len(h.TaskIDs), strings.Join(h.TaskIDs, ", "))},
	)
	if h.Notes != "" {
		info = append(info, [2]string{"Notes", h.Notes})
	}
	if h.Summary != nil {
		info = append(info, [2]string{"Summary", *h.Summary})
	}

	row := 1
	for _, kv := range info {
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(sheetName, keyCell, kv[0]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set info cell %s: %w", keyCell, err)
		}
		if err := f.SetCellStyle(sheetName, keyCell, keyCell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style info cell %s: %w", keyCell, err)
		}
		if err := f.SetCellValue(sheetName, valCell, kv[1]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set info value %s: %w", valCell, err)
		}
		row++
	}

	// 空行 + 清单表头
	row++
	for col, header := range ChecklistExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	row++

	// 清单行（已经按 sort_order 排序）
	for _, item := range h.Checklist {
		completed := "No"
		if item.IsCompleted {
			completed = "Yes"
		}
		completedAt := ""
		if item.CompletedAt != nil {
			completedAt = item.CompletedAt.UTC().Format(time.RFC3339)
		}
		values := []any{item.SortOrder, item.Description, completed, item.CompletedBy, completedAt}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set checklist cell %s: %w", cell, err)
			}
		}
		row++
	}

	// 列宽
	widths := []float64{10, 50, 12, 24, 24}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
