package service

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/school-points-api/internal/dto"
)

const weeklySheetName = "Weekly Report"

var weeklyFixedHeaders = []string{"Student ID", "English Name", "Chinese Name", "Grade"}

func renderWeeklyWorkbook(friday time.Time, rows []dto.WeeklyReportStudent) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(weeklySheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	categories := reportCategories(rows)
	lastCol := len(weeklyFixedHeaders) + len(categories) + 1

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Week %d: %s", WeekNumber(friday), FormatWeekRange(friday))
	if err := f.SetCellValue(weeklySheetName, "A1", title); err != nil {
		return nil, err
	}
	lastName, err := excelize.ColumnNumberToName(lastCol)
	if err != nil {
		return nil, err
	}
	if err := f.MergeCell(weeklySheetName, "A1", lastName+"1"); err != nil {
		return nil, err
	}

	headers := append(append(append([]string{}, weeklyFixedHeaders...), categories...), "Total")
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(weeklySheetName, cell, header); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(weeklySheetName, "A2", lastName+"2", headerStyle); err != nil {
		return nil, err
	}

	for r, row := range rows {
		values := []interface{}{row.StudentCode, row.EnglishName, row.ChineseName, row.Grade}
		for _, category := range categories {
			values = append(values, row.PointsByCategory[category])
		}
		values = append(values, row.TotalPoints)

		cell, err := excelize.CoordinatesToCellName(1, r+3)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(weeklySheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(weeklySheetName, "A", "A", 14)
	_ = f.SetColWidth(weeklySheetName, "B", "C", 22)
	_ = f.SetColWidth(weeklySheetName, "D", "D", 8)
	if len(categories) > 0 {
		first, _ := excelize.ColumnNumberToName(len(weeklyFixedHeaders) + 1)
		_ = f.SetColWidth(weeklySheetName, first, lastName, 16)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reportCategories(rows []dto.WeeklyReportStudent) []string {
	seen := map[string]struct{}{}
	categories := make([]string, 0)
	for _, row := range rows {
		for category := range row.PointsByCategory {
			if _, ok := seen[category]; ok {
				continue
			}
			seen[category] = struct{}{}
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)
	return categories
}
