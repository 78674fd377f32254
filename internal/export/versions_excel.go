// Package export 把用户可访问的版本导出为 Excel
package export

import (
	"fmt"

	"rcc-core/internal/domain"

	"github.com/xuri/excelize/v2"
)

// VersionSheetName 导出工作表名称
const VersionSheetName = "Versions"

// VersionNodesHeader 导出表头
var VersionNodesHeader = []string{
	"Version ID",
	"Version Name",
	"Environment ID",
	"Environment Name",
	"Project ID",
	"Project Name",
	"Product ID",
	"Product Name",
}

var versionColumnWidths = []float64{12, 24, 15, 20, 12, 20, 12, 20}

// VersionNodesWorkbook 生成版本列表 xlsx；nodes 为空时只有表头
func VersionNodesWorkbook(nodes []*domain.VersionNode) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(VersionSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, 0, len(VersionNodesHeader))
	for _, h := range VersionNodesHeader {
		header = append(header, h)
	}
	if err := f.SetSheetRow(VersionSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(VersionNodesHeader))
	if err != nil {
		return nil, fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetCellStyle(VersionSheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range versionColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(VersionSheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, n := range nodes {
		cell, err := excelize.CoordinatesToCellName(1, i+2) // 第1行是表头
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := []any{
			n.VersionID, n.VersionName,
			n.EnvironmentID, n.EnvironmentName,
			n.ProjectID, n.ProjectName,
			n.ProductID, n.ProductName,
		}
		if err := f.SetSheetRow(VersionSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
