package integrations

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/types"
)

const excelSheetName = "Candidates"

// ExcelWorkbook 本地Excel工作簿出口
// Sheets不可用时的降级出口，每次追加都整体读写工作簿文件
type ExcelWorkbook struct {
	path string
	mu   sync.Mutex
}

// NewExcelWorkbook 创建本地工作簿出口
func NewExcelWorkbook(cfg *config.ExcelConfig) *ExcelWorkbook {
	path := cfg.OutputPath
	if path == "" {
		path = "candidates.xlsx"
	}
	return &ExcelWorkbook{path: path}
}

// AppendCandidateRow 将候选人档案追加到工作簿
// 工作簿不存在时先创建并写入表头
func (w *ExcelWorkbook) AppendCandidateRow(rec *types.CandidateRecord, sourceFile string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, created, err := w.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(excelSheetName)
	if err != nil {
		return fmt.Errorf("读取工作表失败: %w", err)
	}
	nextRow := len(rows) + 1

	values := CandidateRowValues(rec, sourceFile, time.Now())
	cell, err := excelize.CoordinatesToCellName(1, nextRow)
	if err != nil {
		return fmt.Errorf("计算单元格坐标失败: %w", err)
	}
	if err := f.SetSheetRow(excelSheetName, cell, &values); err != nil {
		return fmt.Errorf("写入行失败: %w", err)
	}

	if created {
		if err := f.SaveAs(w.path); err != nil {
			return fmt.Errorf("保存工作簿失败: %w", err)
		}
		return nil
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("保存工作簿失败: %w", err)
	}
	return nil
}

// openOrCreate 打开已有工作簿，不存在时创建并写入表头
func (w *ExcelWorkbook) openOrCreate() (*excelize.File, bool, error) {
	if _, err := os.Stat(w.path); err == nil {
		f, openErr := excelize.OpenFile(w.path)
		if openErr != nil {
			return nil, false, fmt.Errorf("打开工作簿失败: %w", openErr)
		}
		return f, false, nil
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", excelSheetName)

	headers := make([]interface{}, len(candidateRowHeaders))
	for i, h := range candidateRowHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(excelSheetName, "A1", &headers); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("写入表头失败: %w", err)
	}
	return f, true, nil
}

// Path 返回工作簿文件路径
func (w *ExcelWorkbook) Path() string {
	return w.path
}
