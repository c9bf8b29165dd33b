package integrations

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/types"
)

func TestExcelWorkbook_AppendCandidateRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.xlsx")
	wb := NewExcelWorkbook(&config.ExcelConfig{OutputPath: path})

	rec := types.NewCandidateRecord()
	rec.Identity.CandidateID = "AB12CD34"
	rec.Identity.Name = "Rahul Sharma"
	rec.Identity.Email = "rahul@example.com"
	rec.Documents.PANNumber = "ABCDE1234F"
	rec.Education = []types.EducationEntry{
		{Degree: "B.Tech", Institution: "IIT Delhi", Year: "2018"},
	}

	require.NoError(t, wb.AppendCandidateRow(rec, "resume.pdf"), "首次追加应创建工作簿")

	rec2 := types.NewCandidateRecord()
	rec2.Identity.CandidateID = "EF56AB78"
	rec2.Identity.Name = "Priya Patel"
	require.NoError(t, wb.AppendCandidateRow(rec2, "resume2.docx"), "第二次追加应复用已有工作簿")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(excelSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3, "应包含表头和两条数据行")

	assert.Equal(t, "Candidate ID", rows[0][0])
	assert.Equal(t, "Delivered At", rows[0][len(candidateRowHeaders)-1])

	assert.Equal(t, "AB12CD34", rows[1][0])
	assert.Equal(t, "Rahul Sharma", rows[1][1])
	assert.Equal(t, "ABCDE1234F", rows[1][8])
	assert.Contains(t, rows[1][13], "IIT Delhi", "education列应为JSON编码")
	assert.Equal(t, "resume.pdf", rows[1][17])

	assert.Equal(t, "EF56AB78", rows[2][0])
	assert.Equal(t, "resume2.docx", rows[2][17])
}

func TestCandidateRowValues_ColumnLayout(t *testing.T) {
	rec := types.NewCandidateRecord()
	rec.Identity.CandidateID = "AB12CD34"
	rec.Identity.Nationality = "Indian"
	rec.Addresses.Current = "12 MG Road, Bangalore"
	rec.Addresses.Permanent = "45 Park Street, Kolkata"

	deliveredAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	values := CandidateRowValues(rec, "resume.pdf", deliveredAt)

	require.Len(t, values, len(candidateRowHeaders), "行的列数应与表头一致")
	assert.Equal(t, "AB12CD34", values[0])
	assert.Equal(t, "Indian", values[7])
	assert.Equal(t, "[]", values[13], "空education应编码为[]而非null")
	assert.Equal(t, "[]", values[14])
	assert.Equal(t, "12 MG Road, Bangalore", values[15])
	assert.Equal(t, "45 Park Street, Kolkata", values[16])
	assert.Equal(t, "resume.pdf", values[17])
	assert.Equal(t, "2026-03-14T10:30:00Z", values[18])
}
