// Package integrations 封装外部投递出口和文件来源：
// Google Sheets、Google Drive、管理门户和本地Excel工作簿
package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/types"
)

// 两个表格出口共用的表头，列顺序与CandidateRowValues一致
var candidateRowHeaders = []string{
	"Candidate ID", "Name", "Designation", "Email", "Phone", "DOB", "Gender", "Nationality",
	"PAN Number", "UAN Number", "Passport Number", "Valid From", "Valid To",
	"Education", "Experience", "Current Address", "Permanent Address",
	"Source File", "Delivered At",
}

// SheetsClient 向Google Sheets追加候选人行
type SheetsClient struct {
	service   *sheets.Service
	sheetID   string
	sheetName string

	headerMu   sync.Mutex
	headerDone bool
}

// NewSheetsClient 使用服务账号凭据创建Sheets客户端
func NewSheetsClient(ctx context.Context, cfg *config.SheetsConfig) (*SheetsClient, error) {
	if cfg.SheetID == "" {
		return nil, fmt.Errorf("sheet_id不能为空")
	}

	credBytes, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("读取服务账号凭据失败: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credBytes, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("解析服务账号凭据失败: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("创建Sheets服务失败: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	return &SheetsClient{
		service:   srv,
		sheetID:   cfg.SheetID,
		sheetName: sheetName,
	}, nil
}

// CandidateRowValues 将候选人档案展开成表格的一行
// 列顺序固定：identity 8列、documents 5列、education/experience各1列JSON、
// addresses 2列、来源文件、投递时间，共19列
func CandidateRowValues(rec *types.CandidateRecord, sourceFile string, deliveredAt time.Time) []interface{} {
	educationJSON, err := json.Marshal(rec.Education)
	if err != nil {
		educationJSON = []byte("[]")
	}
	experienceJSON, err := json.Marshal(rec.Experience)
	if err != nil {
		experienceJSON = []byte("[]")
	}

	return []interface{}{
		rec.Identity.CandidateID,
		rec.Identity.Name,
		rec.Identity.Designation,
		rec.Identity.Email,
		rec.Identity.Phone,
		rec.Identity.DOB,
		rec.Identity.Gender,
		rec.Identity.Nationality,
		rec.Documents.PANNumber,
		rec.Documents.UANNumber,
		rec.Documents.PassportNumber,
		rec.Documents.ValidFrom,
		rec.Documents.ValidTo,
		string(educationJSON),
		string(experienceJSON),
		rec.Addresses.Current,
		rec.Addresses.Permanent,
		sourceFile,
		deliveredAt.Format(time.RFC3339),
	}
}

// ensureHeader 确保表格首行是表头，成功一次后不再检查
// 首行已有内容时视为表头已存在，不做覆盖
func (c *SheetsClient) ensureHeader(ctx context.Context) error {
	c.headerMu.Lock()
	defer c.headerMu.Unlock()
	if c.headerDone {
		return nil
	}

	headerRange := c.sheetName + "!1:1"
	resp, err := c.service.Spreadsheets.Values.
		Get(c.sheetID, headerRange).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("读取表头行失败: %w", err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		headers := make([]interface{}, len(candidateRowHeaders))
		for i, h := range candidateRowHeaders {
			headers[i] = h
		}
		_, err = c.service.Spreadsheets.Values.
			Update(c.sheetID, headerRange, &sheets.ValueRange{Values: [][]interface{}{headers}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("写入表头行失败: %w", err)
		}
	}

	c.headerDone = true
	return nil
}

// AppendCandidateRow 将候选人档案追加为表格的一行
func (c *SheetsClient) AppendCandidateRow(ctx context.Context, rec *types.CandidateRecord, sourceFile string) error {
	if err := c.ensureHeader(ctx); err != nil {
		return err
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{CandidateRowValues(rec, sourceFile, time.Now())},
	}

	_, err := c.service.Spreadsheets.Values.
		Append(c.sheetID, c.sheetName, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("追加Sheets行失败: %w", err)
	}
	return nil
}
