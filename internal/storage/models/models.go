package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"candidate-parser-go/internal/types"
)

// CandidateProfile 候选人档案主表
// 一行对应一个candidate_id；同一候选人的新文件到达时整行覆盖更新
type CandidateProfile struct {
	CandidateID    string         `gorm:"type:char(8);primaryKey"`
	Name           string         `gorm:"type:varchar(255);index:idx_cp_name"`
	Designation    string         `gorm:"type:varchar(255)"`
	Email          string         `gorm:"type:varchar(255);index:idx_cp_email"`
	Phone          string         `gorm:"type:varchar(50)"`
	DOB            string         `gorm:"type:varchar(50);column:dob"`
	Gender         string         `gorm:"type:varchar(10)"`
	Nationality    string         `gorm:"type:varchar(100)"`
	PANNumber      string         `gorm:"type:varchar(20);column:pan_number"`
	UANNumber      string         `gorm:"type:varchar(20);column:uan_number"`
	PassportNumber string         `gorm:"type:varchar(20)"`
	ValidFrom      string         `gorm:"type:varchar(50)"`
	ValidTo        string         `gorm:"type:varchar(50)"`
	EducationJSON  datatypes.JSON `gorm:"type:json;column:education_json"`
	ExperienceJSON datatypes.JSON `gorm:"type:json;column:experience_json"`
	CurrentAddress string         `gorm:"type:text"`
	PermanentAddr  string         `gorm:"type:text;column:permanent_address"`
	SourceFile     string         `gorm:"type:varchar(512)"`
	ParserVersion  string         `gorm:"type:varchar(50)"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CandidateProfile) TableName() string {
	return "candidate_profiles"
}

// FromRecord 用解析结果填充档案行
func (p *CandidateProfile) FromRecord(rec *types.CandidateRecord, sourceFile, parserVersion string) error {
	p.CandidateID = rec.Identity.CandidateID
	p.Name = rec.Identity.Name
	p.Designation = rec.Identity.Designation
	p.Email = rec.Identity.Email
	p.Phone = rec.Identity.Phone
	p.DOB = rec.Identity.DOB
	p.Gender = rec.Identity.Gender
	p.Nationality = rec.Identity.Nationality
	p.PANNumber = rec.Documents.PANNumber
	p.UANNumber = rec.Documents.UANNumber
	p.PassportNumber = rec.Documents.PassportNumber
	p.ValidFrom = rec.Documents.ValidFrom
	p.ValidTo = rec.Documents.ValidTo
	p.CurrentAddress = rec.Addresses.Current
	p.PermanentAddr = rec.Addresses.Permanent
	p.SourceFile = sourceFile
	p.ParserVersion = parserVersion

	eduJSON, err := json.Marshal(rec.Education)
	if err != nil {
		return err
	}
	p.EducationJSON = datatypes.JSON(eduJSON)

	expJSON, err := json.Marshal(rec.Experience)
	if err != nil {
		return err
	}
	p.ExperienceJSON = datatypes.JSON(expJSON)
	return nil
}

// ToRecord 将档案行还原为领域记录
func (p *CandidateProfile) ToRecord() *types.CandidateRecord {
	rec := types.NewCandidateRecord()
	rec.Identity = types.Identity{
		CandidateID: p.CandidateID,
		Name:        p.Name,
		Designation: p.Designation,
		Email:       p.Email,
		Phone:       p.Phone,
		DOB:         p.DOB,
		Gender:      p.Gender,
		Nationality: p.Nationality,
	}
	rec.Documents = types.DocumentIDs{
		PANNumber:      p.PANNumber,
		UANNumber:      p.UANNumber,
		PassportNumber: p.PassportNumber,
		ValidFrom:      p.ValidFrom,
		ValidTo:        p.ValidTo,
	}
	rec.Addresses = types.Addresses{
		Current:   p.CurrentAddress,
		Permanent: p.PermanentAddr,
	}
	if len(p.EducationJSON) > 0 {
		_ = json.Unmarshal(p.EducationJSON, &rec.Education)
	}
	if len(p.ExperienceJSON) > 0 {
		_ = json.Unmarshal(p.ExperienceJSON, &rec.Experience)
	}
	return rec
}

// IngestSubmission 文件摄入记录表
// 每个到达的文件产生一行快照，记录来源、对象路径和处理状态
type IngestSubmission struct {
	SubmissionUUID      string    `gorm:"type:char(36);primaryKey"`
	CandidateID         *string   `gorm:"type:char(8);index:idx_is_candidate_id"`
	SubmissionTimestamp time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_is_submission_timestamp"`
	SourceChannel       string    `gorm:"type:varchar(50);index:idx_is_source_channel"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	OriginalObjectKey   string    `gorm:"type:varchar(1024)"`
	RecordObjectKey     string    `gorm:"type:varchar(1024)"`
	RawFileMD5          string    `gorm:"type:char(32);index:idx_is_raw_file_md5"`
	ProcessingStatus    string    `gorm:"type:varchar(50);default:'PENDING_PARSING';index:idx_is_processing_status"`
	ParserVersion       string    `gorm:"type:varchar(50)"`
	ErrorMessage        string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *CandidateProfile `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (IngestSubmission) TableName() string {
	return "ingest_submissions"
}
