package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-parser-go/internal/types"
)

func TestCandidateProfile_FromRecordToRecord(t *testing.T) {
	rec := types.NewCandidateRecord()
	rec.Identity = types.Identity{
		CandidateID: "AB12CD34",
		Name:        "Rahul Sharma",
		Designation: "Software Engineer",
		Email:       "rahul.sharma@example.com",
		Phone:       "+91 9876543210",
		DOB:         "14/03/1992",
		Gender:      "Male",
		Nationality: "Indian",
	}
	rec.Documents = types.DocumentIDs{
		PANNumber:      "ABCDE1234F",
		PassportNumber: "N1234567",
		ValidFrom:      "01/01/2020",
		ValidTo:        "01/01/2030",
	}
	rec.Education = []types.EducationEntry{
		{Degree: "B.Tech", Institution: "IIT Delhi", Year: "2014"},
	}
	rec.Experience = []types.ExperienceEntry{
		{Company: "Acme Corp", Position: "Engineer", Duration: "2014-2020"},
	}
	rec.Addresses = types.Addresses{Current: "Bangalore", Permanent: "Delhi"}

	profile := &CandidateProfile{}
	require.NoError(t, profile.FromRecord(rec, "resume.pdf", "hybrid-v1"))

	assert.Equal(t, "AB12CD34", profile.CandidateID)
	assert.Equal(t, "resume.pdf", profile.SourceFile)
	assert.Equal(t, "hybrid-v1", profile.ParserVersion)
	assert.Contains(t, string(profile.EducationJSON), "IIT Delhi")

	restored := profile.ToRecord()
	assert.Equal(t, rec.Identity, restored.Identity)
	assert.Equal(t, rec.Documents, restored.Documents)
	assert.Equal(t, rec.Addresses, restored.Addresses)
	require.Len(t, restored.Experience, 1)
	assert.Equal(t, "Acme Corp", restored.Experience[0].Company)
}

func TestCandidateProfile_ToRecordEmptyJSON(t *testing.T) {
	profile := &CandidateProfile{CandidateID: "AB12CD34"}

	restored := profile.ToRecord()
	assert.NotNil(t, restored.Education, "空JSON列应还原为空切片而非nil")
	assert.Empty(t, restored.Education)
	assert.Empty(t, restored.Experience)
}
