package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-registration/internal/sentinel"
)

func TestParseReconcileCSV(t *testing.T) {
	csvBody := "applicant_id,name,course,date,confirmed\n" +
		"101,Applicant A,Beginner,2026-10-03,1\n" +
		"102,Applicant B,,2026/10/04,○\n" +
		"103,Applicant C,Advanced,2026年10月05日,no\n"

	rows, err := parseReconcileCSV(strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "101", rows[0].ApplicantRef)
	assert.Equal(t, "Beginner", rows[0].CourseName)
	assert.True(t, rows[0].Confirm)

	assert.True(t, rows[1].Confirm, "circle mark counts as confirmed")
	assert.False(t, rows[2].Confirm)
}

func TestParseReconcileCSVBOMAndCaseHeader(t *testing.T) {
	csvBody := "\ufeffApplicant_ID,Name,Course,Date,Confirmed\n" +
		"101,Applicant A,,2026-10-03,true\n"

	rows, err := parseReconcileCSV(strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Confirm)
}

func TestParseReconcileCSVRaggedRow(t *testing.T) {
	csvBody := "applicant_id,name,course,date,confirmed\n" +
		"101,Applicant A\n"

	rows, err := parseReconcileCSV(strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].DateText)
	assert.False(t, rows[0].Confirm)
}

func TestParseReconcileCSVWrongHeader(t *testing.T) {
	csvBody := "id,who,course,date,flag\n101,A,,2026-10-03,1\n"
	_, err := parseReconcileCSV(strings.NewReader(csvBody))
	assert.ErrorIs(t, err, sentinel.ErrMalformedBatch)
}

func TestParseReconcileCSVNoDataRows(t *testing.T) {
	_, err := parseReconcileCSV(strings.NewReader("applicant_id,name,course,date,confirmed\n"))
	assert.ErrorIs(t, err, sentinel.ErrMalformedBatch)
}

func TestTruthyFlag(t *testing.T) {
	for _, yes := range []string{"1", "true", "TRUE", "yes", "Y", "○", "◯", "〇", " 1 "} {
		assert.True(t, truthyFlag(yes), yes)
	}
	for _, no := range []string{"", "0", "false", "no", "-", "x"} {
		assert.False(t, truthyFlag(no), no)
	}
}
