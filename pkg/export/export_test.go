package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shopfloor/internal/model"
)

func stopTable() model.StopTimeTable {
	return model.StopTimeTable{
		{Reason: "FAULT", Duration: model.NewDuration(7200)},
		{Reason: "SETUP", Duration: model.NewDuration(90.5)},
	}
}

func TestSheetName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Stop Time Sum", "Stop Time Sum"},
		{"CNC/Lathe [A]", "CNC_Lathe _A_"},
		{"  ", "Sheet"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
		{"a:b*c?d\\e", "a_b_c_d_e"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, SheetName(tc.in))
		})
	}
}

func TestUniqueName(t *testing.T) {
	used := map[string]int{}
	assert.Equal(t, "CNC", uniqueName("CNC", used))
	assert.Equal(t, "cnc (2)", uniqueName("cnc", used), "names are compared case insensitively")
	assert.Equal(t, "CNC (3)", uniqueName("CNC", used))

	long := strings.Repeat("y", 31)
	assert.Equal(t, long, uniqueName(long, used))
	got := uniqueName(long, used)
	assert.Len(t, got, 31)
	assert.True(t, strings.HasSuffix(got, " (2)"))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Summary.xlsx")
	sections := model.SectionTable{{Section: "CNC", Duration: model.NewDuration(600.25)}}

	err := WriteXLSX(path, []Sheet{
		{Name: "Stop Time Sum", Table: stopTable()},
		{Name: "Stop Time Sum", Table: sections},
		{Name: "Empty", Table: model.MachineTable{}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Stop Time Sum", "Stop Time Sum (2)", "Empty"}, f.GetSheetList())

	rows, err := f.GetRows("Stop Time Sum")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Stoppage Name", "Duration (Seconds)", "Duration (Minutes)"}, rows[0])
	assert.Equal(t, []string{"FAULT", "7200", "120"}, rows[1])
	assert.Equal(t, []string{"SETUP", "90.5", "1"}, rows[2])

	cellType, err := f.GetCellType("Stop Time Sum", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType, "numbers are not written as text")

	rows, err = f.GetRows("Empty")
	require.NoError(t, err)
	require.Len(t, rows, 1, "empty tables still get a header")
}

func TestWriteXLSX_NoSheets(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"), nil)
	assert.ErrorIs(t, err, ErrNoSheets)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "General", "Stop Time Sum.csv")
	require.NoError(t, WriteCSV(path, stopTable()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Stoppage Name", "Duration (Seconds)", "Duration (Minutes)"},
		{"FAULT", "7200", "120"},
		{"SETUP", "90.5", "1"},
	}, records)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 12.5, cellValue("12.5"))
	assert.Equal(t, "CT.D01", cellValue("CT.D01"))
	assert.Equal(t, "NaN", cellValue("NaN"))
	assert.Equal(t, "Inf", cellValue("Inf"))
}
