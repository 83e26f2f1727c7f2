package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	table := Table{Headers: []string{"class_group", "day", "subject"}}
	table.Append("F2N", "Mon", "Math")
	table.Append("F2S", "Tue")

	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)
	assert.Equal(t, "class_group,day,subject\nF2N,Mon,Math\nF2S,Tue,\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	require.Error(t, err)
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	table := Table{Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}}
	_, err := NewCSVExporter().Render(table)
	require.Error(t, err)
}

func TestCSVExporterCSVFile(t *testing.T) {
	table := Table{Headers: []string{"a"}}
	table.Append("1")

	file, err := NewCSVExporter().CSVFile(table, "timetable-normal")
	require.NoError(t, err)
	assert.Equal(t, "timetable-normal.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "a\n1\n", string(file.Body))
}
