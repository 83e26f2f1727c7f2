package export

// File is a rendered export ready to be streamed.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// CSVFile renders the table as a CSV file named baseName.csv.
func (e *CSVExporter) CSVFile(table Table, baseName string) (*File, error) {
	body, err := e.Render(table)
	if err != nil {
		return nil, err
	}
	return &File{Name: baseName + ".csv", ContentType: "text/csv", Body: body}, nil
}
