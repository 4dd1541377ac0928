package sheetsclient

import (
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// PublishedSchedule is the tabular form of a schedule written to its own tab
type PublishedSchedule struct {
	// Title is the tab title, normally the period key (e.g. "2025-08")
	Title  string
	Header []string
	Rows   [][]string
}

// PublishSchedule publishes a schedule to Google Sheets.
// If the tab doesn't exist it is created, otherwise its contents are cleared and overwritten.
func (c *Client) PublishSchedule(spreadsheetID string, published *PublishedSchedule) error {
	if published.Title == "" {
		return fmt.Errorf("published schedule has no title")
	}

	exists, err := c.tabExists(spreadsheetID, published.Title)
	if err != nil {
		return err
	}

	if !exists {
		if _, err := c.CreateSheet(spreadsheetID, published.Title); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	} else {
		_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, published.Title, &sheets.ClearValuesRequest{}).Do()
		if err != nil {
			return fmt.Errorf("failed to clear existing tab: %w", err)
		}
	}

	valueRange := &sheets.ValueRange{
		Values: toSheetValues(published),
	}

	_, err = c.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("%s!A1", published.Title),
		valueRange,
	).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to write schedule to tab: %w", err)
	}

	return nil
}

// toSheetValues converts the header and rows into the API value format.
// Short rows are padded so every row is as wide as the header.
func toSheetValues(published *PublishedSchedule) [][]interface{} {
	width := len(published.Header)
	for _, row := range published.Rows {
		width = max(width, len(row))
	}

	values := make([][]interface{}, 0, len(published.Rows)+1)
	values = append(values, padRow(published.Header, width))
	for _, row := range published.Rows {
		values = append(values, padRow(row, width))
	}
	return values
}

func padRow(row []string, width int) []interface{} {
	out := make([]interface{}, width)
	for i := range out {
		if i < len(row) {
			out[i] = row[i]
		} else {
			out[i] = ""
		}
	}
	return out
}
