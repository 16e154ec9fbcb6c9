package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

// xlsxText renders each sheet as tab separated rows. Sheets are separated
// by a blank line.
func xlsxText(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: xlsx: %w", appErr.ErrUnsupportedContent, err)
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("%w: xlsx sheet %s: %w", appErr.ErrUnsupportedContent, name, err)
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, "\t"))
		}
		if text := strings.TrimSpace(strings.Join(lines, "\n")); text != "" {
			sheets = append(sheets, text)
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}
