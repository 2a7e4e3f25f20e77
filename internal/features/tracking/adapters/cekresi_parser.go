package adapter

import (
	"strings"

	"resi-tracker/internal/core/logger"
	"resi-tracker/internal/features/tracking/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	resultsSelector      = "#results"
	successAlertSelector = ".alert-success"
	warningAlertSelector = ".alert-warning"
	historyTableSelector = "#collapseTwo table"
)

// CekResiParser extracts the tracking history from a rendered cekresi.com result page.
type CekResiParser struct {
	logger *zap.Logger
}

// NewCekResiParser creates a new CekResiParser.
func NewCekResiParser() *CekResiParser {
	return &CekResiParser{
		logger: logger.Get(),
	}
}

// Parse classifies the page by its status banner and, on success, reads the history table.
// A success banner wins over a warning banner; with neither the waybill is reported as not found.
func (p *CekResiParser) Parse(markup string) domain.Outcome {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		p.logger.Warn("Failed to parse result page", zap.Error(err))
		return domain.Failed(domain.ReasonParseError)
	}

	results := doc.Find(resultsSelector).First()
	if results.Length() == 0 {
		p.logger.Warn("Result container missing from page")
		return domain.Failed(domain.ReasonParseError)
	}

	success := results.Find(successAlertSelector).First()
	if success.Length() == 0 {
		warning := results.Find(warningAlertSelector).First()
		if warning.Length() > 0 {
			return domain.Failed(collapseSpace(warning.Text()))
		}
		return domain.Failed(domain.ReasonNotFound)
	}

	p.logger.Debug("Success banner found", zap.String("banner", collapseSpace(success.Text())))

	// The site can show a success banner with no detail table; that is a parse failure.
	table := results.Find(historyTableSelector).First()
	if table.Length() == 0 {
		return domain.Failed(domain.ReasonParseError)
	}

	history := tableRows(table)
	if len(history) == 0 {
		return domain.Failed(domain.ReasonParseError)
	}

	return domain.Succeeded(history)
}

// tableRows returns the cell texts of the rows that belong to table itself, skipping any
// nested tables.
func tableRows(table *goquery.Selection) domain.HistoryTable {
	var rows domain.HistoryTable

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}

		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapseSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})

	return rows
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
