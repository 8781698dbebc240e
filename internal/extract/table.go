package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Table is an HTML table reduced to cell text.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTable reads th cells of the first row as the header and every row
// containing td cells as a data row.
func ParseTable(sel *goquery.Selection) Table {
	var t Table
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() == 0 {
			if t.Header == nil {
				tr.ChildrenFiltered("th").Each(func(_ int, th *goquery.Selection) {
					t.Header = append(t.Header, cellText(th))
				})
			}
			return
		}
		row := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			row = append(row, cellText(td))
		})
		t.Rows = append(t.Rows, row)
	})
	return t
}

// cellText collapses whitespace runs, including non-breaking spaces.
func cellText(sel *goquery.Selection) string {
	return collapse(sel.Text())
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, nbsp, " ")
	return strings.Join(strings.Fields(s), " ")
}
