package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cellText returns the visible text of a cell, preferring link text
func cellText(cell *goquery.Selection) string {
	if link := cell.Find("a").First(); link.Length() > 0 {
		return collapse(link.Text())
	}
	return collapse(cell.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cells(row *goquery.Selection) []string {
	var out []string
	row.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		out = append(out, cellText(td))
	})
	return out
}
