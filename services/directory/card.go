package directory

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"courserank-backend/lib/htmlutil"
)

const (
	unknownName       = "Unknown Name"
	unknownDepartment = "Unknown Department"

	nameSelector       = `div[class*="CardName__StyledCardName"]`
	departmentSelector = `div[class*="CardSchool__Department"]`
)

// Card is what a single professor card in the listing carries.
type Card struct {
	Name       string
	Department string
}

// ParseCard reads the professor name and department out of a card's
// outer html, missing fields fall back to placeholders.
func ParseCard(fragment string) (Card, error) {
	doc, err := htmlutil.ParseFragment(fragment)
	if err != nil {
		return Card{}, fmt.Errorf("parse card: %w", err)
	}

	card := Card{
		Name:       htmlutil.SelectionText(doc.Find(nameSelector)),
		Department: htmlutil.SelectionText(doc.Find(departmentSelector)),
	}
	if card.Name == "" {
		card.Name = unknownName
	}
	if card.Department == "" {
		card.Department = unknownDepartment
	}
	return card, nil
}

// ExternalID extracts the site's professor id, the last path segment of
// a card's href (eg. "/professor/2345678").
func ExternalID(href string) (int64, error) {
	u, err := url.Parse(href)
	if err != nil {
		return 0, fmt.Errorf("parse href %q: %w", href, err)
	}
	path := strings.TrimRight(u.Path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("professor id in %q: %w", href, err)
	}
	return id, nil
}
