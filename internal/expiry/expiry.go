// Package expiry computes and checks card expiry dates kept as YYMM.
package expiry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultProductYears is the validity period per card product.
var DefaultProductYears = map[string]int{"credit": 3, "debit": 5}

// Policy decides how long issued cards stay valid and in which time zone
// the end of the expiry month is reckoned.
type Policy struct {
	Location     *time.Location
	ProductYears map[string]int
}

func DefaultPolicy() Policy {
	return Policy{Location: time.UTC, ProductYears: DefaultProductYears}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// YearsFor returns validity years for product, 5 when the product is unknown.
func (p Policy) YearsFor(product string) int {
	years := p.ProductYears
	if years == nil {
		years = DefaultProductYears
	}
	if y, ok := years[strings.ToLower(product)]; ok && y > 0 {
		return y
	}
	return 5
}

// IssueYYMM returns the expiry of a card of product issued at issue.
func (p Policy) IssueYYMM(issue time.Time, product string) string {
	return YYMM(issue.In(p.location()), p.YearsFor(product))
}

// Expired reports whether a card expiring yymm is expired at at.
func (p Policy) Expired(yymm string, at time.Time) (bool, error) {
	return IsExpired(yymm, at, p.location())
}

// YYMM returns issue + years formatted as YYMM.
func YYMM(issue time.Time, years int) string {
	y := (issue.Year() + years) % 100
	return fmt.Sprintf("%02d%02d", y, int(issue.Month()))
}

// EndOfMonth parses YYMM into the last instant of that month in loc.
func EndOfMonth(yymm string, loc *time.Location) (time.Time, error) {
	if err := ValidateYYMM(yymm); err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	yy, _ := strconv.Atoi(yymm[:2])
	mm, _ := strconv.Atoi(yymm[2:])

	firstNext := time.Date(2000+yy, time.Month(mm), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return firstNext.Add(-time.Nanosecond), nil
}

// IsExpired reports whether at is strictly after the end of the YYMM month.
func IsExpired(yymm string, at time.Time, loc *time.Location) (bool, error) {
	end, err := EndOfMonth(yymm, loc)
	if err != nil {
		return false, err
	}
	return at.After(end), nil
}

func ValidateYYMM(yymm string) error {
	if len(yymm) != 4 {
		return fmt.Errorf("expiry must be YYMM (4 digits)")
	}
	for i := 0; i < 4; i++ {
		if yymm[i] < '0' || yymm[i] > '9' {
			return fmt.Errorf("expiry must be digits: YYMM")
		}
	}
	mm := int(yymm[2]-'0')*10 + int(yymm[3]-'0')
	if mm < 1 || mm > 12 {
		return fmt.Errorf("expiry month must be 01..12")
	}
	return nil
}
