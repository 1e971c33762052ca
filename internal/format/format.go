// Package format renders times and dashboard cards the way the shop floor reads them.
package format

import (
	"fmt"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/id"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/slots"
)

// Placeholder is shown when there is no time to render.
const Placeholder = "-"

// Formatter renders times in one shop time zone with Indonesian month names.
type Formatter struct {
	loc    *time.Location
	locale locales.Translator
}

// New returns a formatter for the named IANA zone. An unknown zone falls back to UTC.
func New(timezone string) (*Formatter, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return &Formatter{loc: time.UTC, locale: id.New()}, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Formatter{loc: loc, locale: id.New()}, nil
}

// DateTime renders e.g. "01 Jan 2025, 07.30".
func (f *Formatter) DateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	lt := t.In(f.loc)
	return fmt.Sprintf("%02d %s %d, %02d.%02d",
		lt.Day(), f.locale.MonthAbbreviated(lt.Month()), lt.Year(), lt.Hour(), lt.Minute())
}

// Date renders the day only, e.g. "15 Sep 2025".
func (f *Formatter) Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	lt := t.In(f.loc)
	return fmt.Sprintf("%02d %s %d", lt.Day(), f.locale.MonthAbbreviated(lt.Month()), lt.Year())
}

// Card is one tile on the operator dashboard.
type Card struct {
	Number       int              `json:"number"`
	ScreenID     string           `json:"screenId"`
	Status       model.SlotStatus `json:"status"`
	CustomerName string           `json:"customerName,omitempty"`
	LicensePlate string           `json:"licensePlate,omitempty"`
	Service      string           `json:"service,omitempty"`
	FinishDate   string           `json:"finishDate"`
	FinishDay    string           `json:"finishDay"`
}

// Cards builds one card per slot in table order.
func (f *Formatter) Cards(t slots.Table) []Card {
	cards := make([]Card, 0, len(t.Slots))
	for _, s := range t.Slots {
		card := Card{
			Number:     s.Index + 1,
			ScreenID:   s.ScreenID,
			Status:     s.Status(),
			FinishDate: Placeholder,
			FinishDay:  Placeholder,
		}
		if s.Record != nil {
			card.CustomerName = s.Record.CustomerName
			card.LicensePlate = s.Record.LicensePlate
			card.Service = s.Record.Service
			card.FinishDate = f.DateTime(s.Record.EstimatedFinishAt)
			card.FinishDay = f.Date(s.Record.EstimatedFinishAt)
		}
		cards = append(cards, card)
	}
	return cards
}
