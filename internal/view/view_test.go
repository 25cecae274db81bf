package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-calendar/internal/calendar"
	"github.com/iliyamo/concert-calendar/internal/model"
)

func TestRenderPages(t *testing.T) {
	r, err := New(false)
	require.NoError(t, err)

	concert := model.Concert{ID: 3, Title: "Summer <Fest>", Artist: "Band A", Venue: "Arena",
		Date: time.Date(2024, 7, 15, 19, 0, 0, 0, time.UTC), PriceCents: 5050, AvailableSeats: 4}

	var buf bytes.Buffer
	err = r.Render(&buf, "calendar.html", Page{Body: map[string]any{
		"Year": 2024, "Month": 7, "MonthName": "July", "MonthLabel": "7月",
		"PrevYear": 2024, "PrevMonth": 6, "NextYear": 2024, "NextMonth": 8, "Search": "",
		"Weeks":         calendar.Month(2024, 7),
		"ConcertsByDay": map[int][]model.Concert{15: {concert}},
	}}, nil)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "7月")
	assert.Contains(t, out, `href="/concert/3"`)
	assert.Contains(t, out, "Summer &lt;Fest&gt;")
	assert.NotContains(t, out, "Log in")

	buf.Reset()
	err = r.Render(&buf, "concert_detail.html", Page{Body: map[string]any{
		"Concert": concert,
		"Tickets": []model.Ticket{{Reference: "ref-1", UserName: "Alice", Quantity: 2, TotalPriceCents: 10100}},
	}}, nil)
	require.NoError(t, err)
	out = buf.String()
	assert.Contains(t, out, "50.50")
	assert.Contains(t, out, "101.00")
	assert.Contains(t, out, `name="user_name"`)
	assert.Contains(t, out, "ref-1")
}

func TestRenderAuthModeDetailAsksForLogin(t *testing.T) {
	r, err := New(true)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(&buf, "concert_detail.html", Page{Body: map[string]any{
		"Concert": model.Concert{ID: 1, Title: "T", AvailableSeats: 1},
		"Tickets": []model.Ticket{},
	}}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "to book tickets")
	assert.NotContains(t, buf.String(), `name="user_name"`)
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New(false)
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope.html", nil, nil))
}
